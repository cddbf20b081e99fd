package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobtrack/cli/cmd/auth"
	"github.com/jobtrack/cli/cmd/config"
	appConfig "github.com/jobtrack/cli/internal/config"
	"github.com/jobtrack/cli/internal/format"
)

// Version is set at build time with -ldflags "-X github.com/jobtrack/cli/cmd.Version=..."
var Version = "dev"

// NewRootCmd builds the jobtrack command tree
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		debug   bool
		output  string
	)

	rootCmd := &cobra.Command{
		Use:   "jobtrack",
		Short: "jobtrack CLI - command-line client for the job application tracker",
		Long: `jobtrack CLI provides command-line access to the job application tracker.

It handles authentication against the tracker API, including two-factor
login, email verification and password reset, and keeps the session in
the configured credential store.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize configuration
			if err := appConfig.Initialize(cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			appConfig.SetDebug(debug)

			if output != "" {
				if !isFormat(output) {
					return fmt.Errorf("unsupported output format %q (%s)", output, strings.Join(format.Formats, ", "))
				}
			}
			appConfig.SetOutputFormat(output)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jobtrack.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (table, json, json-compact, yaml, text)")

	// Add subcommands
	rootCmd.AddCommand(auth.NewCommand())
	rootCmd.AddCommand(config.NewCommand())

	return rootCmd
}

// Execute runs the root command and reports any error.
// This is called by main.main().
func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		printer := format.NewPrinter(rootCmd.OutOrStdout(), rootCmd.ErrOrStderr(), format.Text, appConfig.Get().Format.Colors)
		printer.Error("%v", err)
	}
	return err
}

func isFormat(name string) bool {
	for _, f := range format.Formats {
		if f == name {
			return true
		}
	}
	return false
}
