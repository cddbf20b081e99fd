package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	appConfig "github.com/jobtrack/cli/internal/config"
	"github.com/jobtrack/cli/internal/format"
)

// NewCommand builds the config command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "CLI configuration commands",
		Long: `CLI configuration commands for the jobtrack CLI.

Settable keys:
  ` + strings.Join(appConfig.Keys(), "\n  "),
	}
	cmd.AddCommand(newShowCmd(), newGetCmd(), newSetCmd(), newPathCmd())
	return cmd
}

func printer(cmd *cobra.Command) *format.Printer {
	return format.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), appConfig.GetOutputFormat(), appConfig.Get().Format.Colors)
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec := format.Record{}
			for _, key := range appConfig.Keys() {
				v, err := appConfig.GetValue(key)
				if err != nil {
					return err
				}
				if key == "store.redis.password" {
					v = mask(fmt.Sprint(v))
				}
				rec = rec.Add(key, v)
			}
			token, _, err := appConfig.LoadAuth()
			if err != nil {
				return err
			}
			rec = rec.Add("auth.token", mask(token))
			return printer(cmd).Print(rec)
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := appConfig.GetValue(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	}
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appConfig.SetValue(args[0], args[1]); err != nil {
				return err
			}
			printer(cmd).Success("Set %s", args[0])
			return nil
		},
	}
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), appConfig.Path())
			return err
		},
	}
}

// mask hides secrets in output, keeping only whether one is set
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
