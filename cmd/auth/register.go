package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobtrack/cli/internal/models"
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. Depending on the server the new account is logged in
directly or an email verification code is sent first.`,
		Args: cobra.NoArgs,
		RunE: withApp(runRegister),
	}
	cmd.Flags().StringP("name", "n", "", "Display name")
	cmd.Flags().StringP("email", "e", "", "Email address")
	cmd.Flags().StringP("password", "p", "", "Password (prompted twice when omitted)")
	addStepUpFlags(cmd)
	return cmd
}

func runRegister(cmd *cobra.Command, a *app, _ []string) error {
	name, err := a.stringFlag(cmd, "name", "Name")
	if err != nil {
		return err
	}
	email, err := a.stringFlag(cmd, "email", "Email")
	if err != nil {
		return err
	}
	password, err := a.secretFlag(cmd, "password", "Password", true)
	if err != nil {
		return err
	}

	form := models.RegisterForm{Name: name, Email: email, Password: password, ConfirmPassword: password}
	if err := a.flow.Register(cmd.Context(), form); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return a.continueStepUp(cmd)
}
