package auth

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobtrack/cli/internal/format"
	"github.com/jobtrack/cli/internal/models"
)

func newForgotPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset code",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			email, err := a.stringFlag(cmd, "email", "Email")
			if err != nil {
				return err
			}
			ack, err := a.flow.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("password reset request failed: %w", err)
			}
			if a.printer.Structured() {
				return a.printer.Print(ack)
			}
			a.printer.Success("%s", ack.Message)
			return nil
		}),
	}
	cmd.Flags().StringP("email", "e", "", "Email address")
	return cmd
}

func newVerifyResetCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-reset-code",
		Short: "Check a password reset code",
		Long:  "Check a reset code before choosing a new password. This does not log in.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			email, err := a.stringFlag(cmd, "email", "Email")
			if err != nil {
				return err
			}
			code, err := a.stringFlag(cmd, "code", "Code")
			if err != nil {
				return err
			}
			valid, err := a.flow.VerifyResetCode(cmd.Context(), email, code)
			if err != nil {
				return fmt.Errorf("reset code check failed: %w", err)
			}
			if a.printer.Structured() {
				return a.printer.Print(format.Record{}.Add("valid", valid))
			}
			if !valid {
				return errors.New("reset code is not valid")
			}
			a.printer.Success("Reset code is valid")
			return nil
		}),
	}
	cmd.Flags().StringP("email", "e", "", "Email address")
	cmd.Flags().String("code", "", "Reset code")
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset code",
		Long:  "Set a new password using the emailed reset code. On success you are logged in.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			email, err := a.stringFlag(cmd, "email", "Email")
			if err != nil {
				return err
			}
			code, err := a.stringFlag(cmd, "code", "Code")
			if err != nil {
				return err
			}
			password, err := a.secretFlag(cmd, "password", "New password", true)
			if err != nil {
				return err
			}
			form := models.ResetPasswordForm{Email: email, Code: code, NewPassword: password}
			if err := a.flow.ResetPassword(cmd.Context(), form); err != nil {
				return fmt.Errorf("password reset failed: %w", err)
			}
			return a.report(cmd.Context())
		}),
	}
	cmd.Flags().StringP("email", "e", "", "Email address")
	cmd.Flags().String("code", "", "Reset code")
	cmd.Flags().StringP("password", "p", "", "New password (prompted twice when omitted)")
	return cmd
}
