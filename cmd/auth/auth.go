package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobtrack/cli/internal/auth"
	"github.com/jobtrack/cli/internal/config"
	"github.com/jobtrack/cli/internal/format"
	"github.com/jobtrack/cli/internal/models"
	"github.com/jobtrack/cli/internal/session"
)

// errNotLoggedIn is returned by commands that need a stored session
var errNotLoggedIn = errors.New("not logged in; run `jobtrack auth login` first")

// NewCommand builds the auth command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long: `Authentication commands for the jobtrack CLI.

This command group covers login with two-factor and email verification,
registration, password reset and session management.`,
	}

	cmd.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newVerify2FACmd(),
		newVerifyEmailCmd(),
		newResendCodeCmd(),
		newForgotPasswordCmd(),
		newVerifyResetCodeCmd(),
		newResetPasswordCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newWhoamiCmd(),
		newRefreshCmd(),
	)
	return cmd
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in",
		Long: `Authenticate with email and password.

If the account requires a second factor or email verification the code is
asked for interactively. Pass --code to supply it up front, or --no-prompt to
stop after the first step and print how to continue.`,
		Args: cobra.NoArgs,
		RunE: withApp(runLogin),
	}
	cmd.Flags().StringP("email", "e", "", "Email address")
	cmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	addStepUpFlags(cmd)
	return cmd
}

func runLogin(cmd *cobra.Command, a *app, _ []string) error {
	email, err := a.stringFlag(cmd, "email", "Email")
	if err != nil {
		return err
	}
	password, err := a.secretFlag(cmd, "password", "Password", false)
	if err != nil {
		return err
	}

	a.printer.Debugf("logging in as %s", email)
	if err := a.flow.Login(cmd.Context(), models.LoginForm{Email: email, Password: password}); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return a.continueStepUp(cmd)
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		Long:  "Remove the stored session. No request is sent to the server.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.flow.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			if a.printer.Structured() {
				return a.printer.Print(stateRecord(a.flow.State()))
			}
			a.printer.Success("Logged out")
			return nil
		}),
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display the current authentication step and the cached user",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStatus),
	}
}

func runStatus(cmd *cobra.Command, a *app, _ []string) error {
	ctx := cmd.Context()
	cfg := config.Get()
	st := a.flow.State()

	rec := format.Record{}.
		Add("step", st.Step.String()).
		Add("authenticated", a.store.IsAuthenticated(ctx))
	if user, ok := a.flow.User(ctx); ok {
		rec = rec.
			Add("email", user.Email).
			Add("name", user.Name).
			Add("role", string(user.Role))
	}
	if cred, err := a.store.Read(ctx); err == nil && cred.Token != "" {
		if exp, ok := session.TokenExpiry(cred.Token); ok {
			rec = rec.Add("token_expires", exp.Format(time.RFC3339))
		}
	}
	rec = rec.
		Add("server", cfg.Server.URL).
		Add("store", cfg.Store.Backend)

	return a.printer.Print(rec)
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Long:  "Fetch the current profile from the server and refresh the cached user",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			if !a.store.IsAuthenticated(ctx) {
				return errNotLoggedIn
			}
			a.flow.RefreshUser(ctx)
			user, ok := a.flow.User(ctx)
			if !ok {
				return fmt.Errorf("session expired; log in again")
			}
			return a.printer.Print(user)
		}),
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the session token",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			if err := a.flow.RefreshToken(ctx); err != nil {
				if errors.Is(err, auth.ErrNotAuthenticated) {
					return errNotLoggedIn
				}
				return fmt.Errorf("token refresh failed: %w", err)
			}
			cred, err := a.store.Read(ctx)
			if err != nil {
				return err
			}
			if exp, ok := session.TokenExpiry(cred.Token); ok {
				a.printer.Success("Token refreshed, expires %s", exp.Format(time.RFC3339))
			} else {
				a.printer.Success("Token refreshed")
			}
			return nil
		}),
	}
}

// stateRecord renders a flow state for output
func stateRecord(st auth.State) format.Record {
	rec := format.Record{}.Add("step", st.Step.String())
	if st.UserID != "" {
		rec = rec.Add("userId", st.UserID).Add("email", st.Email)
	}
	return rec
}

// report prints where the flow ended up after an operation
func (a *app) report(ctx context.Context) error {
	st := a.flow.State()
	if a.printer.Structured() {
		rec := stateRecord(st)
		if user, ok := a.flow.User(ctx); ok && st.Completed() {
			rec = rec.Add("user", user)
		}
		return a.printer.Print(rec)
	}

	switch st.Step {
	case auth.StepCompleted:
		if user, ok := a.flow.User(ctx); ok {
			a.printer.Success("Logged in as %s", user.Email)
		} else {
			a.printer.Success("Logged in")
		}
	case auth.StepTwoFactor:
		a.printer.Info("Two-factor code required for %s", st.Email)
		a.printer.Info("Continue with: jobtrack auth verify-2fa --user-id %s --email %s --code <code>", st.UserID, st.Email)
	case auth.StepEmailVerification:
		a.printer.Info("Email verification required for %s", st.Email)
		a.printer.Info("Continue with: jobtrack auth verify-email --user-id %s --email %s --code <code>", st.UserID, st.Email)
	default:
		a.printer.Warning("Not logged in")
	}
	return nil
}
