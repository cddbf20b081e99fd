package auth

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobtrack/cli/internal/auth"
	"github.com/jobtrack/cli/internal/models"
)

func addStepUpFlags(cmd *cobra.Command) {
	cmd.Flags().String("code", "", "Verification code, if one is requested")
	cmd.Flags().Bool("no-prompt", false, "Do not ask for a verification code; print how to continue instead")
}

func addChallengeFlags(cmd *cobra.Command) {
	cmd.Flags().String("user-id", "", "User id from the login or register response")
	cmd.Flags().String("email", "", "Email address from the login or register response")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("email")
}

// continueStepUp finishes a login or registration that asked for a code
func (a *app) continueStepUp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	st := a.flow.State()
	if !st.Requires2FA() && !st.RequiresEmailVerification() {
		return a.report(ctx)
	}

	code, _ := cmd.Flags().GetString("code")
	if code == "" {
		if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
			return a.report(ctx)
		}
		if st.Requires2FA() {
			a.printer.Info("Enter the two-factor code sent to %s", st.Email)
		} else {
			a.printer.Info("Enter the verification code sent to %s", st.Email)
		}
		var err error
		if code, err = a.prompt.Line("Code"); err != nil {
			return err
		}
	}
	return a.verify(ctx, code)
}

// verify submits code for the pending challenge
func (a *app) verify(ctx context.Context, code string) error {
	var err error
	if a.flow.State().Requires2FA() {
		err = a.flow.Verify2FA(ctx, code)
	} else {
		err = a.flow.VerifyEmail(ctx, code)
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	return a.report(ctx)
}

// resume re-enters the challenge named by the --user-id and --email flags
func (a *app) resume(cmd *cobra.Command, step auth.Step) error {
	userID, _ := cmd.Flags().GetString("user-id")
	email, _ := cmd.Flags().GetString("email")
	return a.flow.Resume(step, userID, email)
}

func newVerify2FACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-2fa",
		Short: "Submit a two-factor code",
		Args:  cobra.NoArgs,
		RunE:  withApp(runVerify(auth.StepTwoFactor)),
	}
	addChallengeFlags(cmd)
	cmd.Flags().String("code", "", "Two-factor code (prompted when omitted)")
	return cmd
}

func newVerifyEmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Submit an email verification code",
		Args:  cobra.NoArgs,
		RunE:  withApp(runVerify(auth.StepEmailVerification)),
	}
	addChallengeFlags(cmd)
	cmd.Flags().String("code", "", "Verification code (prompted when omitted)")
	return cmd
}

func runVerify(step auth.Step) func(*cobra.Command, *app, []string) error {
	return func(cmd *cobra.Command, a *app, _ []string) error {
		if err := a.resume(cmd, step); err != nil {
			return err
		}
		code, err := a.stringFlag(cmd, "code", "Code")
		if err != nil {
			return err
		}
		return a.verify(cmd.Context(), code)
	}
}

func newResendCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resend-code",
		Short: "Send a new verification code",
		Long: `Ask the server to send a new code for a pending challenge.

--purpose is two_factor for a login second factor or email_verification
for account email verification.`,
		Args: cobra.NoArgs,
		RunE: withApp(runResendCode),
	}
	addChallengeFlags(cmd)
	cmd.Flags().String("purpose", models.PurposeTwoFactor, "Code purpose (two_factor, email_verification)")
	return cmd
}

func runResendCode(cmd *cobra.Command, a *app, _ []string) error {
	purpose, _ := cmd.Flags().GetString("purpose")
	var step auth.Step
	switch purpose {
	case models.PurposeTwoFactor:
		step = auth.StepTwoFactor
	case models.PurposeEmailVerification:
		step = auth.StepEmailVerification
	default:
		return fmt.Errorf("invalid purpose %q: must be %s or %s", purpose, models.PurposeTwoFactor, models.PurposeEmailVerification)
	}
	if err := a.resume(cmd, step); err != nil {
		return err
	}

	ack, err := a.flow.ResendCode(cmd.Context())
	if err != nil {
		return fmt.Errorf("resend failed: %w", err)
	}
	if a.printer.Structured() {
		return a.printer.Print(ack)
	}
	if ack.Message != "" {
		a.printer.Success("%s", ack.Message)
	} else {
		a.printer.Success("A new code has been sent")
	}
	return nil
}
