package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jobtrack/cli/internal/models"
)

// Endpoint paths, relative to the base URL
const (
	pathRegister        = "/auth/register"
	pathLogin           = "/auth/login"
	pathVerifyEmail     = "/auth/verify-email"
	pathVerify2FA       = "/auth/verify-2fa"
	pathResendCode      = "/auth/resend-code"
	pathForgotPassword  = "/auth/forgot-password"
	pathVerifyResetCode = "/auth/verify-reset-code"
	pathResetPassword   = "/auth/reset-password"
	pathRefresh         = "/auth/refresh"
	pathProfile         = "/auth/profile"
)

// Register creates an account. The result is either a session or an
// email-verification challenge.
func (c *Client) Register(ctx context.Context, form models.RegisterForm) (*Outcome, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, path: pathRegister, body: form})
	if err != nil {
		return nil, err
	}
	return decodeOutcome(body, Authenticated, EmailVerification)
}

// Login authenticates with email and password. An EMAIL_NOT_VERIFIED
// rejection carrying userId and email is returned as an EmailVerification
// outcome rather than an error.
func (c *Client) Login(ctx context.Context, form models.LoginForm) (*Outcome, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, path: pathLogin, body: form})
	if err != nil {
		if out, ok := emailNotVerified(err); ok {
			return out, nil
		}
		return nil, err
	}
	return decodeOutcome(body, Authenticated, TwoFactor, EmailVerification)
}

type codeRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Code   string `json:"code"`
}

// VerifyEmail completes the email-verification step
func (c *Client) VerifyEmail(ctx context.Context, userID, email, code string) (*models.AuthResponse, error) {
	return c.terminal(ctx, pathVerifyEmail, codeRequest{UserID: userID, Email: email, Code: code})
}

// Verify2FA completes the second-factor step
func (c *Client) Verify2FA(ctx context.Context, userID, email, code string) (*models.AuthResponse, error) {
	return c.terminal(ctx, pathVerify2FA, codeRequest{UserID: userID, Email: email, Code: code})
}

type resendRequest struct {
	UserID  string `json:"userId"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose"`
}

// ResendCode asks the backend to send a fresh verification code
func (c *Client) ResendCode(ctx context.Context, userID, email, purpose string) (*models.Ack, error) {
	return c.ack(ctx, request{
		method: http.MethodPost,
		path:   pathResendCode,
		body:   resendRequest{UserID: userID, Email: email, Purpose: purpose},
	})
}

type emailRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts the password reset sub-flow
func (c *Client) ForgotPassword(ctx context.Context, email string) (*models.Ack, error) {
	return c.ack(ctx, request{method: http.MethodPost, path: pathForgotPassword, body: emailRequest{Email: email}})
}

type resetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyResetCode checks a reset code ahead of ResetPassword. The answer is
// advisory and grants no session.
func (c *Client) VerifyResetCode(ctx context.Context, email, code string) (*models.Ack, error) {
	return c.ack(ctx, request{
		method: http.MethodPost,
		path:   pathVerifyResetCode,
		body:   resetCodeRequest{Email: email, Code: code},
	})
}

// ResetPassword sets a new password and returns a session
func (c *Client) ResetPassword(ctx context.Context, form models.ResetPasswordForm) (*models.AuthResponse, error) {
	return c.terminal(ctx, pathResetPassword, form)
}

// RefreshToken exchanges the current bearer token for a new one
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, path: pathRefresh, authed: true})
	if err != nil {
		return "", err
	}
	var tr models.TokenResponse
	if err := decode(body, &tr); err != nil {
		return "", err
	}
	if tr.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrUnexpectedResponse)
	}
	return tr.Token, nil
}

// GetProfile fetches the current user
func (c *Client) GetProfile(ctx context.Context) (*models.User, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: pathProfile, authed: true})
	if err != nil {
		return nil, err
	}
	var pr models.ProfileResponse
	if err := decode(body, &pr); err != nil {
		return nil, err
	}
	if pr.User == nil {
		return nil, fmt.Errorf("%w: missing user", ErrUnexpectedResponse)
	}
	return pr.User, nil
}

// terminal posts to an endpoint whose only success shape is AuthResponse
func (c *Client) terminal(ctx context.Context, path string, payload interface{}) (*models.AuthResponse, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, path: path, body: payload})
	if err != nil {
		return nil, err
	}
	out, err := decodeOutcome(body, Authenticated)
	if err != nil {
		return nil, err
	}
	return out.Auth, nil
}

func (c *Client) ack(ctx context.Context, r request) (*models.Ack, error) {
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var ack models.Ack
	if len(body) > 0 {
		if err := decode(body, &ack); err != nil {
			return nil, err
		}
	}
	return &ack, nil
}
