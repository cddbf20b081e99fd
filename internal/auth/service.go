// Package auth implements the client side of the authentication journey:
// the typed operations that own the session credential, and the Flow state
// machine that turns their outcomes into the next step.
package auth

import (
	"context"
	"fmt"

	"github.com/jobtrack/cli/internal/api"
	"github.com/jobtrack/cli/internal/models"
	"github.com/jobtrack/cli/internal/session"
	"github.com/jobtrack/cli/internal/utils"
)

// ForgotPasswordMessage is returned for every accepted forgot-password
// request, whatever the backend said, so output never hints at whether the
// account exists.
const ForgotPasswordMessage = "If an account exists for that email, a reset code has been sent."

// Backend is the set of endpoint calls the auth operations need.
// *api.Client satisfies it.
type Backend interface {
	Register(ctx context.Context, form models.RegisterForm) (*api.Outcome, error)
	Login(ctx context.Context, form models.LoginForm) (*api.Outcome, error)
	VerifyEmail(ctx context.Context, userID, email, code string) (*models.AuthResponse, error)
	Verify2FA(ctx context.Context, userID, email, code string) (*models.AuthResponse, error)
	ResendCode(ctx context.Context, userID, email, purpose string) (*models.Ack, error)
	ForgotPassword(ctx context.Context, email string) (*models.Ack, error)
	VerifyResetCode(ctx context.Context, email, code string) (*models.Ack, error)
	ResetPassword(ctx context.Context, form models.ResetPasswordForm) (*models.AuthResponse, error)
	RefreshToken(ctx context.Context) (string, error)
	GetProfile(ctx context.Context) (*models.User, error)
}

// Service wraps the backend calls with the credential contract: an
// Authenticated outcome is stored, anything else is not. It is the only
// writer of the credential store.
type Service struct {
	backend Backend
	store   session.Store
}

// NewService binds the auth operations to a backend and a credential store
func NewService(backend Backend, store session.Store) *Service {
	return &Service{backend: backend, store: store}
}

func (s *Service) install(ctx context.Context, ar *models.AuthResponse) error {
	if err := s.store.Store(ctx, ar.Token, ar.User); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Register creates an account; a direct session is stored
func (s *Service) Register(ctx context.Context, form models.RegisterForm) (*api.Outcome, error) {
	out, err := s.backend.Register(ctx, form)
	if err != nil {
		return nil, err
	}
	if out.Kind == api.Authenticated {
		if err := s.install(ctx, out.Auth); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Login authenticates; a direct session is stored, step-up outcomes are not
func (s *Service) Login(ctx context.Context, form models.LoginForm) (*api.Outcome, error) {
	out, err := s.backend.Login(ctx, form)
	if err != nil {
		return nil, err
	}
	if out.Kind == api.Authenticated {
		if err := s.install(ctx, out.Auth); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// VerifyEmail completes email verification and stores the session
func (s *Service) VerifyEmail(ctx context.Context, userID, email, code string) (*models.AuthResponse, error) {
	ar, err := s.backend.VerifyEmail(ctx, userID, email, code)
	if err != nil {
		return nil, err
	}
	if err := s.install(ctx, ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// Verify2FA completes the second factor and stores the session
func (s *Service) Verify2FA(ctx context.Context, userID, email, code string) (*models.AuthResponse, error) {
	ar, err := s.backend.Verify2FA(ctx, userID, email, code)
	if err != nil {
		return nil, err
	}
	if err := s.install(ctx, ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// ResendCode requests a fresh code for the given purpose
func (s *Service) ResendCode(ctx context.Context, userID, email, purpose string) (*models.Ack, error) {
	return s.backend.ResendCode(ctx, userID, email, purpose)
}

// ForgotPassword starts a password reset. A 2xx or 404 from the backend both
// yield the same acknowledgement; transport and server failures propagate.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*models.Ack, error) {
	if _, err := s.backend.ForgotPassword(ctx, email); err != nil && !utils.IsNotFoundError(err) {
		return nil, err
	}
	return &models.Ack{Message: ForgotPasswordMessage}, nil
}

// VerifyResetCode reports whether a reset code looks valid. A 2xx without
// an explicit "valid": false counts as valid. It grants no session.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) (bool, error) {
	ack, err := s.backend.VerifyResetCode(ctx, email, code)
	if err != nil {
		return false, err
	}
	return ack.Valid == nil || *ack.Valid, nil
}

// ResetPassword sets a new password and stores the returned session
func (s *Service) ResetPassword(ctx context.Context, form models.ResetPasswordForm) (*models.AuthResponse, error) {
	ar, err := s.backend.ResetPassword(ctx, form)
	if err != nil {
		return nil, err
	}
	if err := s.install(ctx, ar); err != nil {
		return nil, err
	}
	return ar, nil
}

// RefreshToken rotates the stored token, keeping the cached user
func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	cred, err := s.store.Read(ctx)
	if err != nil {
		return "", err
	}
	if !cred.Complete() {
		return "", ErrNotAuthenticated
	}
	token, err := s.backend.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if err := s.store.Store(ctx, token, cred.User); err != nil {
		return "", fmt.Errorf("failed to save refreshed token: %w", err)
	}
	return token, nil
}

// GetProfile fetches the current user without touching the store
func (s *Service) GetProfile(ctx context.Context) (*models.User, error) {
	return s.backend.GetProfile(ctx)
}

// RefreshUser fetches the profile and replaces the cached user, keeping
// the token
func (s *Service) RefreshUser(ctx context.Context) (*models.User, error) {
	cred, err := s.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	if cred.Token == "" {
		return nil, ErrNotAuthenticated
	}
	user, err := s.backend.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.Store(ctx, cred.Token, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

// Credential returns what the store currently holds
func (s *Service) Credential(ctx context.Context) (session.Credential, error) {
	return s.store.Read(ctx)
}

// Logout clears the stored session locally. No request is sent.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}
