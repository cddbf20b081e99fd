package models

import (
	"time"

	"github.com/jobtrack/cli/internal/utils"
)

// Role is the account role assigned by the backend
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents the cached user record of the current session
type User struct {
	ID            string     `json:"id" yaml:"id"`
	Email         string     `json:"email" yaml:"email"`
	Name          string     `json:"name" yaml:"name"`
	Role          Role       `json:"role" yaml:"role"`
	Avatar        *string    `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	IsActive      bool       `json:"isActive" yaml:"is_active"`
	EmailVerified bool       `json:"emailVerified" yaml:"email_verified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty" yaml:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" yaml:"updated_at"`
}

// IsAdmin reports whether the user has the ADMIN role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LoginForm represents a login request
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login form fields
func (f LoginForm) Validate() error {
	errs := utils.NewMultiError()
	if err := utils.ValidateEmail(f.Email); err != nil {
		errs.Add(utils.NewValidationError("email", err.Error()))
	}
	if err := utils.ValidateRequired(f.Password, "password"); err != nil {
		errs.Add(utils.NewValidationError("password", err.Error()))
	}
	return errs.ErrorOrNil()
}

// RegisterForm represents a registration request.
// ConfirmPassword is checked locally and never sent.
type RegisterForm struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// Validate checks the registration form fields
func (f RegisterForm) Validate() error {
	errs := utils.NewMultiError()
	if err := utils.ValidateName(f.Name, "name"); err != nil {
		errs.Add(utils.NewValidationError("name", err.Error()))
	}
	if err := utils.ValidateEmail(f.Email); err != nil {
		errs.Add(utils.NewValidationError("email", err.Error()))
	}
	if err := utils.ValidatePassword(f.Password); err != nil {
		errs.Add(utils.NewValidationError("password", err.Error()))
	}
	if f.ConfirmPassword != f.Password {
		errs.Add(utils.NewValidationError("confirmPassword", "passwords do not match"))
	}
	return errs.ErrorOrNil()
}

// ResetPasswordForm represents the final step of the password reset sub-flow
type ResetPasswordForm struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// Validate checks the reset form fields
func (f ResetPasswordForm) Validate() error {
	errs := utils.NewMultiError()
	if err := utils.ValidateEmail(f.Email); err != nil {
		errs.Add(utils.NewValidationError("email", err.Error()))
	}
	if err := utils.ValidateCode(f.Code); err != nil {
		errs.Add(utils.NewValidationError("code", err.Error()))
	}
	if err := utils.ValidatePassword(f.NewPassword); err != nil {
		errs.Add(utils.NewValidationError("newPassword", err.Error()))
	}
	return errs.ErrorOrNil()
}

// AuthResponse is returned by every successful terminal auth operation
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// TwoFactorResponse is returned by login when a second factor is required
type TwoFactorResponse struct {
	Requires2FA bool   `json:"requires2FA"`
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Message     string `json:"message,omitempty"`
}

// EmailVerificationResponse is returned by login or register when the
// account email must be verified before a session is issued
type EmailVerificationResponse struct {
	RequiresEmailVerification bool   `json:"requiresEmailVerification"`
	UserID                    string `json:"userId"`
	Email                     string `json:"email"`
	Message                   string `json:"message,omitempty"`
}

// Code purposes accepted by the resend-code endpoint
const (
	PurposeTwoFactor         = "two_factor"
	PurposeEmailVerification = "email_verification"
)

// Error codes the auth flow inspects
const (
	CodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
)
