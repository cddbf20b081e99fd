package auth

import "errors"

var (
	// ErrBusy is returned when an auth operation is already in flight.
	// The rejected call does not touch the flow state.
	ErrBusy = errors.New("another auth operation is in progress")
	// ErrWrongStep is returned when an operation does not apply to the
	// current flow step, e.g. Verify2FA outside TWO_FACTOR_AUTH.
	ErrWrongStep = errors.New("operation not valid in current auth step")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("auth flow closed")
	// ErrNotAuthenticated is returned by operations that need a stored session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMissingChallenge is returned when a step-up state is requested
	// without both a user id and an email.
	ErrMissingChallenge = errors.New("step-up state requires user id and email")
)
