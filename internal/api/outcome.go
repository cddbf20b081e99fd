package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jobtrack/cli/internal/models"
	"github.com/jobtrack/cli/internal/utils"
)

var (
	// ErrUnexpectedResponse is returned when a body matches none of the
	// expected response shapes
	ErrUnexpectedResponse = errors.New("unexpected response shape")
	// ErrIncompleteChallenge is returned when a step-up response lacks the
	// userId or email needed to continue
	ErrIncompleteChallenge = errors.New("step-up response missing userId or email")
)

// OutcomeKind tags the variant held by an Outcome
type OutcomeKind int

const (
	// Authenticated: the body carried both user and token
	Authenticated OutcomeKind = iota + 1
	// TwoFactor: a second factor is required before a session is issued
	TwoFactor
	// EmailVerification: the account email must be verified first
	EmailVerification
)

func (k OutcomeKind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case TwoFactor:
		return "two_factor"
	case EmailVerification:
		return "email_verification"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Challenge identifies the account a step-up verification applies to
type Challenge struct {
	UserID  string
	Email   string
	Message string
}

// Outcome is the result of login or register. Exactly one of Auth
// (Authenticated) or Challenge (TwoFactor, EmailVerification) is set.
type Outcome struct {
	Kind      OutcomeKind
	Auth      *models.AuthResponse
	Challenge *Challenge
}

// decodeOutcome discriminates a 2xx body by key presence, in this order:
//
//  1. user and token     -> Authenticated
//  2. requires2FA        -> TwoFactor
//  3. requiresEmailVerification -> EmailVerification
//
// The order matters if a body ever satisfies more than one predicate.
func decodeOutcome(body []byte, allowed ...OutcomeKind) (*Outcome, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out, err := sniff(keys, body)
	if err != nil {
		return nil, err
	}
	for _, k := range allowed {
		if out.Kind == k {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, out.Kind)
}

func present(keys map[string]json.RawMessage, key string) bool {
	raw, ok := keys[key]
	return ok && string(raw) != "null"
}

func sniff(keys map[string]json.RawMessage, body []byte) (*Outcome, error) {
	switch {
	case present(keys, "user") && present(keys, "token"):
		var ar models.AuthResponse
		if err := decode(body, &ar); err != nil {
			return nil, err
		}
		if ar.Token == "" || ar.User == nil {
			return nil, fmt.Errorf("%w: empty user or token", ErrUnexpectedResponse)
		}
		return &Outcome{Kind: Authenticated, Auth: &ar}, nil

	case present(keys, "requires2FA"):
		var tf models.TwoFactorResponse
		if err := decode(body, &tf); err != nil {
			return nil, err
		}
		return challengeOutcome(TwoFactor, tf.UserID, tf.Email, tf.Message)

	case present(keys, "requiresEmailVerification"):
		var ev models.EmailVerificationResponse
		if err := decode(body, &ev); err != nil {
			return nil, err
		}
		return challengeOutcome(EmailVerification, ev.UserID, ev.Email, ev.Message)
	}
	return nil, ErrUnexpectedResponse
}

func challengeOutcome(kind OutcomeKind, userID, email, msg string) (*Outcome, error) {
	if userID == "" || email == "" {
		return nil, fmt.Errorf("%w (%s)", ErrIncompleteChallenge, kind)
	}
	return &Outcome{Kind: kind, Challenge: &Challenge{UserID: userID, Email: email, Message: msg}}, nil
}

// emailNotVerified converts the EMAIL_NOT_VERIFIED error body into a normal
// EmailVerification outcome. ok is false for every other error.
func emailNotVerified(err error) (*Outcome, bool) {
	apiErr, isAPI := utils.AsAPIError(err)
	if !isAPI || apiErr.Code != models.CodeEmailNotVerified {
		return nil, false
	}
	out, cerr := challengeOutcome(EmailVerification, apiErr.DataString("userId"), apiErr.DataString("email"), apiErr.Message)
	if cerr != nil {
		return nil, false
	}
	return out, true
}
