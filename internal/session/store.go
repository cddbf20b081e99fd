// Package session holds the credential store: the single source of truth for
// whether a usable session exists, independent of in-memory flow state.
//
// A credential is the (token, user) pair. Every backend writes and clears the
// two halves together. Read still reports each half on its own so callers can
// recover from a token whose cached user went missing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jobtrack/cli/internal/models"
)

// ErrIncompleteCredential is returned when Store is called without a token
// or without a user
var ErrIncompleteCredential = errors.New("credential requires both token and user")

// Credential is the session token together with the cached user record.
// Either half may be absent when read back.
type Credential struct {
	Token string
	User  *models.User
}

// Complete reports whether both the token and the user are present
func (c Credential) Complete() bool {
	return c.Token != "" && c.User != nil
}

// Store persists the session credential.
//
// Implementations must be safe for concurrent use and must never leave a
// token without a user (or the reverse) visible to Read.
type Store interface {
	// Store atomically persists token and user, replacing any prior values.
	Store(ctx context.Context, token string, user *models.User) error
	// Clear atomically removes both halves. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
	// Read returns whatever is stored. An empty store is not an error.
	Read(ctx context.Context) (Credential, error)
	// IsAuthenticated reports whether a token is present. It says nothing
	// about whether the backend still accepts it.
	IsAuthenticated(ctx context.Context) bool
}

func checkCredential(token string, user *models.User) error {
	if token == "" || user == nil {
		return ErrIncompleteCredential
	}
	return nil
}

func encodeUser(user *models.User) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode user: %w", err)
	}
	return string(data), nil
}

func decodeUser(raw string) (*models.User, error) {
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &user, nil
}

// assemble turns the two persisted halves into a credential. A cached user
// that no longer decodes is reported as absent so that the token can be
// re-validated against the profile endpoint.
func assemble(token, rawUser string) Credential {
	cred := Credential{Token: token}
	if rawUser == "" {
		return cred
	}
	if user, err := decodeUser(rawUser); err == nil {
		cred.User = user
	}
	return cred
}

// TokenSource adapts a store into a bearer-token provider for the API client
func TokenSource(s Store) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		cred, err := s.Read(ctx)
		if err != nil {
			return ""
		}
		return cred.Token
	}
}
