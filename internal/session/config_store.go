package session

import (
	"context"
	"sync"

	"github.com/jobtrack/cli/internal/config"
	"github.com/jobtrack/cli/internal/models"
)

// ConfigStore persists the credential in the CLI config file under
// auth.token and auth.user. Both keys go out in one file write.
type ConfigStore struct {
	mu sync.Mutex
}

// NewConfigStore returns a store backed by the initialized config file
func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

func (c *ConfigStore) Store(_ context.Context, token string, user *models.User) error {
	if err := checkCredential(token, user); err != nil {
		return err
	}
	raw, err := encodeUser(user)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return config.UpdateAuth(token, raw)
}

func (c *ConfigStore) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, user, err := config.LoadAuth()
	if err != nil {
		return err
	}
	if token == "" && user == "" {
		return nil
	}
	return config.ClearAuth()
}

func (c *ConfigStore) Read(context.Context) (Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, user, err := config.LoadAuth()
	if err != nil {
		return Credential{}, err
	}
	return assemble(token, user), nil
}

func (c *ConfigStore) IsAuthenticated(context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, _, err := config.LoadAuth()
	return err == nil && token != ""
}
