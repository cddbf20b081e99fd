package session

import (
	"context"
	"sync"

	"github.com/jobtrack/cli/internal/models"
)

// MemoryStore keeps the credential in process memory only
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	user  *models.User
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Store(_ context.Context, token string, user *models.User) error {
	if err := checkCredential(token, user); err != nil {
		return err
	}
	u := *user
	m.mu.Lock()
	m.token, m.user = token, &u
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.token, m.user = "", nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Read(context.Context) (Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred := Credential{Token: m.token}
	if m.user != nil {
		u := *m.user
		cred.User = &u
	}
	return cred, nil
}

func (m *MemoryStore) IsAuthenticated(context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}
