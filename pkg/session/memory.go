package session

import "sync"

// MemoryStore keeps the token for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Token returns the held token, or ErrNoToken.
func (m *MemoryStore) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

// SaveToken replaces the held token.
func (m *MemoryStore) SaveToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
	return nil
}

// RemoveToken forgets the token.
func (m *MemoryStore) RemoveToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = ""
	return nil
}
