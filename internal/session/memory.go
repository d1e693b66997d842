// Package session holds an in-process session store used when Redis is not configured.
package session

import (
	"context"
	"sync"
	"time"

	"bookmarket-service/internal/models"
)

type entry struct {
	identity  models.Identity
	expiresAt time.Time
}

// MemoryStore keeps session tokens in a map with expiry
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entry
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]entry{}, now: time.Now}
}

// SaveSession stores the identity behind a token until ttl elapses. Expired tokens
// are swept on every save.
func (m *MemoryStore) SaveSession(ctx context.Context, token string, identity *models.Identity, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for t, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, t)
		}
	}
	m.sessions[token] = entry{identity: *identity, expiresAt: now.Add(ttl)}
	return nil
}

// Len reports how many sessions are held, expired ones included until the next sweep
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// LoadSession returns the identity behind a token, or nil if it is unknown or expired
func (m *MemoryStore) LoadSession(ctx context.Context, token string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.sessions, token)
		return nil, nil
	}
	identity := e.identity
	return &identity, nil
}

// DeleteSession revokes a token
func (m *MemoryStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}
