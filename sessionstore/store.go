// Package sessionstore persists the current session between process runs so
// a SessionManager can restore it on Initialize.
package sessionstore

import (
	"context"
	"sync"

	auth "github.com/goliatone/go-store-auth"
)

// Store keeps at most one session.
type Store interface {
	// Load returns nil without error when nothing is stored.
	Load(ctx context.Context) (*auth.Session, error)
	Save(ctx context.Context, session *auth.Session) error
	Clear(ctx context.Context) error
}

// MemoryStore is a process local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	session *auth.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*auth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, session *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session.Clone()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
