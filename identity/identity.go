// Package identity persists the minimal client-side cart state: one opaque
// cart id under a fixed storage namespace. Everything else about the cart is
// server-owned and refetched.
package identity

import (
	"context"
	"sync"
)

// Store is the persistence port for the cart identity.
//
// Load returns an empty id (and no error) when nothing is stored. A stored
// id is only a hint: it is valid while the backend still resolves it, and
// the session clears it on stale detection.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Memory is a Store that does not survive the process. It is the default
// for tests and short-lived sessions.
type Memory struct {
	mu sync.Mutex
	id string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *Memory) Save(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	return nil
}
