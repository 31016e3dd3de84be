// Package cache keys every currency-denominated read by
// (entity kind, id or query, currency) and supports the unconditional purge
// a currency change requires: one currency's price must never render under
// another.
package cache

import (
	"sync"

	"github.com/merchkit/go-storefront/currency"
)

// Kind is the entity family of a cached read.
type Kind string

const (
	KindCart     Kind = "cart"
	KindCheckout Kind = "checkout"
	KindProduct  Kind = "product"
	KindListing  Kind = "listing"
)

// Key identifies one cached read result.
type Key struct {
	Kind     Kind
	Ref      string
	Currency string
}

// Store is the read-cache port.
type Store interface {
	Get(key Key) (any, bool)
	Set(key Key, value any)
	Delete(key Key)
	// DeleteRef drops every currency's entry for one entity.
	DeleteRef(kind Kind, ref string)
	// Purge drops everything. Correctness over refetch avoidance.
	Purge()
}

// Memory is the in-process Store. Cart and checkout entities are
// single-writer per session, so a process-local map is the default.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]any
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]any)}
}

func (m *Memory) Get(key Key) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Memory) Set(key Key, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

func (m *Memory) Delete(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *Memory) DeleteRef(kind Kind, ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.Kind == kind && k.Ref == ref {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[Key]any)
}

// BindCurrency purges s whenever cur changes and returns the unsubscribe
// func. A changed currency invalidates every entry even though no entity id
// changed.
func BindCurrency(s Store, cur *currency.Context) func() {
	return cur.Subscribe(func(string) {
		s.Purge()
	})
}
