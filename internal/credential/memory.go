package credential

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory. It survives nothing
// but is the default for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	release func()
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string, 2)}
}

// MemoryScopes hands out one MemoryStore per scope. Reopening a scope
// returns the same store until it is released.
type MemoryScopes struct {
	mu     sync.Mutex
	scopes map[string]*MemoryStore
}

// NewMemoryScopes returns an empty scope set.
func NewMemoryScopes() *MemoryScopes {
	return &MemoryScopes{scopes: make(map[string]*MemoryStore)}
}

// Open returns the store for scope, creating it on first use.
func (m *MemoryScopes) Open(scope string) (Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scopes[scope]
	if !ok {
		s = NewMemoryStore()
		s.release = func() { m.drop(scope, s) }
		m.scopes[scope] = s
	}
	return s, nil
}

// drop removes scope only while it still maps to s, so releasing a stale
// handle never discards a newer store.
func (m *MemoryScopes) drop(scope string, s *MemoryStore) {
	m.mu.Lock()
	if m.scopes[scope] == s {
		delete(m.scopes, scope)
	}
	m.mu.Unlock()
}

// Len is the number of open scopes.
func (m *MemoryScopes) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scopes)
}

// MemoryFactory returns a Factory over a fresh MemoryScopes.
func MemoryFactory() Factory { return NewMemoryScopes().Open }

// Release empties the store and detaches it from its scope set.
func (m *MemoryStore) Release() error {
	m.mu.Lock()
	clear(m.values)
	release := m.release
	m.release = nil
	m.mu.Unlock()
	if release != nil {
		release()
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}
