package credential

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Store.Get when no entry exists for the host.
var ErrNotFound = errors.New("credentials not found")

// Store persists credentials keyed by host. Remove is idempotent.
type Store interface {
	Get(ctx context.Context, host string) (*Entry, error)
	Save(ctx context.Context, host string, entry *Entry) error
	Remove(ctx context.Context, host string) error
}

// MemoryStore keeps credentials for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get returns a copy of the entry for host.
func (s *MemoryStore) Get(ctx context.Context, host string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[normalizeHost(host)]
	if !ok {
		return nil, ErrNotFound
	}
	return entry.Clone(), nil
}

// Save stores a copy of entry for host.
func (s *MemoryStore) Save(ctx context.Context, host string, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[normalizeHost(host)]; ok {
		old.Secret.Destroy()
	}
	s.entries[normalizeHost(host)] = entry.Clone()
	return nil
}

// Remove deletes the entry for host.
func (s *MemoryStore) Remove(ctx context.Context, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeHost(host)
	if old, ok := s.entries[key]; ok {
		old.Secret.Destroy()
		delete(s.entries, key)
	}
	return nil
}
