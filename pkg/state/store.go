package state

import (
	"context"
	"sync"
)

// Store persists the single poll watermark across connector invocations.
// Semantics are get-then-set; there is no compare-and-swap.
type Store interface {
	// GetLastRun returns the watermark in epoch milliseconds. The boolean is
	// false when no watermark has been stored yet.
	GetLastRun(ctx context.Context) (int64, bool, error)
	// SetLastRun stores the watermark in epoch milliseconds.
	SetLastRun(ctx context.Context, millis int64) error
}

// MemoryStore is an in-process Store for tests and embedded use.
type MemoryStore struct {
	mu      sync.Mutex
	lastRun int64
	set     bool
}

// NewMemoryStore creates an empty in-memory watermark store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) GetLastRun(_ context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.set, nil
}

func (s *MemoryStore) SetLastRun(_ context.Context, millis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = millis
	s.set = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
