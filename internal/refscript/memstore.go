package refscript

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// Units keep their import order. The zero value is ready to use.
type MemStore struct {
	mu    sync.RWMutex
	units map[string]Unit
	order []string
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		units: make(map[string]Unit),
	}
}

// Add implements [Store.Add].
func (s *MemStore) Add(ctx context.Context, unit Unit) (Unit, error) {
	if unit.ID == "" {
		id, err := generateID()
		if err != nil {
			return Unit{}, fmt.Errorf("refscript: generate id: %w", err)
		}
		unit.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.units == nil {
		s.units = make(map[string]Unit)
	}

	if _, exists := s.units[unit.ID]; exists {
		return Unit{}, ErrDuplicateID
	}

	s.units[unit.ID] = unit
	s.order = append(s.order, unit.ID)
	return unit, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[id]
	if !ok {
		return Unit{}, ErrNotFound
	}
	return u, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context, opts ListOptions) ([]Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Unit, 0, len(s.order))
	for _, id := range s.order {
		u := s.units[id]
		if !matchesOpts(u, opts) {
			continue
		}
		result = append(result, u)
	}
	return result, nil
}

// Remove implements [Store.Remove].
func (s *MemStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[id]; !ok {
		return ErrNotFound
	}

	delete(s.units, id)
	s.order = slices.DeleteFunc(s.order, func(existing string) bool {
		return existing == id
	})
	return nil
}

// BulkImport implements [Store.BulkImport].
// Units are added one at a time; the count of successfully added units is
// returned along with the first error encountered.
func (s *MemStore) BulkImport(ctx context.Context, units []Unit) (int, error) {
	count := 0
	for _, u := range units {
		if _, err := s.Add(ctx, u); err != nil {
			return count, fmt.Errorf("refscript: bulk import at index %d (title %q): %w", count, u.Title, err)
		}
		count++
	}
	return count, nil
}

// generateID produces a random 16-byte hex string using crypto/rand.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// matchesOpts reports whether u satisfies all conditions in opts.
func matchesOpts(u Unit, opts ListOptions) bool {
	if opts.Language != "" && u.Language != opts.Language {
		return false
	}
	for _, want := range opts.Tags {
		if !slices.Contains(u.Tags, want) {
			return false
		}
	}
	return true
}
