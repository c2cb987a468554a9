// Package inmemory is a process-local memory store used by tests and by the
// "memory" backend.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]core.MemoryEntry
	now     func() time.Time

	// Unavailable makes every call fail with core.ErrStoreUnavailable.
	unavailable bool
}

func New() *Store {
	return &Store{
		entries: make(map[string]core.MemoryEntry),
		now:     time.Now,
	}
}

// Seed stores entries as given, keeping their ids and timestamps.
func (s *Store) Seed(entries ...core.MemoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.entries[e.ID] = e
	}
}

func (s *Store) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

func (s *Store) Create(_ context.Context, entry core.MemoryEntry) (core.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return core.MemoryEntry{}, core.ErrStoreUnavailable
	}
	if !entry.Type.Valid() {
		return core.MemoryEntry{}, &core.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", entry.Type)}
	}

	now := s.now()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ModifiedAt.IsZero() {
		entry.ModifiedAt = entry.CreatedAt
	}
	s.entries[entry.ID] = entry
	return entry, nil
}

// List returns every entry ordered by creation time.
func (s *Store) List(_ context.Context) ([]core.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable {
		return nil, core.ErrStoreUnavailable
	}

	out := make([]core.MemoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Update(_ context.Context, entry core.MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return core.ErrStoreUnavailable
	}
	if _, ok := s.entries[entry.ID]; !ok {
		return fmt.Errorf("entry %s not found", entry.ID)
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return core.ErrStoreUnavailable
	}
	delete(s.entries, id)
	return nil
}

// ApplyBatch applies all mutations or none of them.
func (s *Store) ApplyBatch(_ context.Context, mutations []core.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return core.ErrStoreUnavailable
	}

	next := make(map[string]core.MemoryEntry, len(s.entries))
	for k, v := range s.entries {
		next[k] = v
	}

	now := s.now()
	for _, m := range mutations {
		switch m.Kind {
		case core.MutationCreate:
			e := m.Entry
			if !e.Type.Valid() {
				return &core.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", e.Type)}
			}
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			if e.CreatedAt.IsZero() {
				e.CreatedAt = now
			}
			if e.ModifiedAt.IsZero() {
				e.ModifiedAt = e.CreatedAt
			}
			next[e.ID] = e
		case core.MutationUpdate:
			if _, ok := next[m.Entry.ID]; !ok {
				return fmt.Errorf("entry %s not found", m.Entry.ID)
			}
			next[m.Entry.ID] = m.Entry
		case core.MutationDelete:
			delete(next, m.Entry.ID)
		default:
			return fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	s.entries = next
	return nil
}
