package core

import (
	"context"
	"time"
)

type EntryType string

const (
	EntrySystem       EntryType = "system"
	EntryInstructions EntryType = "instructions"
	EntryFact         EntryType = "fact"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntrySystem, EntryInstructions, EntryFact:
		return true
	}
	return false
}

// MemoryEntry is a typed record in the memory store.
//
// RelevanceDate and Deadline are ISO timestamps once the lifecycle policy has
// seen the entry; before that they may hold relative phrases like "tomorrow".
type MemoryEntry struct {
	ID            string    `json:"id"`
	Type          EntryType `json:"type"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
	RelevanceDate string    `json:"relevance_date,omitempty"`

	// Intent overrides the signature derived from Content.
	Intent string `json:"intent,omitempty"`
	// Place scopes the entry to a geofence.
	Place string `json:"place,omitempty"`
	// Recurrence marks a habit: "hourly", "daily 08:00", "weekdays 07:30", "weekly mon 18:00".
	Recurrence   string `json:"recurrence,omitempty"`
	Deadline     string `json:"deadline,omitempty"`
	Flagged      bool   `json:"flagged,omitempty"`
	LastNotified string `json:"last_notified,omitempty"`
}

func (e MemoryEntry) IsSystem() bool {
	return e.Type == EntrySystem
}

func (e MemoryEntry) IsRecurring() bool {
	return e.Recurrence != ""
}

// VisibleEntry is the projection of a non-system entry. Outbound text is only
// ever built from VisibleEntry values, so system notes cannot reach the user.
type VisibleEntry struct {
	ID            string
	Type          EntryType
	Content       string
	RelevanceDate string
	Place         string
	Recurrence    string
	Deadline      string
	Flagged       bool
	LastNotified  string
	Intent        string
	CreatedAt     time.Time
}

// Snapshot is the full memory list taken at the start of a run.
type Snapshot struct {
	entries []MemoryEntry
}

func NewSnapshot(entries []MemoryEntry) Snapshot {
	cp := make([]MemoryEntry, len(entries))
	copy(cp, entries)
	return Snapshot{entries: cp}
}

// All returns a copy of every entry, system notes included.
func (s Snapshot) All() []MemoryEntry {
	cp := make([]MemoryEntry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

func (s Snapshot) Len() int {
	return len(s.entries)
}

// Visible returns every non-system entry.
func (s Snapshot) Visible() []VisibleEntry {
	out := make([]VisibleEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.IsSystem() {
			continue
		}
		out = append(out, VisibleEntry{
			ID:            e.ID,
			Type:          e.Type,
			Content:       e.Content,
			RelevanceDate: e.RelevanceDate,
			Place:         e.Place,
			Recurrence:    e.Recurrence,
			Deadline:      e.Deadline,
			Flagged:       e.Flagged,
			LastNotified:  e.LastNotified,
			Intent:        e.Intent,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}

// Notes returns the system entries.
func (s Snapshot) Notes() []MemoryEntry {
	var out []MemoryEntry
	for _, e := range s.entries {
		if e.IsSystem() {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry with id.
func (s Snapshot) Find(id string) (MemoryEntry, bool) {
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return MemoryEntry{}, false
}

// MemoryStore is the external store the core reads and mutates.
type MemoryStore interface {
	Create(ctx context.Context, entry MemoryEntry) (MemoryEntry, error)
	List(ctx context.Context) ([]MemoryEntry, error)
	Update(ctx context.Context, entry MemoryEntry) error
	Delete(ctx context.Context, id string) error
}

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// Mutation is one planned change to the memory store.
type Mutation struct {
	Kind   MutationKind
	Entry  MemoryEntry
	Reason string
}

// BatchApplier is implemented by stores that can apply several mutations in
// one transaction.
type BatchApplier interface {
	ApplyBatch(ctx context.Context, mutations []Mutation) error
}
