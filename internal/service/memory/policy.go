// Package memory enforces the lifecycle of memory entries: expiry, merging of
// duplicates, the cap on system notes and normalization of relative dates.
package memory

import (
	"sort"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

type Mode int

const (
	// Full runs every housekeeping step, used by timer triggers.
	Full Mode = iota
	// Passive only merges, caps system notes and normalizes dates.
	Passive
)

func (m Mode) String() string {
	if m == Passive {
		return "passive"
	}
	return "full"
}

const (
	reasonExpired    = "event passed"
	reasonStale      = "stale"
	reasonMerged     = "merged duplicate"
	reasonTruncated  = "system note limit"
	reasonNormalized = "normalized date"
)

// Plan is an ordered set of mutations and the entries left once it is applied.
type Plan struct {
	Mutations []core.Mutation
	Result    []core.MemoryEntry
}

func (p Plan) Empty() bool {
	return len(p.Mutations) == 0
}

func (p Plan) Deletes() int {
	return p.count(core.MutationDelete)
}

func (p Plan) count(kind core.MutationKind) int {
	n := 0
	for _, m := range p.Mutations {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

type Policy struct {
	cfg config.PolicyConfig
}

func NewPolicy(cfg config.PolicyConfig) *Policy {
	return &Policy{cfg: cfg}
}

func (p *Policy) Config() config.PolicyConfig {
	return p.cfg
}

type working struct {
	entry   core.MemoryEntry
	dirty   bool
	deleted bool
	isNew   bool
}

// Plan computes the mutations for entries at now.
func (p *Policy) Plan(entries []core.MemoryEntry, now time.Time, mode Mode) Plan {
	return p.plan(entries, nil, now, mode)
}

// PlanCreates adds new entries to the current set. A new entry duplicating
// an existing one updates the older entry instead of creating a second one.
func (p *Policy) PlanCreates(current, creates []core.MemoryEntry, now time.Time) Plan {
	return p.plan(current, creates, now, Passive)
}

func (p *Policy) plan(entries, creates []core.MemoryEntry, now time.Time, mode Mode) Plan {
	ws := make([]*working, 0, len(entries)+len(creates))
	for _, e := range entries {
		ws = append(ws, &working{entry: e})
	}
	for _, e := range creates {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.ModifiedAt.IsZero() {
			e.ModifiedAt = now
		}
		ws = append(ws, &working{entry: e, isNew: true})
	}

	var muts []core.Mutation
	del := func(w *working, reason string) {
		w.deleted = true
		if !w.isNew {
			muts = append(muts, core.Mutation{Kind: core.MutationDelete, Entry: w.entry, Reason: reason})
		}
	}

	// Dates are resolved up front so expiry and merging compare absolute values.
	// The resulting updates are emitted last.
	for _, w := range ws {
		if w.entry.IsSystem() {
			continue
		}
		if p.normalize(&w.entry, now) {
			w.dirty = true
		}
	}

	if mode == Full {
		for _, w := range ws {
			if w.deleted || w.entry.IsSystem() || w.entry.IsRecurring() {
				continue
			}
			if p.eventPassed(w.entry, now) {
				del(w, reasonExpired)
			}
		}

		for _, w := range ws {
			if w.deleted || w.isNew {
				continue
			}
			if p.stale(w.entry, now) {
				del(w, reasonStale)
			}
		}
	}

	merged := p.merge(ws, now, del)
	muts = append(muts, merged...)

	for _, w := range p.excessNotes(ws) {
		del(w, reasonTruncated)
	}

	var result []core.MemoryEntry
	for _, w := range ws {
		if w.deleted {
			continue
		}
		switch {
		case w.isNew:
			muts = append(muts, core.Mutation{Kind: core.MutationCreate, Entry: w.entry})
		case w.dirty:
			muts = append(muts, core.Mutation{Kind: core.MutationUpdate, Entry: w.entry, Reason: reasonNormalized})
		}
		result = append(result, w.entry)
	}

	return Plan{Mutations: muts, Result: result}
}

// normalize rewrites relative dates in place. Values that cannot be parsed
// are cleared rather than kept.
func (p *Policy) normalize(e *core.MemoryEntry, now time.Time) bool {
	changed := false
	for _, field := range []*string{&e.RelevanceDate, &e.Deadline} {
		if *field == "" {
			continue
		}
		norm, ok := NormalizeDate(*field, now)
		if !ok {
			norm = ""
		}
		if norm != *field {
			*field = norm
			changed = true
		}
	}
	return changed
}

// EventTime returns when the entry's event ends. Date-only values last the
// whole day.
func EventTime(e core.MemoryEntry, loc *time.Location) (time.Time, bool) {
	value := e.RelevanceDate
	if value == "" {
		value = e.Deadline
	}
	t, allDay, ok := ParseEventTime(value, loc)
	if !ok {
		return time.Time{}, false
	}
	if allDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

func (p *Policy) eventPassed(e core.MemoryEntry, now time.Time) bool {
	end, ok := EventTime(e, now.Location())
	if !ok {
		return false
	}
	return now.Sub(end) > p.cfg.EventGrace
}

func (p *Policy) stale(e core.MemoryEntry, now time.Time) bool {
	switch e.Type {
	case core.EntryInstructions:
		if e.IsRecurring() {
			return false
		}
		return now.Sub(lastTouched(e)) >= p.cfg.InstructionTTL
	case core.EntrySystem:
		return now.Sub(lastTouched(e)) >= p.cfg.SystemTTL
	}
	return false
}

func lastTouched(e core.MemoryEntry) time.Time {
	if e.ModifiedAt.After(e.CreatedAt) {
		return e.ModifiedAt
	}
	return e.CreatedAt
}

type mergeKey struct {
	typ       core.EntryType
	signature string
	date      string
}

// merge collapses entries of the same type with equal signature and date.
// The oldest entry survives and takes the newest content.
func (p *Policy) merge(ws []*working, now time.Time, del func(*working, string)) []core.Mutation {
	groups := make(map[mergeKey][]*working)
	var order []mergeKey
	for _, w := range ws {
		if w.deleted || w.entry.IsSystem() {
			continue
		}
		sig := EntrySignature(w.entry)
		if sig == "" {
			continue
		}
		k := mergeKey{typ: w.entry.Type, signature: sig, date: dateKey(w.entry.RelevanceDate)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], w)
	}

	var muts []core.Mutation
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			return older(group[i], group[j])
		})

		keep := group[0]
		newest := group[len(group)-1]
		merged := keep.entry
		merged.Content = newest.entry.Content
		merged.ModifiedAt = now
		for _, w := range group[1:] {
			absorb(&merged, w.entry)
			del(w, reasonMerged)
		}
		keep.entry = merged

		if keep.isNew {
			continue
		}
		keep.dirty = false
		muts = append(muts, core.Mutation{Kind: core.MutationUpdate, Entry: merged, Reason: reasonMerged})
	}
	return muts
}

// older orders existing entries before new ones, then by creation time.
func older(a, b *working) bool {
	if a.isNew != b.isNew {
		return !a.isNew
	}
	if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
		return a.entry.CreatedAt.Before(b.entry.CreatedAt)
	}
	return a.entry.ID < b.entry.ID
}

func absorb(dst *core.MemoryEntry, src core.MemoryEntry) {
	dst.Flagged = dst.Flagged || src.Flagged
	if dst.Place == "" {
		dst.Place = src.Place
	}
	if dst.Recurrence == "" {
		dst.Recurrence = src.Recurrence
	}
	if dst.Deadline == "" {
		dst.Deadline = src.Deadline
	}
	if dst.RelevanceDate == "" {
		dst.RelevanceDate = src.RelevanceDate
	}
	if src.LastNotified > dst.LastNotified {
		dst.LastNotified = src.LastNotified
	}
}

// excessNotes returns the system entries beyond the configured limit. Notes
// touched least recently go first, so rewritten notes such as the sent log
// and the last run survive.
func (p *Policy) excessNotes(ws []*working) []*working {
	var notes []*working
	for _, w := range ws {
		if !w.deleted && w.entry.IsSystem() {
			notes = append(notes, w)
		}
	}
	if len(notes) <= p.cfg.MaxSystemEntries {
		return nil
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return lastTouched(notes[i].entry).After(lastTouched(notes[j].entry))
	})
	return notes[p.cfg.MaxSystemEntries:]
}
