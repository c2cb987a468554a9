package dispatcher

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

const (
	lastRunIntent    = "last-run"
	maxContinuityLen = 500
)

// continuity carries the previous run into the next one. In memory mode it
// lives in a system entry so it survives restarts. Rolling mode keeps it in
// the process only.
type continuity struct {
	mode string

	mu      sync.Mutex
	rolling string
}

func newContinuity(mode string) *continuity {
	if mode != config.ContinuityRolling {
		mode = config.ContinuityMemory
	}
	return &continuity{mode: mode}
}

// Previous returns the summary of the last successful run.
func (c *continuity) Previous(snap core.Snapshot) string {
	if c.mode == config.ContinuityRolling {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.rolling
	}
	if e, ok := findLastRun(snap.Notes()); ok {
		return e.Content
	}
	return ""
}

// Record stores the run summary. It returns the mutation to persist in
// memory mode, or nil.
func (c *continuity) Record(current []core.MemoryEntry, ev core.TriggerEvent, out core.RunOutcome, now time.Time) (update *core.Mutation, create *core.MemoryEntry) {
	summary := describeRun(ev, out, now)

	if c.mode == config.ContinuityRolling {
		c.mu.Lock()
		c.rolling = summary
		c.mu.Unlock()
		return nil, nil
	}

	if e, ok := findLastRun(current); ok {
		e.Content = summary
		e.ModifiedAt = now
		return &core.Mutation{Kind: core.MutationUpdate, Entry: e, Reason: "continuity"}, nil
	}
	return nil, &core.MemoryEntry{
		Type:       core.EntrySystem,
		Content:    summary,
		Intent:     lastRunIntent,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

func findLastRun(entries []core.MemoryEntry) (core.MemoryEntry, bool) {
	var found core.MemoryEntry
	ok := false
	for _, e := range entries {
		if e.IsSystem() && e.Intent == lastRunIntent && (!ok || e.ModifiedAt.After(found.ModifiedAt)) {
			found, ok = e, true
		}
	}
	return found, ok
}

func describeRun(ev core.TriggerEvent, out core.RunOutcome, now time.Time) string {
	sent := strings.ReplaceAll(strings.Join(out.Messages, " | "), "\n", " ")
	s := fmt.Sprintf("last run %s (%s trigger): %s, sent %d notification(s): %s",
		now.Format(time.RFC3339), ev.Kind, out.Outcome, len(out.Messages), sent)
	if r := []rune(s); len(r) > maxContinuityLen {
		s = string(r[:maxContinuityLen])
	}
	return s
}
