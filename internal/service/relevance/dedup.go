package relevance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
)

const notePrefix = "notified:"

// RecordSent folds the notifications sent at now into the sent log, a single
// system note listing every signature sent within window. It returns the
// note to write and the older log notes it replaces. The returned note keeps
// the ID of the log it extends; a zero ID means it has to be created.
func RecordSent(notes []core.MemoryEntry, sent []Notification, now time.Time, window time.Duration) (core.MemoryEntry, []core.MemoryEntry) {
	var logs []core.MemoryEntry
	for _, n := range notes {
		if n.IsSystem() && strings.HasPrefix(n.Intent, notePrefix) {
			logs = append(logs, n)
		}
	}

	since := now.Add(-window)
	latest := make(map[string]time.Time)
	var order []string
	add := func(sig string, at time.Time) {
		if sig == "" || at.Before(since) {
			return
		}
		prev, ok := latest[sig]
		if !ok {
			order = append(order, sig)
		}
		if !ok || at.After(prev) {
			latest[sig] = at
		}
	}
	for _, s := range SentFromNotes(logs) {
		add(s.Signature, s.At)
	}
	for _, n := range sent {
		add(cleanSignature(n.Signature), now)
	}

	note := core.MemoryEntry{Type: core.EntrySystem, CreatedAt: now}
	var replaced []core.MemoryEntry
	if len(logs) > 0 {
		sort.SliceStable(logs, func(i, j int) bool {
			return logs[i].ModifiedAt.After(logs[j].ModifiedAt)
		})
		note = logs[0]
		replaced = logs[1:]
	}

	lines := make([]string, 0, len(order))
	labels := make([]string, 0, len(order))
	for _, sig := range order {
		at := latest[sig].Format(time.RFC3339)
		lines = append(lines, at+" "+sig)
		labels = append(labels, fmt.Sprintf("%s at %s", sig, at))
	}
	note.Intent = notePrefix + strings.Join(lines, "\n")
	note.Content = fmt.Sprintf("notified since %s: %s", since.Format(time.RFC3339), strings.Join(labels, "; "))
	note.ModifiedAt = now
	return note, replaced
}

// SentFromNotes recovers past notifications from the sent log. Lines without
// a timestamp take the note's creation time.
func SentFromNotes(notes []core.MemoryEntry) []Sent {
	var out []Sent
	for _, n := range notes {
		body, ok := strings.CutPrefix(n.Intent, notePrefix)
		if !ok {
			continue
		}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			at := n.CreatedAt
			if stamp, sig, found := strings.Cut(line, " "); found {
				if t, err := time.Parse(time.RFC3339, stamp); err == nil {
					at, line = t, strings.TrimSpace(sig)
				}
			}
			if line != "" {
				out = append(out, Sent{Signature: line, At: at})
			}
		}
	}
	return out
}

func cleanSignature(sig string) string {
	return strings.Join(strings.Fields(sig), " ")
}

// Gate drops notifications already sent inside window, notifications for
// entries that are not visible, and repeated signatures within one decision.
func Gate(in Input, d Decision, window time.Duration) Decision {
	visible := make(map[string]core.VisibleEntry, len(in.Entries))
	for _, e := range in.Entries {
		visible[e.ID] = e
	}

	since := in.Now.Add(-window)
	seen := make(map[string]struct{})
	out := Decision{Creates: d.Creates}

	for _, n := range d.Notifications {
		if n.Signature == "" {
			n.Signature = memory.IntentSignature(n.Text)
		}
		n.Signature = cleanSignature(n.Signature)
		if n.Signature == "" || strings.TrimSpace(n.Text) == "" {
			continue
		}
		if _, dup := seen[n.Signature]; dup {
			continue
		}

		if n.EntryID != "" {
			e, ok := visible[n.EntryID]
			if !ok {
				continue
			}
			if notifiedSince(e.LastNotified, since, in.Now.Location()) {
				continue
			}
		}
		if sentRecently(in, n, since) {
			continue
		}

		seen[n.Signature] = struct{}{}
		out.Notifications = append(out.Notifications, n)
	}
	return out
}

func sentRecently(in Input, n Notification, since time.Time) bool {
	for _, s := range in.Sent {
		if s.Signature == n.Signature && !s.At.Before(since) {
			return true
		}
	}
	if in.History == nil {
		return false
	}
	return in.History.SentWithin(since, func(body string) bool {
		return body == n.Text || containsTokens(memory.IntentSignature(body), n.Signature)
	})
}

func notifiedSince(value string, since time.Time, loc *time.Location) bool {
	t, _, ok := memory.ParseEventTime(value, loc)
	return ok && !t.Before(since)
}

// containsTokens reports whether every token of sig appears in body.
func containsTokens(body, sig string) bool {
	have := make(map[string]struct{})
	for _, tok := range strings.Fields(body) {
		have[tok] = struct{}{}
	}
	for _, tok := range strings.Fields(sig) {
		if _, ok := have[tok]; !ok {
			return false
		}
	}
	return sig != ""
}
