package relevance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

// Wednesday noon
var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ts(d time.Duration) string {
	return now.Add(d).Format(time.RFC3339)
}

type fakeHistory []core.ConversationMessage

func (h fakeHistory) SentWithin(since time.Time, match func(string) bool) bool {
	for _, m := range h {
		if !m.ReceivedAt.Before(since) && match(m.Body) {
			return true
		}
	}
	return false
}

func evaluate(t *testing.T, in Input) Decision {
	t.Helper()
	if in.Now.IsZero() {
		in.Now = now
	}
	d, err := NewRules(config.DefaultPolicyConfig()).Evaluate(context.Background(), in)
	require.NoError(t, err)
	return d
}

func reasons(d Decision) map[string]Reason {
	out := make(map[string]Reason)
	for _, n := range d.Notifications {
		out[n.EntryID] = n.Reason
	}
	return out
}

func TestRules_TimerPredicates(t *testing.T) {
	in := Input{
		Trigger: core.TriggerEvent{Kind: core.TriggerTimer},
		Weather: &core.Weather{Condition: "thunderstorm", TemperatureC: 18, Anomalous: true},
		Entries: []core.VisibleEntry{
			{ID: "soon", Content: "Dentist appointment", RelevanceDate: ts(90 * time.Minute)},
			{ID: "later", Content: "Dinner with Anna", RelevanceDate: ts(5 * time.Hour)},
			{ID: "far", Content: "Concert", RelevanceDate: ts(30 * time.Hour)},
			{ID: "deadline", Content: "Submit tax return", Deadline: ts(20 * time.Hour)},
			{ID: "deadline-done", Content: "Renew passport", Deadline: ts(20 * time.Hour), LastNotified: ts(-5 * time.Hour)},
			{ID: "habit", Content: "Take vitamins", Recurrence: "daily 11:30"},
			{ID: "habit-later", Content: "Evening walk", Recurrence: "daily 19:00"},
			{ID: "flag", Content: "Call the landlord", Flagged: true},
			{ID: "overdue", Content: "Pick up dry cleaning", RelevanceDate: ts(-2 * time.Hour)},
			{ID: "today", Content: "Mother's day", RelevanceDate: "2024-05-01"},
			{ID: "place-only", Content: "Buy bread", Place: "Bakery"},
		},
	}

	d := evaluate(t, in)

	assert.Equal(t, map[string]Reason{
		"soon":     ReasonUpcoming,
		"later":    ReasonWeather,
		"deadline": ReasonDeadline,
		"habit":    ReasonHabit,
		"flag":     ReasonFlagged,
		"overdue":  ReasonOverdue,
		"today":    ReasonToday,
	}, reasons(d))

	for _, n := range d.Notifications {
		if n.EntryID == "soon" {
			assert.Equal(t, "Reminder: Dentist appointment at 13:30", n.Text)
		}
	}
}

func TestRules_CalendarWithinWindow(t *testing.T) {
	in := Input{
		Trigger: core.TriggerEvent{Kind: core.TriggerTimer},
		Calendar: []core.CalendarEvent{
			{Title: "Team sync", Start: now.Add(time.Hour)},
			{Title: "Board meeting", Start: now.Add(4 * time.Hour)},
		},
	}

	d := evaluate(t, in)

	require.Len(t, d.Notifications, 1)
	assert.Equal(t, "Upcoming: Team sync at 13:00", d.Notifications[0].Text)
	assert.Equal(t, ReasonCalendar, d.Notifications[0].Reason)
}

func TestRules_GeofenceOnlyPlaceScoped(t *testing.T) {
	entries := []core.VisibleEntry{
		{ID: "bread", Content: "Buy bread", Place: "Supermarket"},
		{ID: "soon", Content: "Dentist", RelevanceDate: ts(30 * time.Minute)},
	}

	d := evaluate(t, Input{
		Trigger:  core.TriggerEvent{Kind: core.TriggerGeofence, Place: "supermarket"},
		Location: core.Location{Place: "supermarket", Entered: true},
		Entries:  entries,
	})
	require.Len(t, d.Notifications, 1)
	assert.Equal(t, "You arrived at Supermarket: Buy bread", d.Notifications[0].Text)

	d = evaluate(t, Input{
		Trigger:  core.TriggerEvent{Kind: core.TriggerGeofence, Place: "Office"},
		Location: core.Location{Place: "Office", Entered: true},
		Entries:  entries,
	})
	assert.Empty(t, d.Notifications)
}

func TestRules_ChatYieldsNothing(t *testing.T) {
	d := evaluate(t, Input{
		Trigger: core.TriggerEvent{Kind: core.TriggerChat, Payload: "hi"},
		Entries: []core.VisibleEntry{{ID: "flag", Content: "x", Flagged: true}},
	})
	assert.True(t, d.Empty())
}

func TestGate_SuppressesRecentDuplicates(t *testing.T) {
	entries := []core.VisibleEntry{
		{ID: "plants", Content: "Water the plants", Flagged: true},
		{ID: "trash", Content: "Take out the trash", Flagged: true},
		{ID: "bins", Content: "take out trash", Flagged: true},
		{ID: "mail", Content: "Check the mail", Flagged: true, LastNotified: ts(-time.Hour)},
		{ID: "keys", Content: "Find the keys", Flagged: true},
	}

	in := Input{
		Trigger: core.TriggerEvent{Kind: core.TriggerTimer},
		Entries: entries,
		Sent:    []Sent{{Signature: "plants water", At: now.Add(-30 * time.Minute)}},
		History: fakeHistory{
			{SenderID: "tasker", Body: "Heads-up: Find the keys", ReceivedAt: now.Add(-time.Hour)},
		},
	}

	d := evaluate(t, in)

	require.Len(t, d.Notifications, 1)
	assert.Equal(t, "trash", d.Notifications[0].EntryID)
}

func TestGate_AllowsAfterWindow(t *testing.T) {
	in := Input{
		Now:     now,
		Entries: []core.VisibleEntry{{ID: "plants", Content: "Water the plants"}},
		Sent:    []Sent{{Signature: "plants water", At: now.Add(-3 * time.Hour)}},
	}
	d := Gate(in, Decision{Notifications: []Notification{
		{EntryID: "plants", Text: "Water the plants"},
		{EntryID: "ghost", Text: "Not in memory"},
	}}, 2*time.Hour)

	require.Len(t, d.Notifications, 1)
	assert.Equal(t, "plants water", d.Notifications[0].Signature)
}

func TestRecordSent_FoldsIntoOneNote(t *testing.T) {
	window := 2 * time.Hour
	first, replaced := RecordSent(nil, []Notification{
		{Signature: "plants water", Reason: ReasonFlagged},
		{Signature: "meeting  zeta", Reason: ReasonCalendar},
	}, now.Add(-30*time.Minute), window)
	assert.Empty(t, replaced)
	assert.Empty(t, first.ID)
	assert.Equal(t, core.EntrySystem, first.Type)

	first.ID = "log"
	legacy := core.MemoryEntry{ID: "old", Type: core.EntrySystem, Intent: "notified:bins out", CreatedAt: now.Add(-3 * time.Hour)}
	notes := []core.MemoryEntry{first, legacy, {ID: "run", Type: core.EntrySystem, Intent: "last-run"}}

	next, replaced := RecordSent(notes, []Notification{{Signature: "plants water"}}, now, window)
	require.Len(t, replaced, 1)
	assert.Equal(t, "old", replaced[0].ID)
	assert.Equal(t, "log", next.ID)
	assert.Equal(t, now, next.ModifiedAt)

	sent := SentFromNotes([]core.MemoryEntry{next})
	assert.ElementsMatch(t, []Sent{
		{Signature: "plants water", At: now},
		{Signature: "meeting zeta", At: now.Add(-30 * time.Minute)},
	}, sent)
}

func TestSentFromNotes_SingleSignatureNote(t *testing.T) {
	sent := SentFromNotes([]core.MemoryEntry{
		{Type: core.EntrySystem, Intent: "notified:plants water", CreatedAt: now},
		{Type: core.EntrySystem, Intent: "last-run"},
	})
	require.Len(t, sent, 1)
	assert.Equal(t, "plants water", sent[0].Signature)
	assert.Equal(t, now, sent[0].At)
}

func TestMachine_Transitions(t *testing.T) {
	ctx := context.Background()
	m := NewMachine("run-1")

	require.NoError(t, m.To(ctx, StateGathering))
	assert.Error(t, m.To(ctx, StateActing))
	require.NoError(t, m.To(ctx, StateEvaluating))
	require.NoError(t, m.To(ctx, StateActing))
	m.Finish(ctx)
	assert.Equal(t, StateDone, m.State())
	assert.Error(t, m.To(ctx, StateGathering))
}

func TestParseRecurrence(t *testing.T) {
	tests := []struct {
		in  string
		at  time.Time
		due bool
		ok  bool
	}{
		{"hourly", now, true, true},
		{"daily 11:30", now, true, true},
		{"daily 12:30", now, false, true},
		{"weekdays 11:15", now, true, true},
		{"weekends 11:15", now, false, true},
		{"weekly wed 12:00", now, true, true},
		{"weekly thu 12:00", now, false, true},
		{"daily 25:00", now, false, false},
		{"fortnightly", now, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sch, ok := ParseRecurrence(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.due, sch.Due(tt.at, time.Hour))
			}
		})
	}
}
