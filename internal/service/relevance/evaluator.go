// Package relevance decides which memories deserve a notification right now.
package relevance

import (
	"context"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

// Evaluator maps the gathered context of a run to a decision.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (Decision, error)
}

// History is the view of the conversation buffer used by the dedup gate.
type History interface {
	SentWithin(since time.Time, match func(body string) bool) bool
}

// Sent is a past notification recovered from a system note.
type Sent struct {
	Signature string
	At        time.Time
}

// Input is everything an evaluator may look at. Entries is the only source
// outbound text may be built from. Sent and Continuity come from system notes
// and must never be echoed.
type Input struct {
	Trigger  core.TriggerEvent
	Now      time.Time
	Location core.Location
	// Weather and Calendar are optional, nil when the provider is absent or failed.
	Weather  *core.Weather
	Calendar []core.CalendarEvent

	Entries    []core.VisibleEntry
	Sent       []Sent
	Continuity string
	History    History
	// Conversation is the rendered recent chat window.
	Conversation string
}

type Reason string

const (
	ReasonUpcoming Reason = "upcoming"
	ReasonToday    Reason = "today"
	ReasonPlace    Reason = "place"
	ReasonDeadline Reason = "deadline"
	ReasonHabit    Reason = "habit"
	ReasonWeather  Reason = "weather"
	ReasonFlagged  Reason = "flagged"
	ReasonOverdue  Reason = "overdue"
	ReasonCalendar Reason = "calendar"
	ReasonModel    Reason = "model"
)

// Notification is one user-visible message. EntryID is empty for calendar
// events, which do not live in the memory store.
type Notification struct {
	EntryID   string
	Signature string
	Reason    Reason
	Text      string
}

type Decision struct {
	Notifications []Notification
	// Creates are new entries proposed by the evaluator.
	Creates []core.MemoryEntry
}

func (d Decision) Empty() bool {
	return len(d.Notifications) == 0 && len(d.Creates) == 0
}
