package relevance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
)

const (
	clockLayout    = "15:04"
	deadlineLayout = "Mon 02 Jan 15:04"
	weatherHorizon = 12 * time.Hour
)

// Rules is the deterministic evaluator.
type Rules struct {
	cfg config.PolicyConfig
}

func NewRules(cfg config.PolicyConfig) *Rules {
	return &Rules{cfg: cfg}
}

func (r *Rules) Evaluate(_ context.Context, in Input) (Decision, error) {
	var d Decision
	switch in.Trigger.Kind {
	case core.TriggerGeofence:
		d = r.geofence(in)
	case core.TriggerTimer:
		d = r.timer(in)
	default:
		// Chat runs are answered by the responder.
		return Decision{}, nil
	}
	return Gate(in, d, r.cfg.DedupWindow), nil
}

// geofence only considers entries scoped to the place that changed.
func (r *Rules) geofence(in Input) Decision {
	place := in.Trigger.Place
	if place == "" {
		place = in.Location.Place
	}
	if place == "" {
		return Decision{}
	}

	verb := "arrived at"
	if !in.Location.Entered && strings.EqualFold(in.Location.Place, place) {
		verb = "left"
	}

	var d Decision
	for _, e := range in.Entries {
		if e.Place == "" || !strings.EqualFold(e.Place, place) {
			continue
		}
		d.Notifications = append(d.Notifications, Notification{
			EntryID:   e.ID,
			Signature: memory.VisibleSignature(e),
			Reason:    ReasonPlace,
			Text:      fmt.Sprintf("You %s %s: %s", verb, e.Place, e.Content),
		})
	}
	return d
}

// timer considers time-scoped and overdue items.
func (r *Rules) timer(in Input) Decision {
	var d Decision
	for _, e := range in.Entries {
		if n, ok := r.check(in, e); ok {
			d.Notifications = append(d.Notifications, n)
		}
	}

	loc := in.Now.Location()
	for _, ev := range in.Calendar {
		if ev.Start.Before(in.Now) || ev.Start.Sub(in.Now) > r.cfg.RelevanceWindow {
			continue
		}
		d.Notifications = append(d.Notifications, Notification{
			Signature: memory.IntentSignature(ev.Title),
			Reason:    ReasonCalendar,
			Text:      fmt.Sprintf("Upcoming: %s at %s", ev.Title, ev.Start.In(loc).Format(clockLayout)),
		})
	}
	return d
}

func (r *Rules) check(in Input, e core.VisibleEntry) (Notification, bool) {
	now := in.Now
	loc := now.Location()
	n := Notification{EntryID: e.ID, Signature: memory.VisibleSignature(e)}

	event, allDay, hasEvent := memory.ParseEventTime(e.RelevanceDate, loc)
	notified, _, wasNotified := memory.ParseEventTime(e.LastNotified, loc)

	switch {
	// overdue: passed, still inside the grace period and never announced
	case hasEvent && !allDay && event.Before(now) && now.Sub(event) <= r.cfg.EventGrace &&
		!wasNotified && e.Recurrence == "":
		n.Reason = ReasonOverdue
		n.Text = fmt.Sprintf("Overdue: %s (was due %s)", e.Content, event.Format(clockLayout))

	// a: event within the relevance window
	case hasEvent && !allDay && !event.Before(now) && event.Sub(now) <= r.cfg.RelevanceWindow:
		n.Reason = ReasonUpcoming
		n.Text = fmt.Sprintf("Reminder: %s at %s", e.Content, event.Format(clockLayout))

	// all-day items are announced once on their day
	case hasEvent && allDay && sameDay(event, now) && !(wasNotified && sameDay(notified, now)):
		n.Reason = ReasonToday
		n.Text = fmt.Sprintf("Today: %s", e.Content)

	// c: deadline imminent and not yet announced
	case r.deadlineDue(e, now) && !wasNotified:
		deadline, _, _ := memory.ParseEventTime(e.Deadline, loc)
		n.Reason = ReasonDeadline
		n.Text = fmt.Sprintf("Deadline approaching: %s (due %s)", e.Content, deadline.Format(deadlineLayout))

	// e: anomalous weather ahead of a planned event
	case in.Weather != nil && in.Weather.Anomalous && hasEvent && !event.Before(now) && event.Sub(now) <= weatherHorizon:
		n.Reason = ReasonWeather
		n.Text = fmt.Sprintf("Weather alert (%s, %.0f°C): %s at %s",
			in.Weather.Condition, in.Weather.TemperatureC, e.Content, formatEvent(event, allDay))

	// d: habit due
	case r.habitDue(e, now):
		n.Reason = ReasonHabit
		n.Text = fmt.Sprintf("Habit reminder: %s", e.Content)

	// f: explicitly flagged
	case e.Flagged:
		n.Reason = ReasonFlagged
		n.Text = fmt.Sprintf("Heads-up: %s", e.Content)

	default:
		return Notification{}, false
	}
	return n, true
}

func (r *Rules) deadlineDue(e core.VisibleEntry, now time.Time) bool {
	deadline, allDay, ok := memory.ParseEventTime(e.Deadline, now.Location())
	if !ok {
		return false
	}
	if allDay {
		deadline = deadline.AddDate(0, 0, 1)
	}
	return !deadline.Before(now) && deadline.Sub(now) <= r.cfg.DeadlineWindow
}

func (r *Rules) habitDue(e core.VisibleEntry, now time.Time) bool {
	sch, ok := ParseRecurrence(e.Recurrence)
	return ok && sch.Due(now, r.cfg.HabitWindow)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func formatEvent(t time.Time, allDay bool) string {
	if allDay {
		return t.Format("Mon 02 Jan")
	}
	return t.Format(clockLayout)
}
