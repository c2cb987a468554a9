package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
	"github.com/Alpha200/ha-ai-tasker/pkg/conv"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const (
	LangEnglish = "en"
	LangGerman  = "de"

	summaryHorizon = 24 * time.Hour
)

type Summary struct {
	Content   string    `json:"content"`
	Markdown  string    `json:"markdown"`
	Timestamp time.Time `json:"timestamp"`
	Language  string    `json:"language"`
}

type labels struct {
	title, upcoming, deadlines, habits, flagged, weather, allDay, calendar, empty, due, dateLayout string
}

var summaryLabels = map[string]labels{
	LangEnglish: {
		title: "Overview for", upcoming: "Next 24 hours", deadlines: "Deadlines", habits: "Habits",
		flagged: "Flagged", weather: "Weather", allDay: "all day", calendar: "calendar",
		empty: "Nothing planned for the next 24 hours.", due: "due", dateLayout: "Mon 02 Jan",
	},
	LangGerman: {
		title: "Übersicht für", upcoming: "Nächste 24 Stunden", deadlines: "Fristen", habits: "Gewohnheiten",
		flagged: "Markiert", weather: "Wetter", allDay: "ganztägig", calendar: "Kalender",
		empty: "In den nächsten 24 Stunden steht nichts an.", due: "fällig", dateLayout: "02.01.2006",
	},
}

// NormalizeLanguage maps "de-DE" to "de" and anything unknown to "en".
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if _, ok := summaryLabels[lang]; ok {
		return lang
	}
	return LangEnglish
}

// Summarize builds the user-facing digest. It only reads memory and does not
// wait for running dispatches.
func (d *Dispatcher) Summarize(ctx context.Context, lang string) (Summary, error) {
	lang = NormalizeLanguage(lang)
	now := d.now()
	logger := log.FromCtx(ctx)

	entries, err := d.deps.Store.List(ctx)
	if err != nil {
		return Summary{}, core.NewExternalServiceError(serviceStore, err)
	}
	snap := core.NewSnapshot(entries)

	var weather *core.Weather
	if d.deps.Weather != nil {
		if weather, err = d.deps.Weather.Current(ctx); err != nil {
			logger.Warn().Err(err).Msg("weather unavailable for summary")
			weather = nil
		}
	}
	var events []core.CalendarEvent
	if d.deps.Calendar != nil {
		if events, err = d.deps.Calendar.Upcoming(ctx, now, now.Add(summaryHorizon)); err != nil {
			logger.Warn().Err(err).Msg("calendar unavailable for summary")
			events = nil
		}
	}

	md := digest(snap.Visible(), events, weather, now, lang)
	if err := checkOutbound(md, snap.Notes()); err != nil {
		return Summary{}, err
	}

	return Summary{
		Content:   conv.MarkdownToPlain(md),
		Markdown:  md,
		Timestamp: now,
		Language:  lang,
	}, nil
}

type digestItem struct {
	at   time.Time
	line string
}

// digest renders visible entries only.
func digest(entries []core.VisibleEntry, events []core.CalendarEvent, weather *core.Weather, now time.Time, lang string) string {
	l, ok := summaryLabels[lang]
	if !ok {
		l = summaryLabels[LangEnglish]
	}
	loc := now.Location()
	horizon := now.Add(summaryHorizon)

	var upcoming []digestItem
	var deadlines, habits, flagged []string

	for _, e := range entries {
		if t, allDay, ok := memory.ParseEventTime(e.RelevanceDate, loc); ok {
			switch {
			case allDay && !t.After(now) && now.Before(t.AddDate(0, 0, 1)):
				upcoming = append(upcoming, digestItem{at: t, line: fmt.Sprintf("%s (%s)", e.Content, l.allDay)})
			case allDay && t.After(now) && t.Before(horizon):
				upcoming = append(upcoming, digestItem{at: t, line: fmt.Sprintf("%s: %s (%s)", t.Format(l.dateLayout), e.Content, l.allDay)})
			case !allDay && !t.Before(now) && t.Before(horizon):
				upcoming = append(upcoming, digestItem{at: t, line: fmt.Sprintf("%s %s", t.Format("15:04"), e.Content)})
			}
		}
		if t, _, ok := memory.ParseEventTime(e.Deadline, loc); ok && !t.Before(now) && t.Before(horizon) {
			deadlines = append(deadlines, fmt.Sprintf("%s (%s %s %s)", e.Content, l.due, t.Format(l.dateLayout), t.Format("15:04")))
		}
		if e.Recurrence != "" {
			habits = append(habits, fmt.Sprintf("%s (%s)", e.Content, e.Recurrence))
		}
		if e.Flagged {
			flagged = append(flagged, e.Content)
		}
	}
	for _, ev := range events {
		if ev.Start.Before(now) || !ev.Start.Before(horizon) {
			continue
		}
		start := ev.Start.In(loc)
		upcoming = append(upcoming, digestItem{at: start, line: fmt.Sprintf("%s %s (%s)", start.Format("15:04"), ev.Title, l.calendar)})
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].at.Before(upcoming[j].at) })

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s %s**\n", l.title, now.Format(l.dateLayout))

	if len(upcoming)+len(deadlines)+len(habits)+len(flagged) == 0 {
		sb.WriteString("\n")
		sb.WriteString(l.empty)
		sb.WriteString("\n")
	}

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n**%s**\n", title)
		for _, line := range lines {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}
	upLines := make([]string, 0, len(upcoming))
	for _, it := range upcoming {
		upLines = append(upLines, it.line)
	}
	section(l.upcoming, upLines)
	section(l.deadlines, deadlines)
	section(l.habits, habits)
	section(l.flagged, flagged)

	if weather != nil {
		fmt.Fprintf(&sb, "\n**%s**: %s, %.0f°C\n", l.weather, weather.Condition, weather.TemperatureC)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SummaryMarkdown is Summarize for chat commands.
func (d *Dispatcher) SummaryMarkdown(ctx context.Context, lang string) (string, error) {
	s, err := d.Summarize(ctx, lang)
	if err != nil {
		return "", err
	}
	return s.Markdown, nil
}
