package memory

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04",
}

var dateLayouts = []string{
	DateLayout,
	"02.01.2006",
}

var (
	clockRe    = regexp.MustCompile(`(?:^|\s)(?:(at|um)\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm|uhr)?$`)
	offsetRe   = regexp.MustCompile(`^in\s+(\d+|a|an|one|einer|einem|eine)\s+([a-zäöü]+)$`)
	weekdayMap = map[string]time.Weekday{
		"monday": time.Monday, "mon": time.Monday, "montag": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday, "dienstag": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday, "mittwoch": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday, "donnerstag": time.Thursday,
		"friday": time.Friday, "fri": time.Friday, "freitag": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday, "samstag": time.Saturday,
		"sunday": time.Sunday, "sun": time.Sunday, "sonntag": time.Sunday,
	}
)

// ParseEventTime parses an absolute ISO value. allDay is set for date-only
// values, which are returned at local midnight.
func ParseEventTime(value string, loc *time.Location) (t time.Time, allDay bool, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, false, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true, true
		}
	}
	return time.Time{}, false, false
}

// IsAbsolute reports whether value is already stored in canonical form.
func IsAbsolute(value string) bool {
	if _, err := time.Parse(time.RFC3339, value); err == nil {
		return true
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

// NormalizeDate resolves value relative to now and returns it as RFC3339,
// or as YYYY-MM-DD when no time of day is known. Empty input stays empty.
// ok is false when value cannot be understood.
func NormalizeDate(value string, now time.Time) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true
	}

	if t, allDay, ok := ParseEventTime(value, now.Location()); ok {
		return formatEvent(t, allDay), true
	}

	t, allDay, ok := parseRelative(strings.ToLower(value), now)
	if !ok {
		return "", false
	}
	return formatEvent(t, allDay), true
}

func formatEvent(t time.Time, allDay bool) string {
	if allDay {
		return t.Format(DateLayout)
	}
	return t.Truncate(time.Second).Format(time.RFC3339)
}

func parseRelative(v string, now time.Time) (time.Time, bool, bool) {
	v = strings.Join(strings.Fields(v), " ")

	hour, minute, hasClock, rest := splitClock(v)
	day := startOfDay(now)

	if rest == "" && hasClock {
		return at(day, hour, minute), false, true
	}

	switch rest {
	case "today", "heute":
	case "tonight", "heute abend":
		if !hasClock {
			hour, minute, hasClock = 20, 0, true
		}
	case "tomorrow", "morgen":
		day = day.AddDate(0, 0, 1)
	case "day after tomorrow", "übermorgen", "uebermorgen":
		day = day.AddDate(0, 0, 2)
	case "yesterday", "gestern":
		day = day.AddDate(0, 0, -1)
	case "next week", "nächste woche", "naechste woche":
		day = day.AddDate(0, 0, 7)
	default:
		if wd, ok := parseWeekday(rest); ok {
			ahead := (int(wd) - int(now.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			day = day.AddDate(0, 0, ahead)
			break
		}
		return parseOffset(rest, now, hour, minute, hasClock)
	}

	if hasClock {
		return at(day, hour, minute), false, true
	}
	return day, true, true
}

func parseOffset(v string, now time.Time, hour, minute int, hasClock bool) (time.Time, bool, bool) {
	m := offsetRe.FindStringSubmatch(v)
	if m == nil {
		return time.Time{}, false, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		n = 1
	}

	switch unit := m[2]; {
	case strings.HasPrefix(unit, "min"):
		return now.Add(time.Duration(n) * time.Minute), false, true
	case strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "stunde"):
		return now.Add(time.Duration(n) * time.Hour), false, true
	case strings.HasPrefix(unit, "day"), strings.HasPrefix(unit, "tag"):
		day := startOfDay(now).AddDate(0, 0, n)
		if hasClock {
			return at(day, hour, minute), false, true
		}
		return day, true, true
	case strings.HasPrefix(unit, "week"), strings.HasPrefix(unit, "woche"):
		day := startOfDay(now).AddDate(0, 0, 7*n)
		if hasClock {
			return at(day, hour, minute), false, true
		}
		return day, true, true
	}
	return time.Time{}, false, false
}

// splitClock strips a trailing time of day like "15:00", "at 3pm" or "um 15 uhr".
func splitClock(v string) (hour, minute int, ok bool, rest string) {
	m := clockRe.FindStringSubmatchIndex(v)
	if m == nil {
		return 0, 0, false, v
	}

	sub := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return v[m[2*i]:m[2*i+1]]
	}
	prefix, hh, mm, suffix := sub(1), sub(2), sub(3), sub(4)

	// A bare number is not a clock, "in 2 days" must keep its digits.
	if prefix == "" && mm == "" && suffix == "" {
		return 0, 0, false, v
	}

	hour, _ = strconv.Atoi(hh)
	if mm != "" {
		minute, _ = strconv.Atoi(mm)
	}
	switch suffix {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false, v
	}
	return hour, minute, true, strings.TrimSpace(v[:m[0]])
}

func parseWeekday(v string) (time.Weekday, bool) {
	for _, prefix := range []string{"next ", "on ", "this ", "am ", "nächsten ", "naechsten ", "kommenden "} {
		v = strings.TrimPrefix(v, prefix)
	}
	wd, ok := weekdayMap[v]
	return wd, ok
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func at(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}
