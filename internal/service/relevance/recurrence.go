package relevance

import (
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed recurrence such as "daily 08:00".
type Schedule struct {
	Every  string
	Day    time.Weekday
	Hour   int
	Minute int
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseRecurrence understands "hourly", "daily HH:MM", "weekdays HH:MM",
// "weekends HH:MM" and "weekly <day> HH:MM".
func ParseRecurrence(s string) (Schedule, bool) {
	f := strings.Fields(strings.ToLower(s))
	if len(f) == 0 {
		return Schedule{}, false
	}

	sch := Schedule{Every: f[0]}
	switch f[0] {
	case "hourly":
		return sch, len(f) == 1
	case "daily", "weekdays", "weekends":
		if len(f) != 2 {
			return Schedule{}, false
		}
		return withClock(sch, f[1])
	case "weekly":
		if len(f) != 3 {
			return Schedule{}, false
		}
		wd, ok := weekdays[f[1]]
		if !ok {
			return Schedule{}, false
		}
		sch.Day = wd
		return withClock(sch, f[2])
	}
	return Schedule{}, false
}

func withClock(sch Schedule, clock string) (Schedule, bool) {
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return Schedule{}, false
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return Schedule{}, false
	}
	sch.Hour, sch.Minute = h, m
	return sch, true
}

// Due reports whether now falls in [occurrence, occurrence+window).
func (s Schedule) Due(now time.Time, window time.Duration) bool {
	if s.Every == "hourly" {
		return true
	}

	switch s.Every {
	case "weekdays":
		if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	case "weekends":
		if wd := now.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return false
		}
	case "weekly":
		if now.Weekday() != s.Day {
			return false
		}
	}

	y, mo, d := now.Date()
	start := time.Date(y, mo, d, s.Hour, s.Minute, 0, 0, now.Location())
	return !now.Before(start) && now.Before(start.Add(window))
}
