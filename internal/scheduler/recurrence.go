package scheduler

import (
	"strings"
	"time"

	"github.com/facilix/building-maintenance/internal/models"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NextDue computes the first due date strictly derived from ref for a
// time-based recurrence config. Weekly schedules with specific days snap to
// the nearest future configured weekday; monthly schedules with specific
// dates clamp the day of month to 28 so short months never produce invalid
// dates. Unrecognized patterns fall back to one calendar month; validation
// is expected to reject them before they get here.
func NextDue(cfg models.TimeBasedConfig, ref time.Time) time.Time {
	interval := cfg.IntervalValue
	if interval < 1 {
		interval = 1
	}

	switch cfg.Pattern {
	case models.PatternDaily:
		return ref.AddDate(0, 0, interval)

	case models.PatternWeekly:
		if d, ok := nearestWeekday(cfg.SpecificDays, ref); ok {
			return d
		}
		return ref.AddDate(0, 0, 7*interval)

	case models.PatternMonthly:
		return clampToSpecificDate(addMonths(ref, interval), cfg.SpecificDates)

	case models.PatternQuarterly:
		return addMonths(ref, 3*interval)

	case models.PatternYearly:
		return addMonths(ref, 12*interval)

	default:
		return addMonths(ref, 1)
	}
}

// NextOccurrence advances a generation walk from the current occurrence to
// the next one. Unlike NextDue it never searches for the nearest weekday, so
// occurrence dates are strictly increasing by the full interval.
func NextOccurrence(cfg models.TimeBasedConfig, current time.Time) time.Time {
	interval := cfg.IntervalValue
	if interval < 1 {
		interval = 1
	}

	switch cfg.Pattern {
	case models.PatternDaily:
		return current.AddDate(0, 0, interval)
	case models.PatternWeekly:
		return current.AddDate(0, 0, 7*interval)
	case models.PatternMonthly:
		return clampToSpecificDate(addMonths(current, interval), cfg.SpecificDates)
	case models.PatternQuarterly:
		return addMonths(current, 3*interval)
	case models.PatternYearly:
		return addMonths(current, 12*interval)
	default:
		return addMonths(current, 1)
	}
}

// nearestWeekday finds the closest date strictly after ref whose weekday is
// one of the configured names, wrapping the week. Returns false when no name
// is recognized.
func nearestWeekday(names []string, ref time.Time) (time.Time, bool) {
	best := 0
	for _, name := range names {
		wd, ok := weekdayNames[normalizeDay(name)]
		if !ok {
			continue
		}
		delta := (int(wd) - int(ref.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		if best == 0 || delta < best {
			best = delta
		}
	}
	if best == 0 {
		return time.Time{}, false
	}
	return ref.AddDate(0, 0, best), true
}

// clampToSpecificDate moves t onto the earliest configured day of month,
// clamped to 28. The fixed clamp trades days 29-31 for validity in short
// months.
func clampToSpecificDate(t time.Time, dates []int) time.Time {
	if len(dates) == 0 {
		return t
	}
	day := dates[0]
	for _, d := range dates[1:] {
		if d < day {
			day = d
		}
	}
	if day > 28 {
		day = 28
	}
	if day < 1 {
		day = 1
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// addMonths adds calendar months, clamping the day to the last day of the
// target month instead of letting the date normalize into the next one
// (Jan 31 + 1 month is Feb 28/29, not Mar 2/3).
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := t.Day()
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func normalizeDay(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
