// Package schedule turns a stored habit schedule into a closed set of
// recurrence kinds.
//
// Habit.Frequency and ScheduleSpec.Repeat are not kept in sync by the write
// path. Frequency drives all streak and progress math (see FrequencyDays);
// Repeat only drives the human readable NextOccurrence text.
package schedule

import (
	"strings"
	"time"

	"github.com/brk3/steady/internal/calendar"
	"github.com/brk3/steady/internal/logger"
	"github.com/brk3/steady/pkg/habit"
)

const NotScheduled = "Not scheduled"

// MonthlyToken is the single frequency-day entry reported for monthly habits.
const MonthlyToken = "Monthly"

var weekDays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type Schedule interface {
	// NextOccurrence renders the next expected occurrence for display.
	NextOccurrence(now time.Time) string
	// Expected reports whether the calendar day is a scheduled occurrence.
	Expected(day time.Time) bool
	// Start returns the first scheduled instant in loc, if the schedule has a
	// start date.
	Start(loc *time.Location) (time.Time, bool)

	sealed()
}

type base struct {
	startDate string
	time      string
}

type Daily struct{ base }

type Weekly struct {
	base
	Days []string
}

type Monthly struct{ base }

type Unscheduled struct{}

// Parse interprets spec. timeOfDay is the habit's own time, used when the
// schedule does not carry one. Unknown repeat values yield Unscheduled.
func Parse(spec *habit.ScheduleSpec, timeOfDay string) Schedule {
	if spec == nil {
		return Unscheduled{}
	}
	b := base{startDate: spec.StartDate, time: spec.Time}
	if b.time == "" {
		b.time = timeOfDay
	}

	switch strings.ToLower(strings.TrimSpace(spec.Repeat)) {
	case "daily", "everyday":
		return Daily{b}
	case "weekly":
		return Weekly{base: b, Days: spec.SelectedDays}
	case "monthly":
		return Monthly{b}
	default:
		logger.Debug("Unrecognised schedule repeat", "repeat", spec.Repeat)
		return Unscheduled{}
	}
}

// FrequencyDays lists the weekday codes a habit is expected on, keyed by the
// habit's frequency rather than the schedule's repeat value.
func FrequencyDays(freq habit.Frequency, spec *habit.ScheduleSpec) []string {
	switch freq {
	case habit.Daily:
		return append([]string(nil), weekDays...)
	case habit.Weekly:
		if spec == nil || len(spec.SelectedDays) == 0 {
			return []string{}
		}
		return append([]string(nil), spec.SelectedDays...)
	case habit.Monthly:
		return []string{MonthlyToken}
	default:
		return []string{}
	}
}

func (b base) withTime(prefix string) string {
	if b.time == "" {
		return prefix
	}
	return prefix + ", " + b.time
}

func (b base) Start(loc *time.Location) (time.Time, bool) {
	if b.startDate == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(time.DateOnly, b.startDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	if tod, err := time.Parse("15:04", b.time); err == nil {
		d = time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)
	}
	return d, true
}

func (b base) sealed() {}

func (d Daily) NextOccurrence(time.Time) string { return d.withTime("Tomorrow") }

func (Daily) Expected(time.Time) bool { return true }

// NextOccurrence uses the first stored weekday as-is. It does not search for
// the nearest upcoming weekday, so multi-day schedules may read oddly.
func (w Weekly) NextOccurrence(time.Time) string {
	if len(w.Days) == 0 {
		return w.withTime("Weekly")
	}
	return w.withTime("Next " + w.Days[0])
}

// Expected is true for any day when no weekdays were selected.
func (w Weekly) Expected(day time.Time) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, code := range w.Days {
		if wd, ok := parseWeekday(code); ok && wd == day.Weekday() {
			return true
		}
	}
	return false
}

func (m Monthly) NextOccurrence(time.Time) string { return m.withTime("Monthly") }

// Expected matches the start date's day of month, clamped to short months.
// Without a start date the first of the month is used.
func (m Monthly) Expected(day time.Time) bool {
	want := 1
	if start, ok := m.Start(day.Location()); ok {
		want = start.Day()
	}
	last := calendar.EndOfMonth(day).Day()
	return day.Day() == min(want, last)
}

func (Unscheduled) NextOccurrence(time.Time) string { return NotScheduled }

func (Unscheduled) Expected(time.Time) bool { return false }

func (Unscheduled) Start(*time.Location) (time.Time, bool) { return time.Time{}, false }

func (Unscheduled) sealed() {}

func parseWeekday(code string) (time.Weekday, bool) {
	c := strings.ToLower(strings.TrimSpace(code))
	if len(c) < 2 {
		return 0, false
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.HasPrefix(strings.ToLower(wd.String()), c) {
			return wd, true
		}
	}
	return 0, false
}
