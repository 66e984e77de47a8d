// Package streak derives streak lengths from a habit's completion log.
//
// Completions must be ordered newest first. Every calculation is a single
// backward pass over the log.
package streak

import (
	"slices"
	"time"

	"github.com/brk3/steady/internal/calendar"
	"github.com/brk3/steady/pkg/habit"
)

const (
	daysPerWeek  = 7
	daysPerMonth = 30 // deliberate approximation
)

// Current returns the live streak for freq, expressed in days. now must
// already be in the caller's timezone; completion days are taken in that zone.
func Current(completions []habit.Completion, freq habit.Frequency, now time.Time) int {
	switch freq {
	case habit.Daily:
		return daily(completions, now)
	case habit.Weekly:
		return windowed(completions, now, calendar.StartOfWeek, func(start time.Time, n int) time.Time {
			return calendar.AddDays(start, n*daysPerWeek)
		}) * daysPerWeek
	case habit.Monthly:
		return windowed(completions, now, calendar.StartOfMonth, func(start time.Time, n int) time.Time {
			return start.AddDate(0, n, 0)
		}) * daysPerMonth
	default:
		return 0
	}
}

// daily counts consecutive days ending today, or ending yesterday if today
// has not been checked in yet. Repeated completions on one day count once.
func daily(completions []habit.Completion, now time.Time) int {
	loc := now.Location()
	today := calendar.StartOfDay(now)
	yesterday := calendar.AddDays(today, -1)

	streak := 0
	var last time.Time
	for _, c := range completions {
		day := calendar.Day(c.CompletedAt, loc)
		if streak == 0 {
			if day.After(today) {
				continue
			}
			if !day.Equal(today) && !day.Equal(yesterday) {
				break
			}
		} else {
			if day.Equal(last) {
				continue
			}
			if !day.Equal(calendar.AddDays(last, -1)) {
				break
			}
		}
		streak++
		last = day
	}
	return streak
}

// windowed walks a period window (week or month) backwards from the current
// one. Each completion inside the window adds one, so several completions in
// the same period count more than once. This matches the long-standing
// dashboard numbers and is kept until product decides otherwise.
func windowed(completions []habit.Completion, now time.Time, startOf func(time.Time) time.Time, shift func(time.Time, int) time.Time) int {
	loc := now.Location()
	start := startOf(now)
	end := shift(start, 1) // exclusive

	count := 0
	hit := false
	for _, c := range completions {
		day := calendar.Day(c.CompletedAt, loc)
		if !day.Before(end) {
			continue
		}
		if day.Before(start) {
			if !hit {
				break
			}
			end = start
			start = shift(start, -1)
			hit = false
			if day.Before(start) {
				break
			}
		}
		count++
		hit = true
	}
	return count
}

// Longest returns the longest run of consecutive calendar days with at least
// one completion, regardless of whether the run is still alive.
func Longest(completions []habit.Completion, loc *time.Location) int {
	uniq := make(map[time.Time]struct{}, len(completions))
	for _, c := range completions {
		uniq[calendar.Day(c.CompletedAt, loc)] = struct{}{}
	}
	if len(uniq) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(uniq))
	for d := range uniq {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })

	longest, run := 1, 1
	for i := 0; i < len(days)-1; i++ {
		if calendar.DaysBetween(days[i+1], days[i]) == 1 {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}
	return longest
}
