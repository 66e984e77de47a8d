// Package progress counts completions toward a habit's goal.
//
// Progress is a raw completion count: several completions on one day all
// count. Over-completion is reported as-is, never clamped to the goal.
package progress

import (
	"time"

	"github.com/brk3/steady/internal/calendar"
	"github.com/brk3/steady/pkg/habit"
)

// Goal returns the target for a habit: the challenge length for challenges,
// the rolling routine goal otherwise.
func Goal(d *habit.Detail) int {
	if isChallenge(d) {
		return d.ChallengeLength
	}
	return habit.RoutineGoal
}

// Compute returns the (current, total) pair. now must be in the caller's
// timezone.
func Compute(h habit.Habit, d *habit.Detail, completions []habit.Completion, now time.Time) habit.Progress {
	loc := now.Location()
	today := calendar.StartOfDay(now)
	total := Goal(d)

	var from, to time.Time // [from, to)
	if isChallenge(d) {
		if anchor, ok := Anchor(h, d, loc); ok {
			from, to = anchor, calendar.AddDays(anchor, total)
		} else {
			from, to = calendar.AddDays(today, -(total - 1)), calendar.AddDays(today, 1)
		}
	} else {
		from, to = calendar.AddDays(today, -(habit.RoutineGoal - 1)), calendar.AddDays(today, 1)
	}

	current := 0
	for _, c := range completions {
		day := calendar.Day(c.CompletedAt, loc)
		if !day.Before(from) && day.Before(to) {
			current++
		}
	}
	return habit.Progress{Current: current, Total: total}
}

func isChallenge(d *habit.Detail) bool {
	return d != nil && d.Type == habit.Challenge && d.ChallengeLength > 0
}

// Anchor is the day a habit started: the schedule's start date when set,
// otherwise the day the habit was created. Challenges count from it.
func Anchor(h habit.Habit, d *habit.Detail, loc *time.Location) (time.Time, bool) {
	if d != nil && d.Schedule != nil && d.Schedule.StartDate != "" {
		if start, err := time.ParseInLocation(time.DateOnly, d.Schedule.StartDate, loc); err == nil {
			return start, true
		}
	}
	if !h.CreatedAt.IsZero() {
		return calendar.Day(h.CreatedAt, loc), true
	}
	return time.Time{}, false
}
