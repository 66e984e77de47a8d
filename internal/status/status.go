// Package status maps a habit's derived numbers to a display label.
package status

import (
	"time"

	"github.com/brk3/steady/pkg/habit"
)

type Input struct {
	CompletedToday bool
	Streak         int
	Type           habit.Type
	Progress       habit.Progress

	// NeverCompleted and StartsAt decide Upcoming: a habit that has not been
	// done yet and whose first occurrence is still ahead of Now.
	NeverCompleted bool
	StartsAt       time.Time
	Now            time.Time
}

// Derive is a flat decision table; the first matching row wins.
func Derive(in Input) habit.Status {
	switch {
	case in.NeverCompleted && !in.StartsAt.IsZero() && in.StartsAt.After(in.Now):
		return habit.StatusUpcoming
	case in.Type == habit.Challenge && in.Progress.Total > 0 && in.Progress.Current >= in.Progress.Total:
		return habit.StatusCompleted
	case in.CompletedToday:
		return habit.StatusDailyAchieved
	case in.Streak > 0:
		return habit.StatusOnTrack
	default:
		return habit.StatusCheckIn
	}
}
