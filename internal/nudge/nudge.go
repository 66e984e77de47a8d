package nudge

import (
	"context"
	"fmt"

	"github.com/brk3/steady/internal/logger"
	"github.com/brk3/steady/pkg/habit"
)

// HabitsAtRisk returns the active habits that still have a live streak but
// nothing logged for today.
func HabitsAtRisk(ctx context.Context, q Querier) ([]habit.View, error) {
	summary, err := q.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch summary: %w", err)
	}

	var atRisk []habit.View
	for _, v := range summary.Habits {
		if v.IsActive && v.Status == habit.StatusOnTrack {
			atRisk = append(atRisk, v)
		}
	}
	return atRisk, nil
}

// Nudge sends one notification covering every habit at risk. Nothing is sent
// when there are none.
func Nudge(ctx context.Context, q Querier, n Notifier) (int, error) {
	atRisk, err := HabitsAtRisk(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(atRisk) == 0 {
		logger.Debug("No habits at risk, skipping nudge")
		return 0, nil
	}
	if err := n.SendNudge(atRisk); err != nil {
		return 0, fmt.Errorf("send nudge: %w", err)
	}
	logger.Info("Sent nudge", "habits", len(atRisk))
	return len(atRisk), nil
}
