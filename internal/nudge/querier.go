package nudge

import (
	"context"

	"github.com/brk3/steady/pkg/habit"
)

type Querier interface {
	Summary(ctx context.Context) (habit.Summary, error)
}

// Notifier delivers a reminder listing habits whose streak breaks unless they
// are checked in today.
type Notifier interface {
	SendNudge(habits []habit.View) error
}
