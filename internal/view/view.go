// Package view assembles the per-habit read model consumed by dashboards and
// the nudge command.
package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brk3/steady/internal/calendar"
	"github.com/brk3/steady/internal/logger"
	"github.com/brk3/steady/internal/progress"
	"github.com/brk3/steady/internal/schedule"
	"github.com/brk3/steady/internal/status"
	"github.com/brk3/steady/internal/streak"
	"github.com/brk3/steady/pkg/habit"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLookbackDays bounds every completion fetch. Streaks and challenge
	// progress only see this window, so with the default a daily streak tops
	// out at 31, a weekly one at 35 and a monthly one at 60. Widen it per
	// request with Request.LookbackDays.
	DefaultLookbackDays = 30
	defaultConcurrency  = 8
)

var ErrMissingOwner = errors.New("owner id is required")

// Store is the read side of habit storage.
type Store interface {
	FetchHabits(ctx context.Context, ownerID string) ([]habit.Habit, error)
	// FetchHabitDetail returns nil without error when the habit has no detail.
	FetchHabitDetail(ctx context.Context, ownerID, habitID string) (*habit.Detail, error)
	// FetchCompletions returns completions on or after since, newest first,
	// and an empty slice when there are none.
	FetchCompletions(ctx context.Context, ownerID, habitID string, since time.Time) ([]habit.Completion, error)
}

type Request struct {
	OwnerID  string
	Now      time.Time
	Timezone string
	// LookbackDays widens the completion window, e.g. for challenges longer
	// than the default. Zero uses the assembler default.
	LookbackDays int
}

type Assembler struct {
	store        Store
	lookbackDays int
	concurrency  int
}

func New(store Store, lookbackDays int) *Assembler {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Assembler{store: store, lookbackDays: lookbackDays, concurrency: defaultConcurrency}
}

func (a *Assembler) window(req Request) (calendar.Window, time.Time) {
	w := calendar.New(req.Now, req.Timezone)
	days := req.LookbackDays
	if days <= 0 {
		days = a.lookbackDays
	}
	return w, calendar.AddDays(w.Today(), -days)
}

// Summary derives a view for every active habit of the owner. A failure to
// load one habit's data degrades only that habit to its default view.
func (a *Assembler) Summary(ctx context.Context, req Request) (habit.Summary, error) {
	if req.OwnerID == "" {
		return habit.Summary{}, ErrMissingOwner
	}
	start := time.Now()
	defer func() { summaryDuration.Observe(time.Since(start).Seconds()) }()

	habits, err := a.store.FetchHabits(ctx, req.OwnerID)
	if err != nil {
		return habit.Summary{}, fmt.Errorf("fetch habits: %w", err)
	}

	active := make([]habit.Habit, 0, len(habits))
	for _, h := range habits {
		if h.IsActive {
			active = append(active, h)
		}
	}

	w, since := a.window(req)
	views := make([]habit.View, len(active))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, h := range active {
		i, h := i, h
		g.Go(func() error {
			v, _, err := a.derive(gctx, req.OwnerID, h, w, since)
			views[i] = v
			if err != nil {
				logger.Warn("Degrading habit view", "user_id", req.OwnerID, "habit_id", h.ID, "error", err)
				derivations.WithLabelValues("degraded").Inc()
				return nil
			}
			derivations.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return habit.Summary{}, err
	}

	logger.Debug("Assembled habit summary", "user_id", req.OwnerID, "total", len(habits), "active", len(active))
	return habit.Summary{Habits: views, Total: len(habits), Active: len(active)}, nil
}

// Habit derives the view for a single habit and also returns the completions
// it was derived from. Unlike Summary, fetch errors are returned.
func (a *Assembler) Habit(ctx context.Context, req Request, h habit.Habit) (habit.View, []habit.Completion, error) {
	if req.OwnerID == "" {
		return habit.View{}, nil, ErrMissingOwner
	}
	w, since := a.window(req)
	return a.derive(ctx, req.OwnerID, h, w, since)
}

// derive always returns a usable view; on error it is the default view.
func (a *Assembler) derive(ctx context.Context, ownerID string, h habit.Habit, w calendar.Window, since time.Time) (habit.View, []habit.Completion, error) {
	d, err := a.store.FetchHabitDetail(ctx, ownerID, h.ID)
	if err != nil {
		return Default(h, nil), nil, fmt.Errorf("fetch detail: %w", err)
	}
	completions, err := a.store.FetchCompletions(ctx, ownerID, h.ID, since)
	if err != nil {
		return Default(h, d), nil, fmt.Errorf("fetch completions: %w", err)
	}

	// Upcoming means never completed at all, not just outside the window.
	// The full log is only read when the schedule starts in the future.
	never := len(completions) == 0
	if never {
		if start, ok := schedule.Parse(scheduleOf(d), h.TimeOfDay).Start(w.Loc); ok && start.After(w.Now) {
			all, err := a.store.FetchCompletions(ctx, ownerID, h.ID, time.Time{})
			if err != nil {
				return Default(h, d), nil, fmt.Errorf("fetch completion history: %w", err)
			}
			never = len(all) == 0
		}
	}
	return deriveView(h, d, completions, w.Now, never), completions, nil
}

// Derive computes the view of one habit. now must be in the caller's zone.
// completions is taken to be the habit's whole log, so an empty slice means
// it was never completed.
func Derive(h habit.Habit, d *habit.Detail, completions []habit.Completion, now time.Time) habit.View {
	return deriveView(h, d, completions, now, len(completions) == 0)
}

func deriveView(h habit.Habit, d *habit.Detail, completions []habit.Completion, now time.Time, neverCompleted bool) habit.View {
	v := Default(h, d)

	sched := schedule.Parse(scheduleOf(d), h.TimeOfDay)
	today := calendar.StartOfDay(now)
	completedToday := false
	for _, c := range completions {
		if calendar.Day(c.CompletedAt, now.Location()).Equal(today) {
			completedToday = true
			break
		}
	}
	startsAt, _ := sched.Start(now.Location())

	v.Streak = streak.Current(completions, h.Frequency, now)
	v.Progress = progress.Compute(h, d, completions, now)
	v.Status = status.Derive(status.Input{
		CompletedToday: completedToday,
		Streak:         v.Streak,
		Type:           v.Type,
		Progress:       v.Progress,
		NeverCompleted: neverCompleted,
		StartsAt:       startsAt,
		Now:            now,
	})
	return v
}

// Default is the view of a habit with no usable completion data: no streak,
// no progress and a Check-in status. d may be nil.
func Default(h habit.Habit, d *habit.Detail) habit.View {
	v := habit.View{
		ID:             h.ID,
		Name:           h.Name,
		Status:         habit.StatusCheckIn,
		Progress:       habit.Progress{Current: 0, Total: progress.Goal(d)},
		Frequency:      h.Frequency,
		FrequencyDays:  schedule.FrequencyDays(h.Frequency, scheduleOf(d)),
		NextOccurrence: schedule.Parse(scheduleOf(d), h.TimeOfDay).NextOccurrence(time.Time{}),
		Type:           habit.Routine,
		IsActive:       h.IsActive,
		Tags:           []string{},
		CreatedAt:      h.CreatedAt,
	}
	if d != nil {
		if d.Type != "" {
			v.Type = d.Type
		}
		if d.Tags != nil {
			v.Tags = d.Tags
		}
	}
	return v
}

func scheduleOf(d *habit.Detail) *habit.ScheduleSpec {
	if d == nil {
		return nil
	}
	return d.Schedule
}
