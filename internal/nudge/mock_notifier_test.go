package nudge

import (
	"context"

	"github.com/brk3/steady/pkg/habit"
)

type mockClient struct {
	summary habit.Summary
	err     error
}

func (f *mockClient) Summary(ctx context.Context) (habit.Summary, error) {
	return f.summary, f.err
}

type mockNotifier struct {
	called bool
	habits []habit.View
	err    error
}

func (m *mockNotifier) SendNudge(habits []habit.View) error {
	m.called = true
	m.habits = habits
	return m.err
}
