package status

import (
	"testing"
	"time"

	"github.com/brk3/steady/pkg/habit"
)

func TestDerive(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		in   Input
		want habit.Status
	}{
		{"empty", Input{Type: habit.Routine, Progress: habit.Progress{Total: 30}, Now: now}, habit.StatusCheckIn},
		{"done today", Input{CompletedToday: true, Streak: 1, Type: habit.Routine, Now: now}, habit.StatusDailyAchieved},
		{"alive streak", Input{Streak: 4, Type: habit.Routine, Now: now}, habit.StatusOnTrack},
		{"challenge met", Input{Type: habit.Challenge, Progress: habit.Progress{Current: 10, Total: 10}, Now: now}, habit.StatusCompleted},
		{"challenge exceeded", Input{CompletedToday: true, Type: habit.Challenge, Progress: habit.Progress{Current: 12, Total: 10}, Now: now}, habit.StatusCompleted},
		{"challenge one short", Input{Streak: 9, Type: habit.Challenge, Progress: habit.Progress{Current: 9, Total: 10}, Now: now}, habit.StatusOnTrack},
		{"routine over goal is not completed", Input{CompletedToday: true, Type: habit.Routine, Progress: habit.Progress{Current: 31, Total: 30}, Now: now}, habit.StatusDailyAchieved},
		{"starts tomorrow", Input{NeverCompleted: true, StartsAt: tomorrow, Type: habit.Routine, Now: now}, habit.StatusUpcoming},
		{"started yesterday never done", Input{NeverCompleted: true, StartsAt: yesterday, Type: habit.Routine, Now: now}, habit.StatusCheckIn},
		{"no start known", Input{NeverCompleted: true, Type: habit.Routine, Now: now}, habit.StatusCheckIn},
		{"start ahead but already completed", Input{StartsAt: tomorrow, Streak: 1, Type: habit.Routine, Now: now}, habit.StatusOnTrack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.in); got != tt.want {
				t.Errorf("got %s want %s", got, tt.want)
			}
		})
	}
}
