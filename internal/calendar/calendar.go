// Package calendar computes day, week and month boundaries in a caller's
// timezone. Weeks start on Monday. All functions are pure: "now" is always
// passed in.
package calendar

import (
	"time"

	"github.com/brk3/steady/internal/logger"
)

// Location resolves an IANA zone name. An empty name means UTC. An unknown
// name also falls back to UTC, but is logged because it can move day
// boundaries and therefore streaks by up to a day.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("Unknown timezone, falling back to UTC", "timezone", tz, "error", err)
		return time.UTC
	}
	return loc
}

// Window is an instant bound to the zone its boundaries are computed in.
type Window struct {
	Now time.Time
	Loc *time.Location
}

func New(now time.Time, tz string) Window {
	loc := Location(tz)
	return Window{Now: now.In(loc), Loc: loc}
}

func (w Window) Today() time.Time {
	return StartOfDay(w.Now)
}

// Day truncates an instant to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t.In(loc))
}

// AddDays moves a day by n calendar days, keeping midnight across DST changes.
func AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	return AddDays(StartOfDay(t), 1).Add(-time.Nanosecond)
}

func StartOfWeek(t time.Time) time.Time {
	// Sunday is 0; shift so Monday is the first day.
	offset := (int(t.Weekday()) + 6) % 7
	return AddDays(StartOfDay(t), -offset)
}

func EndOfWeek(t time.Time) time.Time {
	return AddDays(StartOfWeek(t), 7).Add(-time.Nanosecond)
}

func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// DaysBetween counts whole calendar days from a to b (both day-truncated).
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
