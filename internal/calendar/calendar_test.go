package calendar

import (
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	return loc
}

func TestLocation_Fallbacks(t *testing.T) {
	if Location("") != time.UTC {
		t.Error("empty timezone should resolve to UTC")
	}
	if Location("Mars/Olympus_Mons") != time.UTC {
		t.Error("unknown timezone should resolve to UTC")
	}
}

func TestStartOfWeek_MondayStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2024, 3, 17, 23, 59, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"across month", time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartOfWeek(tt.in); !got.Equal(tt.want) {
				t.Errorf("StartOfWeek(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEndBoundaries(t *testing.T) {
	now := time.Date(2024, 2, 14, 10, 30, 0, 0, time.UTC)

	if got, want := EndOfDay(now), time.Date(2024, 2, 14, 23, 59, 59, 999999999, time.UTC); !got.Equal(want) {
		t.Errorf("EndOfDay = %v, want %v", got, want)
	}
	if got, want := EndOfWeek(now), time.Date(2024, 2, 18, 23, 59, 59, 999999999, time.UTC); !got.Equal(want) {
		t.Errorf("EndOfWeek = %v, want %v", got, want)
	}
	if got, want := StartOfMonth(now), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("StartOfMonth = %v, want %v", got, want)
	}
	// leap year
	if got, want := EndOfMonth(now), time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC); !got.Equal(want) {
		t.Errorf("EndOfMonth = %v, want %v", got, want)
	}
}

func TestDay_UsesCallerTimezone(t *testing.T) {
	la := mustLoad(t, "America/Los_Angeles")
	// 23:30 in Los Angeles is 06:30 UTC the following day.
	instant := time.Date(2024, 6, 10, 23, 30, 0, 0, la)

	local := Day(instant, la)
	utc := Day(instant, time.UTC)

	if local.Day() != 10 {
		t.Errorf("local day = %d, want 10", local.Day())
	}
	if utc.Day() != 11 {
		t.Errorf("utc day = %d, want 11", utc.Day())
	}
}

func TestAddDays_AcrossDST(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	// Clocks go forward on 2024-03-10.
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, ny)
	prev := AddDays(day, -1)
	if prev.Day() != 10 || prev.Hour() != 0 {
		t.Errorf("AddDays across DST = %v, want 2024-03-10 00:00", prev)
	}
	if got := DaysBetween(prev, day); got != 1 {
		t.Errorf("DaysBetween = %d, want 1", got)
	}
}

func TestNew_BindsZone(t *testing.T) {
	la := mustLoad(t, "America/Los_Angeles")
	now := time.Date(2024, 6, 11, 6, 0, 0, 0, time.UTC)
	w := New(now, "America/Los_Angeles")
	if w.Loc.String() != la.String() {
		t.Fatalf("got zone %s", w.Loc)
	}
	if w.Today().Day() != 10 {
		t.Errorf("today = %v, want June 10 in Los Angeles", w.Today())
	}
}
