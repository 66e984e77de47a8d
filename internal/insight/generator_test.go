package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brk3/steady/internal/schedule"
	"github.com/brk3/steady/pkg/habit"
)

func insightServer(t *testing.T, wantAuth string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("got method %s want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Errorf("got Authorization %q want %q", got, wantAuth)
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.HabitName != "read" || req.CompletionRate != 75 {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{
			Analysis:        "Reading most days.",
			Trends:          "Weekends are weaker.",
			Recommendations: "Read before bed.",
			Conclusion:      "Keep going.",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	srv := insightServer(t, "")
	g := NewHTTPGenerator(context.Background(), Config{URL: srv.URL})

	got, err := g.Generate(context.Background(), "read", 75)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Analysis != "Reading most days." || got.Conclusion != "Keep going." || got.CompletionRate != 75 {
		t.Fatalf("unexpected insight %+v", got)
	}
}

func TestGenerate_ClientCredentials(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if gt := r.Form.Get("grant_type"); gt != "client_credentials" {
			t.Errorf("got grant_type %q", gt)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"svc-token","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenSrv.Close)

	srv := insightServer(t, "Bearer svc-token")
	g := NewHTTPGenerator(context.Background(), Config{
		URL:          srv.URL,
		ClientID:     "steady",
		ClientSecret: "secret",
		TokenURL:     tokenSrv.URL,
	})

	if _, err := g.Generate(context.Background(), "read", 75); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(context.Background(), Config{URL: srv.URL})
	if _, err := g.Generate(context.Background(), "read", 10); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestGenerate_Disabled(t *testing.T) {
	var g *HTTPGenerator
	if _, err := g.Generate(context.Background(), "read", 10); !errors.Is(err, ErrDisabled) {
		t.Fatalf("got %v want ErrDisabled", err)
	}
	g = NewHTTPGenerator(context.Background(), Config{})
	if _, err := g.Generate(context.Background(), "read", 10); !errors.Is(err, ErrDisabled) {
		t.Fatalf("got %v want ErrDisabled", err)
	}
}

func TestCompletionRate(t *testing.T) {
	// Wednesday.
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	on := func(days ...int) []habit.Completion {
		var out []habit.Completion
		for _, d := range days {
			out = append(out, habit.Completion{CompletedAt: now.AddDate(0, 0, -d)})
		}
		return out
	}

	daily := schedule.Parse(&habit.ScheduleSpec{Repeat: "daily"}, "")
	mondays := schedule.Parse(&habit.ScheduleSpec{Repeat: "weekly", SelectedDays: []string{"Mon"}}, "")

	tests := []struct {
		name        string
		sched       schedule.Schedule
		completions []habit.Completion
		started     time.Time
		days        int
		want        float64
	}{
		{"daily half", daily, on(0, 2, 4, 6, 8), time.Time{}, 10, 50},
		{"daily duplicates count once", daily, on(0, 0, 0), time.Time{}, 4, 25},
		{"daily outside window ignored", daily, on(20), time.Time{}, 10, 0},
		{"weekly mondays", mondays, on(2, 9), time.Time{}, 14, 100},
		{"weekly off-day completions ignored", mondays, on(1, 3), time.Time{}, 14, 0},
		{"unscheduled", schedule.Parse(nil, ""), on(0, 1), time.Time{}, 7, 0},
		{"empty window", daily, on(0), time.Time{}, 0, 0},
		{"new habit done every day", daily, on(0, 1), time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), 30, 100},
		{"new habit started today", daily, on(0), time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), 30, 100},
		{"new habit missed its first day", daily, on(0), time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), 30, 50},
		{"start before window keeps full window", daily, on(0, 2, 4, 6, 8), now.AddDate(0, 0, -60), 10, 50},
		{"new weekly habit before its first monday", mondays, on(1), time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompletionRate(tt.sched, tt.completions, now, tt.started, tt.days); got != tt.want {
				t.Errorf("got %v want %v", got, tt.want)
			}
		})
	}
}
