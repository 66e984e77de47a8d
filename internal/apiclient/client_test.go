package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brk3/steady/pkg/habit"
)

func TestSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/habits/" {
			t.Errorf("got path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hab_live_abc" {
			t.Errorf("got Authorization %q", got)
		}
		if got := r.Header.Get("X-Timezone"); got != "Europe/Dublin" {
			t.Errorf("got X-Timezone %q", got)
		}
		_ = json.NewEncoder(w).Encode(habit.Summary{
			Habits: []habit.View{{ID: "a", Name: "read", Status: habit.StatusOnTrack, Streak: 2}},
			Total:  1,
			Active: 1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "hab_live_abc")
	c.Timezone = "Europe/Dublin"
	got, err := c.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(got.Habits) != 1 || got.Habits[0].Status != habit.StatusOnTrack {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestAddCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/habits/h-1/completions" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(habit.Completion{HabitID: "h-1", Value: 1})
	}))
	defer srv.Close()

	got, err := New(srv.URL, "").AddCompletion(context.Background(), "h-1")
	if err != nil {
		t.Fatalf("AddCompletion: %v", err)
	}
	if got.HabitID != "h-1" {
		t.Fatalf("got %+v", got)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "").Summary(context.Background()); err == nil {
		t.Fatal("expected error on 401")
	}
}
