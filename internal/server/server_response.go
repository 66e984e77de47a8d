package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brk3/steady/pkg/habit"
)

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// HabitCreateRequest is a habit plus its optional detail. IsActive defaults
// to true when omitted.
type HabitCreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Frequency   habit.Frequency `json:"frequency"`
	TimeOfDay   string          `json:"time_of_day,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
	Detail      *habit.Detail   `json:"detail,omitempty"`
}

type HabitCreateResponse struct {
	Habit  habit.Habit   `json:"habit"`
	Detail *habit.Detail `json:"detail,omitempty"`
}

type HabitGetResponse struct {
	Habit         habit.View `json:"habit"`
	LongestStreak int        `json:"longest_streak"`
}

type CompletionRequest struct {
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Value       int        `json:"value,omitempty"`
}

type APIKeyCreateResponse struct {
	APIKey string `json:"api_key"`
}

type APIKeyInfo struct {
	KeyHash string `json:"key_hash"`
	Display string `json:"display"`
}

type APIKeyListResponse struct {
	Keys []APIKeyInfo `json:"keys"`
}
