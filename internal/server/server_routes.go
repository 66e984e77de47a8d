package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/brk3/steady/internal/calendar"
	"github.com/brk3/steady/internal/insight"
	"github.com/brk3/steady/internal/logger"
	"github.com/brk3/steady/internal/progress"
	"github.com/brk3/steady/internal/schedule"
	"github.com/brk3/steady/internal/storage"
	"github.com/brk3/steady/internal/streak"
	"github.com/brk3/steady/internal/view"
	"github.com/brk3/steady/pkg/habit"
	"github.com/brk3/steady/pkg/versioninfo"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxLookbackDays = 366

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	info := versioninfo.VersionInfo{
		Version:   versioninfo.Version,
		BuildDate: versioninfo.BuildDate,
	}
	if err := writeJSON(w, http.StatusOK, info); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

// viewRequest builds the time context for a request: the zone comes from
// ?tz=, then the X-Timezone header, then the configured default.
func (s *Server) viewRequest(r *http.Request, userID string) (view.Request, error) {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		tz = r.Header.Get("X-Timezone")
	}
	if tz == "" {
		tz = s.cfg.DefaultTimezone
	}
	req := view.Request{OwnerID: userID, Now: s.now(), Timezone: tz}

	if v := r.URL.Query().Get("lookback_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxLookbackDays {
			return req, fmt.Errorf("lookback_days must be between 1 and %d", maxLookbackDays)
		}
		req.LookbackDays = n
	}
	return req, nil
}

func (s *Server) lookbackDays(req view.Request) int {
	switch {
	case req.LookbackDays > 0:
		return req.LookbackDays
	case s.cfg.LookbackDays > 0:
		return s.cfg.LookbackDays
	default:
		return view.DefaultLookbackDays
	}
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		logger.Warn("Missing user ID for list habits")
		http.Error(w, `{"error":"user id is required"}`, http.StatusUnauthorized)
		return
	}
	req, err := s.viewRequest(r, userID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	summary, err := s.assembler.Summary(r.Context(), req)
	if err != nil {
		if errors.Is(err, view.ErrMissingOwner) {
			http.Error(w, `{"error":"user id is required"}`, http.StatusUnauthorized)
			return
		}
		logger.Error("Failed to assemble habit summary", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	UpdateActiveHabitsForUser(userID, summary.Active)
	logger.Debug("Listed habits", "user_id", userID, "total", summary.Total, "active", summary.Active)

	if err := writeJSON(w, http.StatusOK, summary); err != nil {
		logger.Error("Failed to serialize habit summary", "user_id", userID, "error", err)
	}
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusUnauthorized)
		return
	}
	var body HabitCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn("Invalid JSON in create habit request", "error", err)
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	now := s.now()
	h := habit.Habit{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        body.Name,
		Description: body.Description,
		Frequency:   body.Frequency,
		TimeOfDay:   body.TimeOfDay,
		IsActive:    body.IsActive == nil || *body.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Validate(); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
		return
	}
	if body.Detail != nil {
		if err := body.Detail.Validate(); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}
		if body.Detail.Tags == nil {
			body.Detail.Tags = []string{}
		}
	}

	if err := s.store.PutHabit(r.Context(), userID, h, body.Detail); err != nil {
		logger.Error("Failed to store habit", "user_id", userID, "habit_name", h.Name, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	logger.Info("Habit created", "user_id", userID, "habit_id", h.ID, "habit_name", h.Name)
	s.refreshActiveHabits(r, userID)

	if err := writeJSON(w, http.StatusCreated, HabitCreateResponse{Habit: h, Detail: body.Detail}); err != nil {
		logger.Error("Failed to serialize create habit response", "user_id", userID, "error", err)
	}
}

// ownedHabit loads the habit named in the URL, answering 404 itself when it
// does not belong to the caller.
func (s *Server) ownedHabit(w http.ResponseWriter, r *http.Request) (string, habit.Habit, bool) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusUnauthorized)
		return "", habit.Habit{}, false
	}

	h, err := s.store.GetHabit(r.Context(), userID, habitID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, `{"error":"habit not found"}`, http.StatusNotFound)
		return "", habit.Habit{}, false
	}
	if err != nil {
		logger.Error("Failed to load habit", "user_id", userID, "habit_id", habitID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return "", habit.Habit{}, false
	}
	return userID, h, true
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.ownedHabit(w, r)
	if !ok {
		return
	}
	req, err := s.viewRequest(r, userID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	v, completions, err := s.assembler.Habit(r.Context(), req, h)
	if err != nil {
		logger.Error("Failed to derive habit view", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	loc := calendar.New(req.Now, req.Timezone).Loc

	resp := HabitGetResponse{Habit: v, LongestStreak: streak.Longest(completions, loc)}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize get habit response", "user_id", userID, "habit_id", h.ID, "error", err)
	}
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.ownedHabit(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteHabit(r.Context(), userID, h.ID); err != nil {
		logger.Error("Failed to delete habit", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	logger.Info("Habit deleted", "user_id", userID, "habit_id", h.ID)
	s.refreshActiveHabits(r, userID)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addCompletion(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.ownedHabit(w, r)
	if !ok {
		return
	}

	var body CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	c := habit.Completion{HabitID: h.ID, CompletedAt: s.now(), Value: body.Value}
	if body.CompletedAt != nil {
		c.CompletedAt = *body.CompletedAt
	}
	if c.Value < 0 {
		http.Error(w, `{"error":"value must not be negative"}`, http.StatusBadRequest)
		return
	}
	if c.Value == 0 {
		c.Value = 1
	}

	if err := s.store.AddCompletion(r.Context(), userID, c); err != nil {
		logger.Error("Failed to store completion", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	completionsTotal.Inc()
	logger.Info("Completion recorded", "user_id", userID, "habit_id", h.ID, "completed_at", c.CompletedAt)

	if err := writeJSON(w, http.StatusCreated, c); err != nil {
		logger.Error("Failed to serialize completion", "user_id", userID, "habit_id", h.ID, "error", err)
	}
}

func (s *Server) generateInsight(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.ownedHabit(w, r)
	if !ok {
		return
	}
	if s.insights == nil {
		http.Error(w, `{"error":"insights are not configured"}`, http.StatusServiceUnavailable)
		return
	}
	req, err := s.viewRequest(r, userID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	d, err := s.store.FetchHabitDetail(r.Context(), userID, h.ID)
	if err != nil {
		logger.Error("Failed to load habit detail", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	_, completions, err := s.assembler.Habit(r.Context(), req, h)
	if err != nil {
		logger.Error("Failed to load completions", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}

	var stored *habit.ScheduleSpec
	if d != nil {
		stored = d.Schedule
	}
	win := calendar.New(req.Now, req.Timezone)
	started, _ := progress.Anchor(h, d, win.Loc)
	rate := insight.CompletionRate(schedule.Parse(stored, h.TimeOfDay), completions, win.Now, started, s.lookbackDays(req))

	in, err := s.insights.Generate(r.Context(), h.Name, rate)
	if err != nil {
		insightsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, insight.ErrDisabled) {
			http.Error(w, `{"error":"insights are not configured"}`, http.StatusServiceUnavailable)
			return
		}
		logger.Error("Insight generation failed", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"insight service error"}`, http.StatusBadGateway)
		return
	}
	in.HabitID = h.ID
	in.CompletionRate = rate
	in.GeneratedAt = req.Now

	if err := s.store.PutInsight(r.Context(), userID, in); err != nil {
		logger.Error("Failed to store insight", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	insightsTotal.WithLabelValues("ok").Inc()

	if err := writeJSON(w, http.StatusCreated, in); err != nil {
		logger.Error("Failed to serialize insight", "user_id", userID, "habit_id", h.ID, "error", err)
	}
}

func (s *Server) getInsight(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.ownedHabit(w, r)
	if !ok {
		return
	}
	in, err := s.store.GetInsight(r.Context(), userID, h.ID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, `{"error":"no insight generated yet"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("Failed to load insight", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusOK, in); err != nil {
		logger.Error("Failed to serialize insight", "user_id", userID, "habit_id", h.ID, "error", err)
	}
}

func (s *Server) refreshActiveHabits(r *http.Request, userID string) {
	habits, err := s.store.FetchHabits(r.Context(), userID)
	if err != nil {
		logger.Warn("Failed to update active habits metric", "user_id", userID, "error", err)
		return
	}
	active := 0
	for _, h := range habits {
		if h.IsActive {
			active++
		}
	}
	UpdateActiveHabitsForUser(userID, active)
}
