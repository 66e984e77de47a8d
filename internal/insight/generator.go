// Package insight talks to the external service that writes narrative
// feedback about a habit. The service is opaque: the request carries a habit
// name and a completion rate, and the response text is stored verbatim.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brk3/steady/internal/calendar"
	"github.com/brk3/steady/internal/logger"
	"github.com/brk3/steady/internal/schedule"
	"github.com/brk3/steady/pkg/habit"
	"golang.org/x/oauth2/clientcredentials"
)

const requestTimeout = 30 * time.Second

// ErrDisabled is returned by a nil or unconfigured generator.
var ErrDisabled = errors.New("insight service not configured")

type Generator interface {
	Generate(ctx context.Context, habitName string, completionRate float64) (habit.Insight, error)
}

type Config struct {
	URL          string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

type HTTPGenerator struct {
	url  string
	http *http.Client
}

type request struct {
	HabitName      string  `json:"habit_name"`
	CompletionRate float64 `json:"completion_rate"`
}

type response struct {
	Analysis        string `json:"analysis"`
	Trends          string `json:"trends"`
	Recommendations string `json:"recommendations"`
	Conclusion      string `json:"conclusion"`
}

// NewHTTPGenerator builds a generator for cfg. With client credentials set,
// requests carry an OAuth2 bearer token fetched from TokenURL.
func NewHTTPGenerator(ctx context.Context, cfg Config) *HTTPGenerator {
	client := &http.Client{Timeout: requestTimeout}
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		client = cc.Client(ctx)
		client.Timeout = requestTimeout
	}
	return &HTTPGenerator{url: cfg.URL, http: client}
}

func (g *HTTPGenerator) Generate(ctx context.Context, habitName string, completionRate float64) (habit.Insight, error) {
	if g == nil || g.url == "" {
		return habit.Insight{}, ErrDisabled
	}

	body, err := json.Marshal(request{HabitName: habitName, CompletionRate: completionRate})
	if err != nil {
		return habit.Insight{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return habit.Insight{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Requesting habit insight", "habit_name", habitName, "completion_rate", completionRate)
	res, err := g.http.Do(req)
	if err != nil {
		return habit.Insight{}, fmt.Errorf("insight request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return habit.Insight{}, fmt.Errorf("insight request: %s", res.Status)
	}

	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return habit.Insight{}, fmt.Errorf("decode insight: %w", err)
	}
	return habit.Insight{
		CompletionRate:  completionRate,
		Analysis:        out.Analysis,
		Trends:          out.Trends,
		Recommendations: out.Recommendations,
		Conclusion:      out.Conclusion,
	}, nil
}

// CompletionRate is the percentage of scheduled days in the trailing window
// of days (ending today) that have at least one completion. The window never
// reaches back before started, the habit's first day; a zero started leaves
// it unbounded. A window with no scheduled days rates 0.
func CompletionRate(sched schedule.Schedule, completions []habit.Completion, now, started time.Time, days int) float64 {
	if days <= 0 {
		return 0
	}
	loc := now.Location()
	today := calendar.StartOfDay(now)
	from := calendar.AddDays(today, -(days - 1))
	if !started.IsZero() {
		if first := calendar.Day(started, loc); first.After(from) {
			from = first
		}
	}

	done := make(map[time.Time]bool, len(completions))
	for _, c := range completions {
		done[calendar.Day(c.CompletedAt, loc)] = true
	}

	expected, hit := 0, 0
	for day := from; !day.After(today); day = calendar.AddDays(day, 1) {
		if !sched.Expected(day) {
			continue
		}
		expected++
		if done[day] {
			hit++
		}
	}
	if expected == 0 {
		return 0
	}
	return float64(hit) * 100 / float64(expected)
}
