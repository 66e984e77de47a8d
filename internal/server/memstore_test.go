package server

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/brk3/steady/internal/storage"
	"github.com/brk3/steady/pkg/habit"
	"golang.org/x/oauth2"
)

type memStore struct {
	mu          sync.RWMutex
	habits      map[string]map[string]habit.Habit
	details     map[string]*habit.Detail
	completions map[string][]habit.Completion
	insights    map[string]habit.Insight
	apiKeys     map[string]string
	tokens      map[string]*oauth2.Token
}

func newMemStore() *memStore {
	return &memStore{
		habits:      map[string]map[string]habit.Habit{},
		details:     map[string]*habit.Detail{},
		completions: map[string][]habit.Completion{},
		insights:    map[string]habit.Insight{},
		apiKeys:     map[string]string{},
		tokens:      map[string]*oauth2.Token{},
	}
}

func key(userID, habitID string) string { return userID + "/" + habitID }

func (m *memStore) PutHabit(_ context.Context, userID string, h habit.Habit, d *habit.Detail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.habits[userID] == nil {
		m.habits[userID] = map[string]habit.Habit{}
	}
	m.habits[userID][h.ID] = h
	if d != nil {
		d.HabitID = h.ID
		m.details[key(userID, h.ID)] = d
	}
	return nil
}

func (m *memStore) GetHabit(_ context.Context, userID, habitID string) (habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.habits[userID][habitID]
	if !ok {
		return habit.Habit{}, storage.ErrNotFound
	}
	return h, nil
}

func (m *memStore) FetchHabits(_ context.Context, userID string) ([]habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []habit.Habit{}
	for _, h := range m.habits[userID] {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b habit.Habit) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *memStore) FetchHabitDetail(_ context.Context, userID, habitID string) (*habit.Detail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.details[key(userID, habitID)], nil
}

func (m *memStore) AddCompletion(_ context.Context, userID string, c habit.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(userID, c.HabitID)
	m.completions[k] = append(m.completions[k], c)
	return nil
}

func (m *memStore) FetchCompletions(_ context.Context, userID, habitID string, since time.Time) ([]habit.Completion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []habit.Completion{}
	for _, c := range m.completions[key(userID, habitID)] {
		if !c.CompletedAt.Before(since) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b habit.Completion) int { return b.CompletedAt.Compare(a.CompletedAt) })
	return out, nil
}

func (m *memStore) DeleteHabit(_ context.Context, userID, habitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(userID, habitID)
	delete(m.habits[userID], habitID)
	delete(m.details, k)
	delete(m.completions, k)
	delete(m.insights, k)
	return nil
}

func (m *memStore) PutInsight(_ context.Context, userID string, in habit.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insights[key(userID, in.HabitID)] = in
	return nil
}

func (m *memStore) GetInsight(_ context.Context, userID, habitID string) (habit.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.insights[key(userID, habitID)]
	if !ok {
		return habit.Insight{}, storage.ErrNotFound
	}
	return in, nil
}

func (m *memStore) PutAPIKey(keyHash, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiKeys[keyHash] = userID
	return nil
}

func (m *memStore) GetAPIKey(keyHash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userID, ok := m.apiKeys[keyHash]
	return userID, ok, nil
}

func (m *memStore) ListAPIKeyHashes(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []string{}
	for h, u := range m.apiKeys {
		if u == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) DeleteAPIKey(keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.apiKeys, keyHash)
	return nil
}

func (m *memStore) PutRefreshToken(userID string, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[userID] = tok
	return nil
}

func (m *memStore) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[userID]
	return tok, ok, nil
}

func (m *memStore) DeleteRefreshToken(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, userID)
	return nil
}

func (m *memStore) Close() error {
	return nil
}

var _ storage.Store = (*memStore)(nil)
