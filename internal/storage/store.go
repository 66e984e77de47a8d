package storage

import (
	"context"
	"errors"

	"github.com/brk3/steady/internal/view"
	"github.com/brk3/steady/pkg/habit"
	"golang.org/x/oauth2"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	view.Store

	// PutHabit writes the habit and, when d is non-nil, its detail in one
	// transaction.
	PutHabit(ctx context.Context, ownerID string, h habit.Habit, d *habit.Detail) error
	// GetHabit returns ErrNotFound when the owner has no such habit.
	GetHabit(ctx context.Context, ownerID, habitID string) (habit.Habit, error)
	// DeleteHabit removes the habit with its detail, completions and insight.
	DeleteHabit(ctx context.Context, ownerID, habitID string) error
	AddCompletion(ctx context.Context, ownerID string, c habit.Completion) error

	PutInsight(ctx context.Context, ownerID string, in habit.Insight) error
	GetInsight(ctx context.Context, ownerID, habitID string) (habit.Insight, error)

	PutAPIKey(keyHash, userID string) error
	GetAPIKey(keyHash string) (string, bool, error)
	ListAPIKeyHashes(userID string) ([]string, error)
	DeleteAPIKey(keyHash string) error

	PutRefreshToken(userID string, tok *oauth2.Token) error
	GetRefreshToken(userID string) (*oauth2.Token, bool, error)
	DeleteRefreshToken(userID string) error

	Close() error
}
