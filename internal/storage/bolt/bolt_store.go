package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/brk3/steady/internal/storage"
	"github.com/brk3/steady/pkg/habit"
	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"
)

const (
	rootBucket    = "users"
	apiKeysBucket = "apikeys"
	tokensBucket  = "tokens"

	habitsBucket      = "habits"
	detailsBucket     = "details"
	completionsBucket = "completions"
	insightsBucket    = "insights"

	defaultUserID = "default"

	// Fixed width so keys sort in time order.
	completionTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{rootBucket, apiKeysBucket, tokensBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// userBucket returns users/<userID>/<name>. In read-only transactions a
// missing bucket is returned as nil.
func userBucket(tx *bbolt.Tx, userID, name string) (*bbolt.Bucket, error) {
	if userID == "" {
		userID = defaultUserID
	}
	users := tx.Bucket([]byte(rootBucket))

	if !tx.Writable() {
		user := users.Bucket([]byte(userID))
		if user == nil {
			return nil, nil
		}
		return user.Bucket([]byte(name)), nil
	}

	user, err := users.CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return nil, err
	}
	return user.CreateBucketIfNotExists([]byte(name))
}

func completionPrefix(habitID string) []byte {
	return []byte(habitID + "/")
}

func (s *Store) PutHabit(ctx context.Context, userID string, h habit.Habit, d *habit.Detail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		habits, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		val, err := json.Marshal(h)
		if err != nil {
			return err
		}
		if err := habits.Put([]byte(h.ID), val); err != nil {
			return err
		}
		if d == nil {
			return nil
		}

		details, err := userBucket(tx, userID, detailsBucket)
		if err != nil {
			return err
		}
		d.HabitID = h.ID
		val, err = json.Marshal(d)
		if err != nil {
			return err
		}
		return details.Put([]byte(h.ID), val)
	})
}

func (s *Store) GetHabit(ctx context.Context, userID, habitID string) (habit.Habit, error) {
	var h habit.Habit
	if err := ctx.Err(); err != nil {
		return h, err
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		if bucket == nil {
			return storage.ErrNotFound
		}
		v := bucket.Get([]byte(habitID))
		if v == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(v, &h)
	})
	return h, err
}

// FetchHabits returns the user's habits oldest first.
func (s *Store) FetchHabits(ctx context.Context, userID string) ([]habit.Habit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []habit.Habit{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, habitsBucket)
		if err != nil || bucket == nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			var h habit.Habit
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			out = append(out, h)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b habit.Habit) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) FetchHabitDetail(ctx context.Context, userID, habitID string) (*habit.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var d *habit.Detail
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, detailsBucket)
		if err != nil || bucket == nil {
			return err
		}
		v := bucket.Get([]byte(habitID))
		if v == nil {
			return nil
		}
		d = &habit.Detail{}
		return json.Unmarshal(v, d)
	})
	return d, err
}

func (s *Store) AddCompletion(ctx context.Context, userID string, c habit.Completion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, completionsBucket)
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		val, err := json.Marshal(c)
		if err != nil {
			return err
		}
		key := fmt.Appendf(completionPrefix(c.HabitID), "%s/%016x", c.CompletedAt.UTC().Format(completionTimeLayout), seq)
		return bucket.Put(key, val)
	})
}

// FetchCompletions scans the habit's keys backwards so results come out
// newest first, stopping at the first completion older than since.
func (s *Store) FetchCompletions(ctx context.Context, userID, habitID string, since time.Time) ([]habit.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []habit.Completion{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, completionsBucket)
		if err != nil || bucket == nil {
			return err
		}
		prefix := completionPrefix(habitID)
		c := bucket.Cursor()

		k, v := c.Seek(append(slices.Clone(prefix), 0xff))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			var comp habit.Completion
			if err := json.Unmarshal(v, &comp); err != nil {
				return err
			}
			if comp.CompletedAt.Before(since) {
				break
			}
			out = append(out, comp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{habitsBucket, detailsBucket, insightsBucket} {
			bucket, err := userBucket(tx, userID, name)
			if err != nil {
				return err
			}
			if err := bucket.Delete([]byte(habitID)); err != nil {
				return err
			}
		}

		bucket, err := userBucket(tx, userID, completionsBucket)
		if err != nil {
			return err
		}
		c := bucket.Cursor()
		prefix := completionPrefix(habitID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) PutInsight(ctx context.Context, userID string, in habit.Insight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, insightsBucket)
		if err != nil {
			return err
		}
		val, err := json.Marshal(in)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(in.HabitID), val)
	})
}

func (s *Store) GetInsight(ctx context.Context, userID, habitID string) (habit.Insight, error) {
	var in habit.Insight
	if err := ctx.Err(); err != nil {
		return in, err
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, insightsBucket)
		if err != nil {
			return err
		}
		if bucket == nil {
			return storage.ErrNotFound
		}
		v := bucket.Get([]byte(habitID))
		if v == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(v, &in)
	})
	return in, err
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Put([]byte(keyHash), []byte(userID))
	})
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(apiKeysBucket)).Get([]byte(keyHash)); v != nil {
			userID = string(v)
		}
		return nil
	})
	return userID, userID != "", err
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	out := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).ForEach(func(k, v []byte) error {
			if string(v) == userID {
				out = append(out, string(k))
			}
			return nil
		})
	})
	return out, err
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Delete([]byte(keyHash))
	})
}

func (s *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokensBucket)).Put([]byte(userID), val)
	})
}

func (s *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	var tok *oauth2.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(tokensBucket)).Get([]byte(userID))
		if v == nil {
			return nil
		}
		tok = &oauth2.Token{}
		return json.Unmarshal(v, tok)
	})
	if err != nil {
		return nil, false, err
	}
	return tok, tok != nil, nil
}

func (s *Store) DeleteRefreshToken(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokensBucket)).Delete([]byte(userID))
	})
}

var _ storage.Store = (*Store)(nil)
