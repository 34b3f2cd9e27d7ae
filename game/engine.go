package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"themind/store"
)

type Engine struct {
	store        store.Store
	now          func() time.Time
	recentWindow int

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand fixes the shuffle source, mostly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithRecentWindow bounds how many played/discarded cards and log events a
// snapshot carries.
func WithRecentWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.recentWindow = n
		}
	}
}

func NewEngine(store store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		now:          time.Now,
		recentWindow: 5,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mutate runs fn inside one write transaction with the match locked and the
// caller's seat resolved. expectedVersion of zero skips the version check.
func (e *Engine) mutate(ctx context.Context, matchID, userID, expectedVersion int64, fn func(tx store.Tx, match *store.Match, seat *store.Seat) error) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if matchID <= 0 || expectedVersion < 0 {
		return ErrInvalidInput
	}

	err := e.store.Update(ctx, func(tx store.Tx) error {
		match, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match == nil {
			return ErrNotFound
		}

		seat, err := tx.GetSeat(ctx, matchID, userID)
		if err != nil {
			return err
		}
		if seat == nil {
			return ErrForbidden
		}

		if expectedVersion > 0 && expectedVersion != match.Version {
			return ErrConflict
		}

		return fn(tx, match, seat)
	})
	return classify(err)
}

// classify keeps rule errors as they are and folds everything else into
// ErrStorageFailure while preserving the cause for logging.
func classify(err error) error {
	if err == nil || IsRuleError(err) {
		return err
	}
	if errors.Is(err, store.ErrStaleVersion) {
		return ErrConflict
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

func appendLog(ctx context.Context, tx store.Tx, at time.Time, matchID, userID int64, action string, detail any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode %s detail: %w", action, err)
	}
	return tx.AppendLog(ctx, &store.ActionLogEntry{
		MatchID:   matchID,
		UserID:    userID,
		Action:    action,
		Detail:    raw,
		CreatedAt: at,
	})
}

func handCounts(hand []*store.Card) map[int64]int {
	counts := make(map[int64]int)
	for _, c := range hand {
		counts[c.UserID]++
	}
	return counts
}

func toEventViews(entries []*store.ActionLogEntry) []EventView {
	views := make([]EventView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EventView{
			ID:       e.ID,
			Action:   e.Action,
			UserID:   e.UserID,
			Username: e.Username,
			Detail:   e.Detail,
			At:       e.CreatedAt,
		})
	}
	return views
}
