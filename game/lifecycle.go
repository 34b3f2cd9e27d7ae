package game

import (
	"context"

	"themind/store"
)

// Admin dispatches a host sub-action by name.
func (e *Engine) Admin(ctx context.Context, matchID, userID int64, action string, expectedVersion int64) (*TransitionResult, error) {
	switch action {
	case AdminStart:
		return e.Start(ctx, matchID, userID, expectedVersion)
	case AdminPause:
		return e.Pause(ctx, matchID, userID, expectedVersion)
	case AdminResume:
		return e.Resume(ctx, matchID, userID, expectedVersion)
	case AdminCancel:
		return e.Cancel(ctx, matchID, userID, expectedVersion)
	case AdminNextLevel:
		return e.NextLevel(ctx, matchID, userID, expectedVersion)
	default:
		return nil, ErrInvalidInput
	}
}

type transitionFunc func(ctx context.Context, tx store.Tx, match *store.Match, res *TransitionResult) error

// transition runs a host-only status change. The source status check inside
// apply, the mutation, and its log entry commit together.
func (e *Engine) transition(ctx context.Context, matchID, userID, expectedVersion int64, action string, apply transitionFunc) (*TransitionResult, error) {
	var result *TransitionResult
	err := e.mutate(ctx, matchID, userID, expectedVersion, func(tx store.Tx, match *store.Match, seat *store.Seat) error {
		if seat.Role != store.RoleHost {
			return ErrForbidden
		}

		res := &TransitionResult{Action: action, From: match.Status}
		if err := apply(ctx, tx, match, res); err != nil {
			return err
		}
		if err := tx.UpdateMatch(ctx, match); err != nil {
			return err
		}

		res.To = match.Status
		res.Level = match.Level
		res.Lives = match.LivesRemaining
		res.Shurikens = match.ShurikensRemaining
		res.Version = match.Version
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) Start(ctx context.Context, matchID, userID, expectedVersion int64) (*TransitionResult, error) {
	return e.transition(ctx, matchID, userID, expectedVersion, AdminStart, func(ctx context.Context, tx store.Tx, match *store.Match, res *TransitionResult) error {
		if match.Status != StatusWaiting {
			return ErrInvalidState
		}

		seats, err := tx.GetSeats(ctx, match.ID)
		if err != nil {
			return err
		}
		if len(seats) < MinPlayers {
			return ErrInsufficientPlayers
		}

		at := e.now()
		dealt, err := e.deal(ctx, tx, match, seats, at)
		if err != nil {
			return err
		}
		res.CardsDealt = dealt
		match.Status = StatusInProgress
		match.StartedAt = &at

		return appendLog(ctx, tx, at, match.ID, userID, LogMatchStarted, map[string]any{
			"players":   len(seats),
			"level":     match.Level,
			"lives":     match.LivesRemaining,
			"shurikens": match.ShurikensRemaining,
		})
	})
}

func (e *Engine) Pause(ctx context.Context, matchID, userID, expectedVersion int64) (*TransitionResult, error) {
	return e.transition(ctx, matchID, userID, expectedVersion, AdminPause, func(ctx context.Context, tx store.Tx, match *store.Match, res *TransitionResult) error {
		if match.Status != StatusInProgress {
			return ErrInvalidState
		}
		match.Status = StatusPaused
		return appendLog(ctx, tx, e.now(), match.ID, userID, LogMatchPaused, map[string]any{"level": match.Level})
	})
}

func (e *Engine) Resume(ctx context.Context, matchID, userID, expectedVersion int64) (*TransitionResult, error) {
	return e.transition(ctx, matchID, userID, expectedVersion, AdminResume, func(ctx context.Context, tx store.Tx, match *store.Match, res *TransitionResult) error {
		if match.Status != StatusPaused {
			return ErrInvalidState
		}
		match.Status = StatusInProgress
		return appendLog(ctx, tx, e.now(), match.ID, userID, LogMatchResumed, map[string]any{"level": match.Level})
	})
}

// Cancel ends a match that has not reached an outcome. No score is recorded.
func (e *Engine) Cancel(ctx context.Context, matchID, userID, expectedVersion int64) (*TransitionResult, error) {
	return e.transition(ctx, matchID, userID, expectedVersion, AdminCancel, func(ctx context.Context, tx store.Tx, match *store.Match, res *TransitionResult) error {
		switch match.Status {
		case StatusWaiting, StatusInProgress, StatusPaused:
		default:
			return ErrInvalidState
		}

		at := e.now()
		discarded, err := tx.DiscardInHand(ctx, match.ID, at)
		if err != nil {
			return err
		}
		match.Status = StatusCancelled
		match.EndedAt = &at

		return appendLog(ctx, tx, at, match.ID, userID, LogMatchCancelled, map[string]any{
			"level":     match.Level,
			"discarded": discarded,
		})
	})
}

// NextLevel advances a completed level, grants the level's bonus and deals
// fresh hands.
func (e *Engine) NextLevel(ctx context.Context, matchID, userID, expectedVersion int64) (*TransitionResult, error) {
	return e.transition(ctx, matchID, userID, expectedVersion, AdminNextLevel, func(ctx context.Context, tx store.Tx, match *store.Match, res *TransitionResult) error {
		if match.Status != StatusLevelComplete {
			return ErrInvalidState
		}
		if match.Level >= MaxLevel {
			return ErrMaxLevelReached
		}

		res.LivesGained, res.ShurikensGained = applyReward(match)
		match.Level++

		seats, err := tx.GetSeats(ctx, match.ID)
		if err != nil {
			return err
		}

		at := e.now()
		dealt, err := e.deal(ctx, tx, match, seats, at)
		if err != nil {
			return err
		}
		res.CardsDealt = dealt
		match.Status = StatusInProgress

		return appendLog(ctx, tx, at, match.ID, userID, LogLevelStarted, map[string]any{
			"level":           match.Level,
			"livesGained":     res.LivesGained,
			"shurikensGained": res.ShurikensGained,
			"lives":           match.LivesRemaining,
			"shurikens":       match.ShurikensRemaining,
		})
	})
}
