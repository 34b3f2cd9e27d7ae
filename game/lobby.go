package game

import (
	"context"
	"time"

	"themind/store"
)

type Lobby struct {
	store store.Store
	now   func() time.Time
}

func NewLobby(store store.Store) *Lobby {
	return &Lobby{store: store, now: time.Now}
}

// CreateMatch opens a waiting match with hostID in seat 1. Empty difficulty
// and visibility fall back to medium and public.
func (l *Lobby) CreateMatch(ctx context.Context, hostID int64, capacity int, difficulty, visibility string) (int64, error) {
	if hostID <= 0 {
		return 0, ErrUnauthorized
	}
	if capacity < MinPlayers || capacity > MaxPlayers {
		return 0, ErrInvalidInput
	}
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	if _, ok := difficultyMultipliers[difficulty]; !ok {
		return 0, ErrInvalidInput
	}
	switch visibility {
	case "":
		visibility = VisibilityPublic
	case VisibilityPublic, VisibilityPrivate:
	default:
		return 0, ErrInvalidInput
	}

	matchID, err := l.store.CreateMatch(ctx, &store.Match{
		Level:              1,
		LivesRemaining:     capacity,
		ShurikensRemaining: 1,
		PlayerCapacity:     capacity,
		Difficulty:         difficulty,
		Visibility:         visibility,
		Status:             StatusWaiting,
		CreatedAt:          l.now(),
	}, hostID)
	if err != nil {
		return 0, classify(err)
	}
	return matchID, nil
}

// JoinMatch seats userID at the next free seat number.
func (l *Lobby) JoinMatch(ctx context.Context, matchID, userID int64) (*PlayerView, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	if matchID <= 0 {
		return nil, ErrInvalidInput
	}

	var view *PlayerView
	err := l.store.Update(ctx, func(tx store.Tx) error {
		match, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match == nil {
			return ErrNotFound
		}
		if match.Status != StatusWaiting {
			return ErrInvalidState
		}

		seats, err := tx.GetSeats(ctx, matchID)
		if err != nil {
			return err
		}
		for _, s := range seats {
			if s.UserID == userID {
				return ErrAlreadySeated
			}
		}
		if len(seats) >= match.PlayerCapacity {
			return ErrMatchFull
		}

		at := l.now()
		seat, err := tx.AddSeat(ctx, matchID, userID, store.RolePlayer, at)
		if err != nil {
			return err
		}
		if err := tx.UpdateMatch(ctx, match); err != nil {
			return err
		}
		if err := appendLog(ctx, tx, at, matchID, userID, LogPlayerJoined, map[string]any{"seat": seat.SeatNo}); err != nil {
			return err
		}

		view = &PlayerView{UserID: seat.UserID, Username: seat.Username, Seat: seat.SeatNo, Role: seat.Role}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return view, nil
}

// ListMatches returns public matches that are still waiting for players.
func (l *Lobby) ListMatches(ctx context.Context) ([]*MatchSummary, error) {
	matches, err := l.store.ListMatches(ctx, StatusWaiting, VisibilityPublic)
	if err != nil {
		return nil, classify(err)
	}

	summaries := make([]*MatchSummary, 0, len(matches))
	err = l.store.View(ctx, func(tx store.Tx) error {
		for _, m := range matches {
			seats, err := tx.GetSeats(ctx, m.ID)
			if err != nil {
				return err
			}
			players := make([]PlayerView, 0, len(seats))
			for _, s := range seats {
				players = append(players, PlayerView{UserID: s.UserID, Username: s.Username, Seat: s.SeatNo, Role: s.Role})
			}
			summaries = append(summaries, &MatchSummary{
				ID:         m.ID,
				Status:     m.Status,
				Capacity:   m.PlayerCapacity,
				Difficulty: m.Difficulty,
				Visibility: m.Visibility,
				Players:    players,
				CreatedAt:  m.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return summaries, nil
}

func (l *Lobby) Scores(ctx context.Context, matchID int64) ([]ScoreView, error) {
	if matchID <= 0 {
		return nil, ErrInvalidInput
	}

	var views []ScoreView
	err := l.store.View(ctx, func(tx store.Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match == nil {
			return ErrNotFound
		}
		scores, err := tx.GetScores(ctx, matchID)
		if err != nil {
			return err
		}
		views = make([]ScoreView, 0, len(scores))
		for _, s := range scores {
			views = append(views, ScoreView{
				UserID:       s.UserID,
				Username:     s.Username,
				Score:        s.BestScore,
				HighestLevel: s.HighestLevel,
				Outcome:      s.Outcome,
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return views, nil
}

func (l *Lobby) Stats(ctx context.Context, userID int64) (*StatsView, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	var view *StatsView
	err := l.store.View(ctx, func(tx store.Tx) error {
		stats, err := tx.GetUserStats(ctx, userID)
		if err != nil {
			return err
		}
		view = &StatsView{
			GamesPlayed:  stats.GamesPlayed,
			GamesWon:     stats.GamesWon,
			SuccessRate:  stats.SuccessRate,
			BestScore:    stats.BestScore,
			HighestLevel: stats.HighestLevel,
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return view, nil
}
