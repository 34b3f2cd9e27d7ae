package game

import (
	"context"

	"themind/store"
)

// Snapshot reads the current state of a match for a seated player. It never
// writes and does not take the write lock.
func (e *Engine) Snapshot(ctx context.Context, matchID, userID int64) (*Snapshot, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	if matchID <= 0 {
		return nil, ErrInvalidInput
	}

	var snap *Snapshot
	err := e.store.View(ctx, func(tx store.Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match == nil {
			return ErrNotFound
		}

		seats, err := tx.GetSeats(ctx, matchID)
		if err != nil {
			return err
		}
		var me *store.Seat
		for _, s := range seats {
			if s.UserID == userID {
				me = s
				break
			}
		}
		if me == nil {
			return ErrForbidden
		}

		hand, err := tx.CardsInHand(ctx, matchID)
		if err != nil {
			return err
		}
		played, err := tx.RecentCards(ctx, matchID, store.CardPlayed, e.recentWindow)
		if err != nil {
			return err
		}
		discarded, err := tx.RecentCards(ctx, matchID, store.CardDiscarded, e.recentWindow)
		if err != nil {
			return err
		}
		events, err := tx.RecentLog(ctx, matchID, e.recentWindow)
		if err != nil {
			return err
		}

		s := &Snapshot{
			MatchID:         match.ID,
			Level:           match.Level,
			Lives:           match.LivesRemaining,
			Shurikens:       match.ShurikensRemaining,
			Status:          match.Status,
			Version:         match.Version,
			Difficulty:      match.Difficulty,
			Capacity:        match.PlayerCapacity,
			IsHost:          me.Role == store.RoleHost,
			Hand:            []CardView{},
			RecentPlayed:    ownedCards(played),
			RecentDiscarded: ownedCards(discarded),
			Events:          toEventViews(events),
		}

		// hand is already ascending.
		for _, c := range hand {
			if c.UserID == userID {
				s.Hand = append(s.Hand, CardView{ID: c.ID, Value: c.Value})
			}
		}

		counts := handCounts(hand)
		s.Players = make([]PlayerView, 0, len(seats))
		for _, seat := range seats {
			s.Players = append(s.Players, PlayerView{
				UserID:    seat.UserID,
				Username:  seat.Username,
				Seat:      seat.SeatNo,
				Role:      seat.Role,
				CardsLeft: counts[seat.UserID],
			})
		}

		if match.Status == StatusLevelComplete {
			s.LevelComplete = &LevelCompleteView{
				CompletedLevel: match.Level,
				NextLevel:      match.Level + 1,
			}
		}

		snap = s
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return snap, nil
}

// History returns the whole action log of a match, newest first.
func (e *Engine) History(ctx context.Context, matchID, userID int64) ([]EventView, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	if matchID <= 0 {
		return nil, ErrInvalidInput
	}

	var events []EventView
	err := e.store.View(ctx, func(tx store.Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
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

		entries, err := tx.RecentLog(ctx, matchID, 0)
		if err != nil {
			return err
		}
		events = toEventViews(entries)
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return events, nil
}

func ownedCards(cards []*store.Card) []CardView {
	views := make([]CardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, CardView{ID: c.ID, Value: c.Value, OwnerID: c.UserID, Owner: c.Username})
	}
	return views
}
