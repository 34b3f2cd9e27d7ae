package game

import (
	"context"

	"themind/store"
)

// UseShuriken spends one shuriken and discards the lowest in-hand card of
// every player still holding cards. Any seated player may trigger it.
func (e *Engine) UseShuriken(ctx context.Context, matchID, userID, expectedVersion int64) (*ShurikenResult, error) {
	var result *ShurikenResult
	err := e.mutate(ctx, matchID, userID, expectedVersion, func(tx store.Tx, match *store.Match, seat *store.Seat) error {
		if match.Status != StatusInProgress {
			return ErrInvalidState
		}
		if match.ShurikensRemaining <= 0 {
			return ErrNoResourceAvailable
		}

		at := e.now()
		match.ShurikensRemaining = max(0, match.ShurikensRemaining-1)
		if err := appendLog(ctx, tx, at, match.ID, userID, LogShurikenUsed, map[string]any{
			"shurikensRemaining": match.ShurikensRemaining,
		}); err != nil {
			return err
		}

		hand, err := tx.CardsInHand(ctx, match.ID)
		if err != nil {
			return err
		}

		// hand is sorted ascending, so the first card seen per player is their lowest.
		res := &ShurikenResult{Discards: []Discard{}}
		seen := make(map[int64]bool)
		for _, c := range hand {
			if seen[c.UserID] {
				continue
			}
			seen[c.UserID] = true

			if err := tx.SetCardState(ctx, c.ID, store.CardDiscarded, at); err != nil {
				return err
			}
			if err := appendLog(ctx, tx, at, match.ID, c.UserID, LogCardDiscarded, map[string]any{
				"value":       c.Value,
				"reason":      "shuriken",
				"triggeredBy": userID,
			}); err != nil {
				return err
			}
			res.Discards = append(res.Discards, Discard{UserID: c.UserID, Username: c.Username, Value: c.Value})
		}
		res.DiscardedCount = len(res.Discards)

		if err := e.settleLevel(ctx, tx, match, at); err != nil {
			return err
		}
		if err := tx.UpdateMatch(ctx, match); err != nil {
			return err
		}

		res.CardsLeft = len(hand) - res.DiscardedCount
		res.Shurikens = match.ShurikensRemaining
		res.Level = match.Level
		res.Status = match.Status
		res.Version = match.Version
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
