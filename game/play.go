package game

import (
	"context"

	"themind/store"
)

// PlayCard validates and applies one card play for userID.
//
// A card below the highest played value is rejected outright. A card above
// the lowest value still held anywhere on the table is a mistake: it costs a
// life and is still played, and every lower card still in hand is discarded
// since it could never be played in order afterwards.
func (e *Engine) PlayCard(ctx context.Context, matchID, userID, cardID, expectedVersion int64) (*PlayResult, error) {
	if cardID <= 0 {
		return nil, ErrInvalidInput
	}

	var result *PlayResult
	err := e.mutate(ctx, matchID, userID, expectedVersion, func(tx store.Tx, match *store.Match, seat *store.Seat) error {
		if match.Status != StatusInProgress {
			return ErrInvalidState
		}

		card, err := tx.GetCard(ctx, cardID)
		if err != nil {
			return err
		}
		if card == nil || card.MatchID != match.ID || card.UserID != userID || card.State != store.CardInHand {
			return ErrNotFound
		}

		lastPlayed, err := tx.HighestPlayed(ctx, match.ID)
		if err != nil {
			return err
		}
		if card.Value < lastPlayed {
			return ErrOutOfOrder
		}

		hand, err := tx.CardsInHand(ctx, match.ID)
		if err != nil {
			return err
		}
		minInHand := card.Value
		if len(hand) > 0 && hand[0].Value < minInHand {
			minInHand = hand[0].Value
		}

		at := e.now()
		res := &PlayResult{Value: card.Value}

		if card.Value > minInHand {
			res.Mistake = true
			res.LowestInHand = minInHand
			match.LivesRemaining = max(0, match.LivesRemaining-1)
			if err := appendLog(ctx, tx, at, match.ID, userID, LogLifeLost, map[string]any{
				"value":          card.Value,
				"lowestInHand":   minInHand,
				"livesRemaining": match.LivesRemaining,
			}); err != nil {
				return err
			}
		}

		if err := tx.SetCardState(ctx, card.ID, store.CardPlayed, at); err != nil {
			return err
		}
		if err := appendLog(ctx, tx, at, match.ID, userID, LogCardPlayed, map[string]any{
			"cardId":  card.ID,
			"value":   card.Value,
			"mistake": res.Mistake,
		}); err != nil {
			return err
		}

		if res.Mistake && match.LivesRemaining == 0 {
			if err := e.finish(ctx, tx, match, false, at); err != nil {
				return err
			}
		} else {
			if res.Mistake {
				for _, c := range hand {
					if c.ID == card.ID || c.Value >= card.Value {
						continue
					}
					if err := tx.SetCardState(ctx, c.ID, store.CardDiscarded, at); err != nil {
						return err
					}
					if err := appendLog(ctx, tx, at, match.ID, c.UserID, LogCardDiscarded, map[string]any{
						"value":  c.Value,
						"reason": "mistake",
					}); err != nil {
						return err
					}
					res.Discarded = append(res.Discarded, c.Value)
				}
			}
			if err := e.settleLevel(ctx, tx, match, at); err != nil {
				return err
			}
		}

		if err := tx.UpdateMatch(ctx, match); err != nil {
			return err
		}

		left, err := tx.CardsInHand(ctx, match.ID)
		if err != nil {
			return err
		}
		res.CardsLeft = len(left)
		res.MyCardsLeft = handCounts(left)[userID]
		res.Level = match.Level
		res.Lives = match.LivesRemaining
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
