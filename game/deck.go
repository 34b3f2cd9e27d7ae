package game

import (
	"context"
	"time"

	"themind/store"
)

func (e *Engine) shuffledDeck() []int {
	e.mu.Lock()
	perm := e.rng.Perm(DeckSize)
	e.mu.Unlock()

	for i := range perm {
		perm[i]++
	}
	return perm
}

// dealCards hands out level cards per seat, round robin in seat order, from
// the front of deck. The total is capped by the deck size.
func dealCards(deck []int, seats []*store.Seat, level int, at time.Time) []*store.Card {
	if len(seats) == 0 {
		return nil
	}
	n := len(seats) * level
	if n > len(deck) {
		n = len(deck)
	}

	cards := make([]*store.Card, 0, n)
	for i := 0; i < n; i++ {
		seat := seats[i%len(seats)]
		cards = append(cards, &store.Card{
			UserID:    seat.UserID,
			Username:  seat.Username,
			Level:     level,
			Value:     deck[i],
			State:     store.CardInHand,
			ChangedAt: at,
		})
	}
	return cards
}

// deal replaces whatever cards the match holds with a fresh deal for its
// current level.
func (e *Engine) deal(ctx context.Context, tx store.Tx, match *store.Match, seats []*store.Seat, at time.Time) (int, error) {
	cards := dealCards(e.shuffledDeck(), seats, match.Level, at)
	if err := tx.ReplaceCards(ctx, match.ID, cards); err != nil {
		return 0, err
	}
	return len(cards), nil
}
