package game

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"themind/store"
)

func TestShuffledDeck_IsPermutation(t *testing.T) {
	e := NewEngine(nil, WithRand(rand.New(rand.NewPCG(7, 7))))
	deck := e.shuffledDeck()
	if len(deck) != DeckSize {
		t.Fatalf("deck has %d cards, want %d", len(deck), DeckSize)
	}
	sorted := slices.Clone(deck)
	slices.Sort(sorted)
	for i, v := range sorted {
		if v != i+1 {
			t.Fatalf("sorted deck[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestDealCards(t *testing.T) {
	seats := []*store.Seat{
		{UserID: 1, SeatNo: 1},
		{UserID: 2, SeatNo: 2},
		{UserID: 3, SeatNo: 3},
	}
	deck := make([]int, DeckSize)
	for i := range deck {
		deck[i] = DeckSize - i
	}
	at := time.Unix(0, 0)

	tests := []struct {
		name    string
		seats   []*store.Seat
		level   int
		want    int
		perSeat int
	}{
		{name: "level 1", seats: seats, level: 1, want: 3, perSeat: 1},
		{name: "level 5", seats: seats, level: 5, want: 15, perSeat: 5},
		{name: "level 12 four seats", seats: append(slices.Clone(seats), &store.Seat{UserID: 4, SeatNo: 4}), level: 12, want: 48, perSeat: 12},
		{name: "no seats", seats: nil, level: 3, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := dealCards(deck, tt.seats, tt.level, at)
			if len(cards) != tt.want {
				t.Fatalf("dealt %d cards, want %d", len(cards), tt.want)
			}
			seen := make(map[int]bool)
			for i, c := range cards {
				if seen[c.Value] {
					t.Errorf("value %d dealt twice", c.Value)
				}
				seen[c.Value] = true
				if c.UserID != tt.seats[i%len(tt.seats)].UserID {
					t.Errorf("card %d went to %d, want round robin", i, c.UserID)
				}
				if c.State != store.CardInHand || c.Level != tt.level {
					t.Errorf("card %d: state %s level %d", i, c.State, c.Level)
				}
			}
			for u, n := range handCounts(cards) {
				if n != tt.perSeat {
					t.Errorf("seat %d holds %d cards, want %d", u, n, tt.perSeat)
				}
			}
		})
	}
}

func TestDealCards_CappedByDeck(t *testing.T) {
	seats := make([]*store.Seat, 10)
	for i := range seats {
		seats[i] = &store.Seat{UserID: int64(i + 1)}
	}
	deck := make([]int, DeckSize)
	for i := range deck {
		deck[i] = i + 1
	}
	if got := len(dealCards(deck, seats, MaxLevel, time.Unix(0, 0))); got != DeckSize {
		t.Errorf("dealt %d cards, want %d", got, DeckSize)
	}
}
