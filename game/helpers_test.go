package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"themind/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *store.SQLiteStore
	engine *Engine
	lobby  *Lobby
	users  []int64
}

func newFixture(t *testing.T, players int) *fixture {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "themind.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		store:  st,
		engine: NewEngine(st, WithClock(func() time.Time { return testNow }), WithRand(rand.New(rand.NewPCG(1, 2)))),
		lobby:  NewLobby(st),
	}
	for i := 0; i < players; i++ {
		id, err := st.CreateUser(context.Background(), fmt.Sprintf("player%d", i+1), "hash")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		f.users = append(f.users, id)
	}
	return f
}

// newMatch creates a match hosted by the first user and seats every user.
func (f *fixture) newMatch(t *testing.T, difficulty string) int64 {
	t.Helper()
	ctx := context.Background()

	capacity := max(len(f.users), MinPlayers)
	matchID, err := f.lobby.CreateMatch(ctx, f.users[0], capacity, difficulty, VisibilityPublic)
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	for _, u := range f.users[1:] {
		if _, err := f.lobby.JoinMatch(ctx, matchID, u); err != nil {
			t.Fatalf("JoinMatch failed: %v", err)
		}
	}
	return matchID
}

// startedMatch returns an in-progress match whose hands are replaced by hands,
// keyed by user index.
func (f *fixture) startedMatch(t *testing.T, hands map[int][]int) int64 {
	t.Helper()

	matchID := f.newMatch(t, DifficultyMedium)
	if _, err := f.engine.Start(context.Background(), matchID, f.users[0], 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.setHands(t, matchID, hands)
	return matchID
}

func (f *fixture) setHands(t *testing.T, matchID int64, hands map[int][]int) {
	t.Helper()
	ctx := context.Background()

	err := f.store.Update(ctx, func(tx store.Tx) error {
		match, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		var cards []*store.Card
		for idx, values := range hands {
			for _, v := range values {
				cards = append(cards, &store.Card{
					UserID:    f.users[idx],
					Level:     match.Level,
					Value:     v,
					State:     store.CardInHand,
					ChangedAt: testNow,
				})
			}
		}
		return tx.ReplaceCards(ctx, matchID, cards)
	})
	if err != nil {
		t.Fatalf("setHands failed: %v", err)
	}
}

// addPlayed seeds an already-played card owned by the user at idx.
func (f *fixture) addPlayed(t *testing.T, matchID int64, idx int, value int) {
	t.Helper()
	ctx := context.Background()

	err := f.store.Update(ctx, func(tx store.Tx) error {
		card := &store.Card{UserID: f.users[idx], Level: 1, Value: value, State: store.CardPlayed, ChangedAt: testNow}
		hand, err := tx.CardsInHand(ctx, matchID)
		if err != nil {
			return err
		}
		return tx.ReplaceCards(ctx, matchID, append(hand, card))
	})
	if err != nil {
		t.Fatalf("addPlayed failed: %v", err)
	}
}

func (f *fixture) updateMatch(t *testing.T, matchID int64, change func(m *store.Match)) {
	t.Helper()
	ctx := context.Background()

	err := f.store.Update(ctx, func(tx store.Tx) error {
		match, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		change(match)
		return tx.UpdateMatch(ctx, match)
	})
	if err != nil {
		t.Fatalf("updateMatch failed: %v", err)
	}
}

func (f *fixture) match(t *testing.T, matchID int64) *store.Match {
	t.Helper()
	ctx := context.Background()

	var match *store.Match
	err := f.store.View(ctx, func(tx store.Tx) error {
		var err error
		match, err = tx.GetMatch(ctx, matchID)
		return err
	})
	if err != nil || match == nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	return match
}

func (f *fixture) cardsInHand(t *testing.T, matchID int64) []*store.Card {
	t.Helper()
	ctx := context.Background()

	var cards []*store.Card
	err := f.store.View(ctx, func(tx store.Tx) error {
		var err error
		cards, err = tx.CardsInHand(ctx, matchID)
		return err
	})
	if err != nil {
		t.Fatalf("CardsInHand failed: %v", err)
	}
	return cards
}

// cardID finds the in-hand card with value held by the user at idx.
func (f *fixture) cardID(t *testing.T, matchID int64, idx int, value int) int64 {
	t.Helper()
	for _, c := range f.cardsInHand(t, matchID) {
		if c.UserID == f.users[idx] && c.Value == value {
			return c.ID
		}
	}
	t.Fatalf("player %d holds no card %d", idx, value)
	return 0
}

func (f *fixture) history(t *testing.T, matchID int64) []EventView {
	t.Helper()
	events, err := f.engine.History(context.Background(), matchID, f.users[0])
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	return events
}

func countActions(events []EventView, action string) int {
	n := 0
	for _, e := range events {
		if e.Action == action {
			n++
		}
	}
	return n
}
