package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *SQLiteStore, name string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return id
}

func createMatch(t *testing.T, s *SQLiteStore, hostID int64) int64 {
	t.Helper()
	id, err := s.CreateMatch(context.Background(), &Match{
		Level:              1,
		LivesRemaining:     2,
		ShurikensRemaining: 1,
		PlayerCapacity:     2,
		Difficulty:         "medium",
		Visibility:         "public",
		Status:             "waiting",
		CreatedAt:          testTime,
	}, hostID)
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	return id
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := createUser(t, s, "alice")
	if _, err := s.CreateUser(ctx, "alice", "other"); err == nil {
		t.Error("duplicate username accepted")
	}

	u, err := s.GetUserByUsername(ctx, "alice")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetUserByUsername = %+v, %v", u, err)
	}
	missing, err := s.GetUserByID(ctx, id+100)
	if err != nil || missing != nil {
		t.Errorf("GetUserByID(missing) = %+v, %v, want nil nil", missing, err)
	}
}

func TestCreateMatch_SeatsHost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	host := createUser(t, s, "host")
	matchID := createMatch(t, s, host)

	err := s.View(ctx, func(tx Tx) error {
		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.Version != 1 || !m.CreatedAt.Equal(testTime) || m.StartedAt != nil {
			t.Errorf("unexpected match: %+v", m)
		}
		seats, err := tx.GetSeats(ctx, matchID)
		if err != nil {
			return err
		}
		if len(seats) != 1 || seats[0].SeatNo != 1 || seats[0].Role != RoleHost || seats[0].Username != "host" {
			t.Errorf("unexpected seats: %+v", seats)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestUpdateMatch_StaleVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	matchID := createMatch(t, s, createUser(t, s, "host"))

	var stale *Match
	err := s.Update(ctx, func(tx Tx) error {
		m, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		copied := *m
		stale = &copied
		m.Status = "in_progress"
		return tx.UpdateMatch(ctx, m)
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err = s.Update(ctx, func(tx Tx) error {
		return tx.UpdateMatch(ctx, stale)
	})
	if !errors.Is(err, ErrStaleVersion) {
		t.Errorf("got %v, want ErrStaleVersion", err)
	}
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	matchID := createMatch(t, s, createUser(t, s, "host"))
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		m, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		m.LivesRemaining = 0
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	_ = s.View(ctx, func(tx Tx) error {
		m, _ := tx.GetMatch(ctx, matchID)
		if m.LivesRemaining != 2 || m.Version != 1 {
			t.Errorf("rolled back match changed: %+v", m)
		}
		return nil
	})
}

func TestLockMatch_Missing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.Update(ctx, func(tx Tx) error {
		m, err := tx.LockMatch(ctx, 42)
		if err != nil {
			return err
		}
		if m != nil {
			t.Errorf("LockMatch(42) = %+v, want nil", m)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestCards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	host := createUser(t, s, "host")
	guest := createUser(t, s, "guest")
	matchID := createMatch(t, s, host)

	err := s.Update(ctx, func(tx Tx) error {
		cards := []*Card{
			{UserID: host, Level: 1, Value: 50, State: CardInHand, ChangedAt: testTime},
			{UserID: guest, Level: 1, Value: 7, State: CardInHand, ChangedAt: testTime},
			{UserID: host, Level: 1, Value: 22, State: CardInHand, ChangedAt: testTime},
		}
		if err := tx.ReplaceCards(ctx, matchID, cards); err != nil {
			return err
		}

		hand, err := tx.CardsInHand(ctx, matchID)
		if err != nil {
			return err
		}
		if len(hand) != 3 || hand[0].Value != 7 || hand[1].Value != 22 || hand[2].Value != 50 {
			t.Errorf("hand not ascending: %v %v %v", hand[0].Value, hand[1].Value, hand[2].Value)
		}
		if hand[0].Username != "guest" {
			t.Errorf("username = %q, want guest", hand[0].Username)
		}

		if err := tx.SetCardState(ctx, hand[1].ID, CardPlayed, testTime.Add(time.Second)); err != nil {
			return err
		}
		highest, err := tx.HighestPlayed(ctx, matchID)
		if err != nil {
			return err
		}
		if highest != 22 {
			t.Errorf("HighestPlayed = %d, want 22", highest)
		}

		n, err := tx.DiscardInHand(ctx, matchID, testTime.Add(2*time.Second))
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("DiscardInHand = %d, want 2", n)
		}
		left, err := tx.CountInHand(ctx, matchID)
		if err != nil {
			return err
		}
		if left != 0 {
			t.Errorf("CountInHand = %d, want 0", left)
		}

		discarded, err := tx.RecentCards(ctx, matchID, CardDiscarded, 1)
		if err != nil {
			return err
		}
		if len(discarded) != 1 || discarded[0].Value != 50 {
			t.Errorf("RecentCards(discarded, 1) = %+v, want value 50", discarded)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestActionLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	host := createUser(t, s, "host")
	matchID := createMatch(t, s, host)

	err := s.Update(ctx, func(tx Tx) error {
		for i, action := range []string{"match_started", "card_played", "level_completed"} {
			userID := host
			if action == "level_completed" {
				userID = 0
			}
			if err := tx.AppendLog(ctx, &ActionLogEntry{
				MatchID:   matchID,
				UserID:    userID,
				Action:    action,
				Detail:    []byte(`{"level":1}`),
				CreatedAt: testTime.Add(time.Duration(i) * time.Second),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	_ = s.View(ctx, func(tx Tx) error {
		entries, err := tx.RecentLog(ctx, matchID, 2)
		if err != nil {
			t.Fatalf("RecentLog failed: %v", err)
		}
		if len(entries) != 2 || entries[0].Action != "level_completed" || entries[1].Action != "card_played" {
			t.Fatalf("unexpected entries: %+v", entries)
		}
		if entries[0].UserID != 0 || entries[1].Username != "host" {
			t.Errorf("unexpected actors: %+v %+v", entries[0], entries[1])
		}
		if string(entries[0].Detail) != `{"level":1}` {
			t.Errorf("detail = %s", entries[0].Detail)
		}

		all, err := tx.RecentLog(ctx, matchID, 0)
		if err != nil {
			t.Fatalf("RecentLog failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("full log has %d entries, want 3", len(all))
		}
		return nil
	})
}

func TestScoresAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := createUser(t, s, "alice")
	first := createMatch(t, s, user)
	second := createMatch(t, s, user)

	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.UpsertScore(ctx, &Score{UserID: user, MatchID: first, BestScore: 600, HighestLevel: 5, Outcome: "lost", RecordedAt: testTime}); err != nil {
			return err
		}
		if err := tx.UpsertScore(ctx, &Score{UserID: user, MatchID: first, BestScore: 300, HighestLevel: 3, Outcome: "lost", RecordedAt: testTime}); err != nil {
			return err
		}
		if err := tx.RecordResult(ctx, user, false, 600, 5); err != nil {
			return err
		}
		if err := tx.UpsertScore(ctx, &Score{UserID: user, MatchID: second, BestScore: 1440, HighestLevel: 12, Outcome: "won", RecordedAt: testTime}); err != nil {
			return err
		}
		return tx.RecordResult(ctx, user, true, 1440, 12)
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	_ = s.View(ctx, func(tx Tx) error {
		scores, err := tx.GetScores(ctx, first)
		if err != nil {
			t.Fatalf("GetScores failed: %v", err)
		}
		if len(scores) != 1 || scores[0].BestScore != 600 || scores[0].HighestLevel != 5 {
			t.Errorf("score not kept at its best: %+v", scores)
		}

		stats, err := tx.GetUserStats(ctx, user)
		if err != nil {
			t.Fatalf("GetUserStats failed: %v", err)
		}
		want := UserStats{UserID: user, GamesPlayed: 2, GamesWon: 1, SuccessRate: 0.5, BestScore: 1440, HighestLevel: 12}
		if *stats != want {
			t.Errorf("stats = %+v, want %+v", *stats, want)
		}
		return nil
	})
}
