package game

import (
	"context"
	"math"
	"time"

	"themind/store"
)

type reward struct {
	lives     int
	shurikens int
}

// levelRewards is keyed by the level just completed.
var levelRewards = map[int]reward{
	2: {shurikens: 1},
	3: {lives: 1},
	5: {shurikens: 1},
	6: {lives: 1},
	8: {shurikens: 1},
	9: {lives: 1},
}

var difficultyMultipliers = map[string]float64{
	DifficultyEasy:   1.0,
	DifficultyMedium: 1.2,
	DifficultyHard:   1.5,
}

// Score is level × 100 scaled by the difficulty multiplier.
func Score(level int, difficulty string) int {
	mult, ok := difficultyMultipliers[difficulty]
	if !ok {
		mult = 1.0
	}
	return int(math.Round(float64(level*100) * mult))
}

// applyReward grants the bonus for completing the match's current level,
// respecting the caps. It returns what was actually granted.
func applyReward(match *store.Match) (lives, shurikens int) {
	r := levelRewards[match.Level]
	if r.lives > 0 && match.LivesRemaining < MaxLives {
		lives = min(r.lives, MaxLives-match.LivesRemaining)
		match.LivesRemaining += lives
	}
	if r.shurikens > 0 && match.ShurikensRemaining < MaxShurikens {
		shurikens = min(r.shurikens, MaxShurikens-match.ShurikensRemaining)
		match.ShurikensRemaining += shurikens
	}
	return lives, shurikens
}

// settleLevel re-checks the table inside the caller's transaction and, when
// every hand is empty, either completes the level or wins the match.
func (e *Engine) settleLevel(ctx context.Context, tx store.Tx, match *store.Match, at time.Time) error {
	remaining, err := tx.CountInHand(ctx, match.ID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	if match.Level >= MaxLevel {
		return e.finish(ctx, tx, match, true, at)
	}

	match.Status = StatusLevelComplete
	return appendLog(ctx, tx, at, match.ID, 0, LogLevelCompleted, map[string]any{
		"level":     match.Level,
		"nextLevel": match.Level + 1,
	})
}

// finish moves the match to its terminal outcome and records scores and
// aggregate statistics for every seat.
func (e *Engine) finish(ctx context.Context, tx store.Tx, match *store.Match, won bool, at time.Time) error {
	outcome, action := "lost", LogMatchLost
	match.Status = StatusFinished
	if won {
		outcome, action = "won", LogMatchWon
		match.Status = StatusWon
	}
	match.EndedAt = &at

	if _, err := tx.DiscardInHand(ctx, match.ID, at); err != nil {
		return err
	}

	seats, err := tx.GetSeats(ctx, match.ID)
	if err != nil {
		return err
	}

	score := Score(match.Level, match.Difficulty)
	for _, seat := range seats {
		if err := tx.UpsertScore(ctx, &store.Score{
			UserID:       seat.UserID,
			MatchID:      match.ID,
			BestScore:    score,
			HighestLevel: match.Level,
			Outcome:      outcome,
			RecordedAt:   at,
		}); err != nil {
			return err
		}
		if err := tx.RecordResult(ctx, seat.UserID, won, score, match.Level); err != nil {
			return err
		}
	}

	return appendLog(ctx, tx, at, match.ID, 0, action, map[string]any{
		"level": match.Level,
		"score": score,
	})
}
