package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const matchColumns = `id, level, lives_remaining, shurikens_remaining, player_capacity,
	difficulty, visibility, status, version, created_at, started_at, ended_at`

type sqliteTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*Match, error) {
	match := &Match{}
	var createdAt string
	var startedAt, endedAt sql.NullString
	if err := row.Scan(
		&match.ID, &match.Level, &match.LivesRemaining, &match.ShurikensRemaining, &match.PlayerCapacity,
		&match.Difficulty, &match.Visibility, &match.Status, &match.Version, &createdAt, &startedAt, &endedAt,
	); err != nil {
		return nil, err
	}
	match.CreatedAt = parseTime(createdAt)
	match.StartedAt = parseNullTime(startedAt)
	match.EndedAt = parseNullTime(endedAt)
	return match, nil
}

// LockMatch takes the database write lock before reading the match, so that
// everything read afterwards in this transaction is serialized against other
// writers. Returns nil when the match does not exist.
func (t *sqliteTx) LockMatch(ctx context.Context, matchID int64) (*Match, error) {
	result, err := t.tx.ExecContext(ctx, "UPDATE matches SET version = version WHERE id = ?", matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return t.GetMatch(ctx, matchID)
}

func (t *sqliteTx) GetMatch(ctx context.Context, matchID int64) (*Match, error) {
	match, err := scanMatch(t.tx.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id = ?", matchID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// UpdateMatch writes the mutable match fields guarded by the version the
// caller read, and advances match.Version on success.
func (t *sqliteTx) UpdateMatch(ctx context.Context, match *Match) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE matches
		SET level = ?, lives_remaining = ?, shurikens_remaining = ?, status = ?,
			started_at = ?, ended_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		match.Level, match.LivesRemaining, match.ShurikensRemaining, match.Status,
		nullTime(match.StartedAt), nullTime(match.EndedAt), match.ID, match.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if n == 0 {
		return ErrStaleVersion
	}
	match.Version++
	return nil
}

func (t *sqliteTx) GetSeats(ctx context.Context, matchID int64) ([]*Seat, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT s.match_id, s.user_id, u.username, s.seat_no, s.role, s.joined_at
		FROM seats s
		JOIN users u ON s.user_id = u.id
		WHERE s.match_id = ?
		ORDER BY s.seat_no
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	defer rows.Close()

	var seats []*Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (t *sqliteTx) GetSeat(ctx context.Context, matchID, userID int64) (*Seat, error) {
	seat, err := scanSeat(t.tx.QueryRowContext(ctx, `
		SELECT s.match_id, s.user_id, u.username, s.seat_no, s.role, s.joined_at
		FROM seats s
		JOIN users u ON s.user_id = u.id
		WHERE s.match_id = ? AND s.user_id = ?
	`, matchID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return seat, nil
}

func scanSeat(row rowScanner) (*Seat, error) {
	seat := &Seat{}
	var joinedAt string
	if err := row.Scan(&seat.MatchID, &seat.UserID, &seat.Username, &seat.SeatNo, &seat.Role, &joinedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan seat: %w", err)
	}
	seat.JoinedAt = parseTime(joinedAt)
	return seat, nil
}

// AddSeat allocates the next seat number. Callers hold the match lock, and the
// (match_id, seat_no) unique index rejects anything that slips past it.
func (t *sqliteTx) AddSeat(ctx context.Context, matchID, userID int64, role string, at time.Time) (*Seat, error) {
	var seatNo int
	if err := t.tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seat_no), 0) + 1 FROM seats WHERE match_id = ?", matchID,
	).Scan(&seatNo); err != nil {
		return nil, fmt.Errorf("failed to allocate seat: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx,
		"INSERT INTO seats (match_id, user_id, seat_no, role, joined_at) VALUES (?, ?, ?, ?, ?)",
		matchID, userID, seatNo, role, formatTime(at),
	); err != nil {
		return nil, fmt.Errorf("failed to add seat: %w", err)
	}

	return t.GetSeat(ctx, matchID, userID)
}

const cardColumns = `c.id, c.match_id, c.user_id, u.username, c.level, c.value, c.state, c.changed_at`

func scanCard(row rowScanner) (*Card, error) {
	card := &Card{}
	var changedAt string
	if err := row.Scan(&card.ID, &card.MatchID, &card.UserID, &card.Username, &card.Level, &card.Value, &card.State, &changedAt); err != nil {
		return nil, err
	}
	card.ChangedAt = parseTime(changedAt)
	return card, nil
}

func (t *sqliteTx) queryCards(ctx context.Context, query string, args ...any) ([]*Card, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []*Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (t *sqliteTx) GetCard(ctx context.Context, cardID int64) (*Card, error) {
	card, err := scanCard(t.tx.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM cards c JOIN users u ON c.user_id = u.id WHERE c.id = ?", cardID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// CardsInHand returns every in-hand card of the match, lowest value first.
func (t *sqliteTx) CardsInHand(ctx context.Context, matchID int64) ([]*Card, error) {
	return t.queryCards(ctx,
		"SELECT "+cardColumns+" FROM cards c JOIN users u ON c.user_id = u.id WHERE c.match_id = ? AND c.state = ? ORDER BY c.value",
		matchID, CardInHand,
	)
}

func (t *sqliteTx) HighestPlayed(ctx context.Context, matchID int64) (int, error) {
	var value int
	if err := t.tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(value), 0) FROM cards WHERE match_id = ? AND state = ?", matchID, CardPlayed,
	).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to get highest played card: %w", err)
	}
	return value, nil
}

func (t *sqliteTx) CountInHand(ctx context.Context, matchID int64) (int, error) {
	var count int
	if err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cards WHERE match_id = ? AND state = ?", matchID, CardInHand,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cards in hand: %w", err)
	}
	return count, nil
}

func (t *sqliteTx) SetCardState(ctx context.Context, cardID int64, state string, at time.Time) error {
	if _, err := t.tx.ExecContext(ctx,
		"UPDATE cards SET state = ?, changed_at = ? WHERE id = ?", state, formatTime(at), cardID,
	); err != nil {
		return fmt.Errorf("failed to update card state: %w", err)
	}
	return nil
}

// ReplaceCards drops every card of the match and inserts the new deal.
func (t *sqliteTx) ReplaceCards(ctx context.Context, matchID int64, cards []*Card) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM cards WHERE match_id = ?", matchID); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}

	stmt, err := t.tx.PrepareContext(ctx,
		"INSERT INTO cards (match_id, user_id, level, value, state, changed_at) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare card insert: %w", err)
	}
	defer stmt.Close()

	for _, card := range cards {
		result, err := stmt.ExecContext(ctx, matchID, card.UserID, card.Level, card.Value, card.State, formatTime(card.ChangedAt))
		if err != nil {
			return fmt.Errorf("failed to insert card: %w", err)
		}
		if card.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read card id: %w", err)
		}
		card.MatchID = matchID
	}
	return nil
}

func (t *sqliteTx) DiscardInHand(ctx context.Context, matchID int64, at time.Time) (int, error) {
	result, err := t.tx.ExecContext(ctx,
		"UPDATE cards SET state = ?, changed_at = ? WHERE match_id = ? AND state = ?",
		CardDiscarded, formatTime(at), matchID, CardInHand,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to discard cards: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to discard cards: %w", err)
	}
	return int(n), nil
}

// RecentCards returns the most recently changed cards in the given state.
func (t *sqliteTx) RecentCards(ctx context.Context, matchID int64, state string, limit int) ([]*Card, error) {
	return t.queryCards(ctx,
		"SELECT "+cardColumns+` FROM cards c JOIN users u ON c.user_id = u.id
		WHERE c.match_id = ? AND c.state = ?
		ORDER BY c.changed_at DESC, c.value DESC
		LIMIT ?`,
		matchID, state, limit,
	)
}

func (t *sqliteTx) AppendLog(ctx context.Context, entry *ActionLogEntry) error {
	detail := entry.Detail
	if len(detail) == 0 {
		detail = json.RawMessage("{}")
	}
	var userID sql.NullInt64
	if entry.UserID != 0 {
		userID = sql.NullInt64{Int64: entry.UserID, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx,
		"INSERT INTO action_log (match_id, user_id, action, detail, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.MatchID, userID, entry.Action, string(detail), formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append action log: %w", err)
	}
	entry.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read action log id: %w", err)
	}
	return nil
}

// RecentLog returns the newest entries first. A non-positive limit returns all.
func (t *sqliteTx) RecentLog(ctx context.Context, matchID int64, limit int) ([]*ActionLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT l.id, l.match_id, COALESCE(l.user_id, 0), COALESCE(u.username, ''), l.action, l.detail, l.created_at
		FROM action_log l
		LEFT JOIN users u ON l.user_id = u.id
		WHERE l.match_id = ?
		ORDER BY l.id DESC
		LIMIT ?
	`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get action log: %w", err)
	}
	defer rows.Close()

	var entries []*ActionLogEntry
	for rows.Next() {
		entry := &ActionLogEntry{}
		var detail, createdAt string
		if err := rows.Scan(&entry.ID, &entry.MatchID, &entry.UserID, &entry.Username, &entry.Action, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan action log: %w", err)
		}
		entry.Detail = json.RawMessage(detail)
		entry.CreatedAt = parseTime(createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpsertScore keeps the best score and highest level seen for (user, match).
func (t *sqliteTx) UpsertScore(ctx context.Context, score *Score) error {
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO scores (user_id, match_id, best_score, highest_level, outcome, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, match_id) DO UPDATE SET
			best_score = MAX(best_score, excluded.best_score),
			highest_level = MAX(highest_level, excluded.highest_level),
			outcome = excluded.outcome,
			recorded_at = excluded.recorded_at
	`, score.UserID, score.MatchID, score.BestScore, score.HighestLevel, score.Outcome, formatTime(score.RecordedAt)); err != nil {
		return fmt.Errorf("failed to upsert score: %w", err)
	}
	return nil
}

func (t *sqliteTx) RecordResult(ctx context.Context, userID int64, won bool, score, level int) error {
	wins := 0
	if won {
		wins = 1
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, games_played, games_won, success_rate, best_score, highest_level)
		VALUES (?, 1, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			games_played = games_played + 1,
			games_won = games_won + excluded.games_won,
			success_rate = CAST(games_won + excluded.games_won AS REAL) / (games_played + 1),
			best_score = MAX(best_score, excluded.best_score),
			highest_level = MAX(highest_level, excluded.highest_level)
	`, userID, wins, float64(wins), score, level); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetScores(ctx context.Context, matchID int64) ([]*Score, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT s.user_id, s.match_id, u.username, s.best_score, s.highest_level, s.outcome, s.recorded_at
		FROM scores s
		JOIN users u ON s.user_id = u.id
		WHERE s.match_id = ?
		ORDER BY s.best_score DESC, u.username
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer rows.Close()

	var scores []*Score
	for rows.Next() {
		score := &Score{}
		var recordedAt string
		if err := rows.Scan(&score.UserID, &score.MatchID, &score.Username, &score.BestScore, &score.HighestLevel, &score.Outcome, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		score.RecordedAt = parseTime(recordedAt)
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// GetUserStats returns zeroed stats for a user who has not finished a match.
func (t *sqliteTx) GetUserStats(ctx context.Context, userID int64) (*UserStats, error) {
	stats := &UserStats{UserID: userID}
	err := t.tx.QueryRowContext(ctx, `
		SELECT games_played, games_won, success_rate, best_score, highest_level
		FROM user_stats WHERE user_id = ?
	`, userID).Scan(&stats.GamesPlayed, &stats.GamesWon, &stats.SuccessRate, &stats.BestScore, &stats.HighestLevel)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}
