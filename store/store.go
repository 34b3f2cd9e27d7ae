package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Card states and seat roles as persisted.
const (
	CardInHand    = "in_hand"
	CardPlayed    = "played"
	CardDiscarded = "discarded"

	RoleHost   = "host"
	RolePlayer = "player"
)

// ErrStaleVersion is returned by UpdateMatch when the row changed since it was read.
var ErrStaleVersion = errors.New("match version is stale")

type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, userID int64) (*User, error)
	CreateMatch(ctx context.Context, match *Match, hostID int64) (int64, error)
	ListMatches(ctx context.Context, status, visibility string) ([]*Match, error)
	// Update runs fn in a write transaction. Any error rolls everything back.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read transaction that never takes the write lock.
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the unit of work handed to Update and View callbacks.
type Tx interface {
	LockMatch(ctx context.Context, matchID int64) (*Match, error)
	GetMatch(ctx context.Context, matchID int64) (*Match, error)
	UpdateMatch(ctx context.Context, match *Match) error

	GetSeats(ctx context.Context, matchID int64) ([]*Seat, error)
	GetSeat(ctx context.Context, matchID, userID int64) (*Seat, error)
	AddSeat(ctx context.Context, matchID, userID int64, role string, at time.Time) (*Seat, error)

	GetCard(ctx context.Context, cardID int64) (*Card, error)
	CardsInHand(ctx context.Context, matchID int64) ([]*Card, error)
	HighestPlayed(ctx context.Context, matchID int64) (int, error)
	CountInHand(ctx context.Context, matchID int64) (int, error)
	SetCardState(ctx context.Context, cardID int64, state string, at time.Time) error
	ReplaceCards(ctx context.Context, matchID int64, cards []*Card) error
	DiscardInHand(ctx context.Context, matchID int64, at time.Time) (int, error)
	RecentCards(ctx context.Context, matchID int64, state string, limit int) ([]*Card, error)

	AppendLog(ctx context.Context, entry *ActionLogEntry) error
	RecentLog(ctx context.Context, matchID int64, limit int) ([]*ActionLogEntry, error)

	UpsertScore(ctx context.Context, score *Score) error
	RecordResult(ctx context.Context, userID int64, won bool, score, level int) error
	GetScores(ctx context.Context, matchID int64) ([]*Score, error)
	GetUserStats(ctx context.Context, userID int64) (*UserStats, error)
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Match struct {
	ID                 int64
	Level              int
	LivesRemaining     int
	ShurikensRemaining int
	PlayerCapacity     int
	Difficulty         string
	Visibility         string
	Status             string
	Version            int64
	CreatedAt          time.Time
	StartedAt          *time.Time
	EndedAt            *time.Time
}

type Seat struct {
	MatchID  int64
	UserID   int64
	Username string
	SeatNo   int
	Role     string
	JoinedAt time.Time
}

type Card struct {
	ID        int64
	MatchID   int64
	UserID    int64
	Username  string
	Level     int
	Value     int
	State     string
	ChangedAt time.Time
}

// ActionLogEntry is append-only. UserID is zero for entries the system writes
// on its own behalf (level completion, final outcome).
type ActionLogEntry struct {
	ID        int64
	MatchID   int64
	UserID    int64
	Username  string
	Action    string
	Detail    json.RawMessage
	CreatedAt time.Time
}

type Score struct {
	UserID       int64
	MatchID      int64
	Username     string
	BestScore    int
	HighestLevel int
	Outcome      string
	RecordedAt   time.Time
}

type UserStats struct {
	UserID       int64
	GamesPlayed  int
	GamesWon     int
	SuccessRate  float64
	BestScore    int
	HighestLevel int
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// dsn enables WAL so readers never wait on the single writer, and a busy
// timeout so concurrent writers queue instead of failing.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	return s.getUser(ctx, "SELECT id, username, password_hash, created_at FROM users WHERE id = ?", userID)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = parseTime(createdAt)
	return user, nil
}

// CreateMatch inserts the match and seats the host at seat 1 atomically.
func (s *SQLiteStore) CreateMatch(ctx context.Context, match *Match, hostID int64) (int64, error) {
	var matchID int64
	err := s.Update(ctx, func(tx Tx) error {
		t := tx.(*sqliteTx)
		result, err := t.tx.ExecContext(ctx, `
			INSERT INTO matches (level, lives_remaining, shurikens_remaining, player_capacity,
				difficulty, visibility, status, version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			match.Level, match.LivesRemaining, match.ShurikensRemaining, match.PlayerCapacity,
			match.Difficulty, match.Visibility, match.Status, formatTime(match.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create match: %w", err)
		}
		matchID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read match id: %w", err)
		}
		_, err = t.AddSeat(ctx, matchID, hostID, RoleHost, match.CreatedAt)
		return err
	})
	if err != nil {
		return 0, err
	}
	return matchID, nil
}

func (s *SQLiteStore) ListMatches(ctx context.Context, status, visibility string) ([]*Match, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE status = ? AND visibility = ? ORDER BY created_at DESC, id DESC",
		status, visibility,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{tx: tx})
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}
