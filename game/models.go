package game

import (
	"encoding/json"
	"time"
)

const (
	StatusWaiting       = "waiting"
	StatusInProgress    = "in_progress"
	StatusPaused        = "paused"
	StatusLevelComplete = "level_complete"
	StatusWon           = "won"
	StatusFinished      = "finished"
	StatusCancelled     = "cancelled"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Administrative sub-actions accepted by Engine.Admin.
const (
	AdminStart     = "start"
	AdminPause     = "pause"
	AdminResume    = "resume"
	AdminCancel    = "cancel"
	AdminNextLevel = "next_level"
)

// Action log entry names.
const (
	LogPlayerJoined   = "player_joined"
	LogMatchStarted   = "match_started"
	LogMatchPaused    = "match_paused"
	LogMatchResumed   = "match_resumed"
	LogMatchCancelled = "match_cancelled"
	LogLevelStarted   = "level_started"
	LogLevelCompleted = "level_completed"
	LogCardPlayed     = "card_played"
	LogLifeLost       = "life_lost"
	LogShurikenUsed   = "shuriken_used"
	LogCardDiscarded  = "card_discarded"
	LogMatchWon       = "match_won"
	LogMatchLost      = "match_lost"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
	MaxLevel   = 12
	DeckSize   = 100

	MaxLives     = 5
	MaxShurikens = 3
)

type CardView struct {
	ID      int64  `json:"id"`
	Value   int    `json:"value"`
	OwnerID int64  `json:"ownerId,omitempty"`
	Owner   string `json:"owner,omitempty"`
}

type PlayerView struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Seat      int    `json:"seat"`
	Role      string `json:"role"`
	CardsLeft int    `json:"cardsLeft"`
}

type EventView struct {
	ID       int64           `json:"id"`
	Action   string          `json:"action"`
	UserID   int64           `json:"userId,omitempty"`
	Username string          `json:"username,omitempty"`
	Detail   json.RawMessage `json:"detail"`
	At       time.Time       `json:"at"`
}

type LevelCompleteView struct {
	CompletedLevel int `json:"completedLevel"`
	NextLevel      int `json:"nextLevel"`
}

type PlayResult struct {
	Value        int    `json:"value"`
	Mistake      bool   `json:"mistake"`
	LowestInHand int    `json:"lowestInHand,omitempty"`
	Discarded    []int  `json:"discarded,omitempty"`
	CardsLeft    int    `json:"cardsLeft"`
	MyCardsLeft  int    `json:"myCardsLeft"`
	Level        int    `json:"level"`
	Lives        int    `json:"lives"`
	Status       string `json:"status"`
	Version      int64  `json:"version"`
}

type Discard struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Value    int    `json:"value"`
}

type ShurikenResult struct {
	DiscardedCount int       `json:"discardedCount"`
	Discards       []Discard `json:"discards"`
	Shurikens      int       `json:"shurikens"`
	CardsLeft      int       `json:"cardsLeft"`
	Level          int       `json:"level"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
}

type TransitionResult struct {
	Action          string `json:"action"`
	From            string `json:"from"`
	To              string `json:"to"`
	Level           int    `json:"level"`
	Lives           int    `json:"lives"`
	Shurikens       int    `json:"shurikens"`
	LivesGained     int    `json:"livesGained,omitempty"`
	ShurikensGained int    `json:"shurikensGained,omitempty"`
	CardsDealt      int    `json:"cardsDealt,omitempty"`
	Version         int64  `json:"version"`
}

// Snapshot is the polling view of a match for one seated player.
type Snapshot struct {
	MatchID         int64              `json:"matchId"`
	Level           int                `json:"level"`
	Lives           int                `json:"lives"`
	Shurikens       int                `json:"shurikens"`
	Status          string             `json:"status"`
	Version         int64              `json:"version"`
	Difficulty      string             `json:"difficulty"`
	Capacity        int                `json:"capacity"`
	IsHost          bool               `json:"isHost"`
	Hand            []CardView         `json:"hand"`
	RecentPlayed    []CardView         `json:"recentPlayed"`
	RecentDiscarded []CardView         `json:"recentDiscarded"`
	Players         []PlayerView       `json:"players"`
	Events          []EventView        `json:"events"`
	LevelComplete   *LevelCompleteView `json:"levelComplete,omitempty"`
}

type MatchSummary struct {
	ID         int64        `json:"id"`
	Status     string       `json:"status"`
	Capacity   int          `json:"capacity"`
	Difficulty string       `json:"difficulty"`
	Visibility string       `json:"visibility"`
	Players    []PlayerView `json:"players"`
	CreatedAt  time.Time    `json:"createdAt"`
}

type ScoreView struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	Score        int    `json:"score"`
	HighestLevel int    `json:"highestLevel"`
	Outcome      string `json:"outcome"`
}

type StatsView struct {
	GamesPlayed  int     `json:"gamesPlayed"`
	GamesWon     int     `json:"gamesWon"`
	SuccessRate  float64 `json:"successRate"`
	BestScore    int     `json:"bestScore"`
	HighestLevel int     `json:"highestLevel"`
}
