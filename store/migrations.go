package store

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    level INTEGER NOT NULL DEFAULT 1 CHECK (level BETWEEN 1 AND 12),
    lives_remaining INTEGER NOT NULL CHECK (lives_remaining >= 0),
    shurikens_remaining INTEGER NOT NULL CHECK (shurikens_remaining >= 0),
    player_capacity INTEGER NOT NULL CHECK (player_capacity BETWEEN 2 AND 4),
    difficulty TEXT NOT NULL DEFAULT 'medium',
    visibility TEXT NOT NULL DEFAULT 'public',
    status TEXT NOT NULL DEFAULT 'waiting',
    version INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL,
    started_at DATETIME,
    ended_at DATETIME
);

CREATE TABLE IF NOT EXISTS seats (
    match_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    seat_no INTEGER NOT NULL,
    role TEXT NOT NULL DEFAULT 'player',
    joined_at DATETIME NOT NULL,
    PRIMARY KEY (match_id, user_id),
    UNIQUE (match_id, seat_no),
    FOREIGN KEY (match_id) REFERENCES matches(id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    level INTEGER NOT NULL,
    value INTEGER NOT NULL CHECK (value BETWEEN 1 AND 100),
    state TEXT NOT NULL DEFAULT 'in_hand',
    changed_at DATETIME NOT NULL,
    UNIQUE (match_id, level, value),
    FOREIGN KEY (match_id) REFERENCES matches(id),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS action_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id INTEGER NOT NULL,
    user_id INTEGER,
    action TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL,
    FOREIGN KEY (match_id) REFERENCES matches(id)
);

CREATE TABLE IF NOT EXISTS scores (
    user_id INTEGER NOT NULL,
    match_id INTEGER NOT NULL,
    best_score INTEGER NOT NULL DEFAULT 0,
    highest_level INTEGER NOT NULL DEFAULT 1,
    outcome TEXT NOT NULL,
    recorded_at DATETIME NOT NULL,
    PRIMARY KEY (user_id, match_id),
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (match_id) REFERENCES matches(id)
);

CREATE TABLE IF NOT EXISTS user_stats (
    user_id INTEGER PRIMARY KEY,
    games_played INTEGER NOT NULL DEFAULT 0,
    games_won INTEGER NOT NULL DEFAULT 0,
    success_rate REAL NOT NULL DEFAULT 0,
    best_score INTEGER NOT NULL DEFAULT 0,
    highest_level INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
CREATE INDEX IF NOT EXISTS idx_seats_match_id ON seats(match_id);
CREATE INDEX IF NOT EXISTS idx_cards_match_state ON cards(match_id, state);
CREATE INDEX IF NOT EXISTS idx_action_log_match_id ON action_log(match_id, id);
`
