package db

import (
	"context"
	"database/sql"
	"fmt"
)

// All timestamps are written from Go in UTC. The schema deliberately carries
// no DEFAULT CURRENT_TIMESTAMP: mixing SQLite-generated and driver-generated
// timestamp formats would break range comparisons on those columns.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		status   TEXT NOT NULL DEFAULT 'idle'
			CHECK (status IN ('idle', 'searching', 'playing'))
	)`,
	`CREATE TABLE IF NOT EXISTS queue_entries (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id INTEGER NOT NULL UNIQUE REFERENCES players(id) ON DELETE CASCADE,
		lobby_id  TEXT UNIQUE,
		joined_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		name             TEXT NOT NULL,
		max_participants INTEGER NOT NULL,
		status           TEXT NOT NULL DEFAULT 'open'
			CHECK (status IN ('open', 'ongoing', 'finished', 'canceled')),
		winner_id        INTEGER REFERENCES players(id),
		created_at       DATETIME NOT NULL,
		finished_at      DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS tournament_participants (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		tournament_id INTEGER NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		user_id       INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		joined_at     DATETIME NOT NULL,
		UNIQUE (tournament_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		lobby_id      TEXT,
		player1_id    INTEGER NOT NULL REFERENCES players(id),
		player2_id    INTEGER NOT NULL REFERENCES players(id),
		status        TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'ready', 'ongoing', 'finished', 'cancelled')),
		score_player1 INTEGER NOT NULL DEFAULT 0,
		score_player2 INTEGER NOT NULL DEFAULT 0,
		winner_id     INTEGER REFERENCES players(id),
		tournament_id INTEGER REFERENCES tournaments(id) ON DELETE CASCADE,
		round         INTEGER,
		p1_ready      INTEGER NOT NULL DEFAULT 0,
		p2_ready      INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL,
		finished_at   DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queue_entries_joined_at ON queue_entries (joined_at)`,
	`CREATE INDEX IF NOT EXISTS idx_games_status ON games (status)`,
	`CREATE INDEX IF NOT EXISTS idx_games_tournament_round ON games (tournament_id, round)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_tournament ON tournament_participants (tournament_id)`,
}

// Migrate creates the matchmaking tables if they do not exist yet.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
