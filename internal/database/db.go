package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps the durable backend connection. Production runs on Postgres;
// tests use an in-memory SQLite database through the same code path.
type DB struct {
	*sqlx.DB
}

// Open connects to the durable backend. driver is "postgres" or "sqlite".
func Open(driver, dsn string) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite doesn't support multiple writers.
		db.SetMaxOpenConns(1)
	}

	return &DB{db}, nil
}

// EnsureSchema creates the progress tables if they don't exist. Timestamps
// are stored as RFC 3339 text, matching the wire format of the hosted
// backend this store stands in for.
func (db *DB) EnsureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS card_progress (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			letter_id TEXT NOT NULL,
			level INTEGER NOT NULL DEFAULT 0,
			next_review TEXT NOT NULL,
			review_count INTEGER NOT NULL DEFAULT 0,
			UNIQUE (user_id, letter_id)
		);

		CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT PRIMARY KEY,
			total_stars INTEGER NOT NULL DEFAULT 0,
			last_played_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS user_achievements (
			user_id TEXT NOT NULL,
			achievement_key TEXT NOT NULL,
			PRIMARY KEY (user_id, achievement_key)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
