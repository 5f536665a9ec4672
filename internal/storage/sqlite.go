// Package storage persists canonical opportunities in SQLite. The store is
// the durable collaborator: "record accepted" and "record durably stored"
// are distinct steps, and callers check the latter explicitly.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// DefaultPingTimeout bounds the connectivity check at open.
	DefaultPingTimeout = 5 * time.Second
)

// schema is applied idempotently at open.
const schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	agency            TEXT NOT NULL DEFAULT '',
	summary           TEXT NOT NULL DEFAULT '',
	posted_date       TEXT NOT NULL,
	response_deadline TEXT,
	award_ceiling     REAL,
	award_floor       REAL,
	award_amount      REAL,
	categories        TEXT NOT NULL DEFAULT '[]',
	eligibility       TEXT NOT NULL DEFAULT '[]',
	place_of_performance TEXT NOT NULL DEFAULT '{}',
	point_of_contact  TEXT NOT NULL DEFAULT '{}',
	source            TEXT NOT NULL,
	source_url        TEXT NOT NULL DEFAULT '',
	raw               TEXT NOT NULL DEFAULT '{}',
	relevance_score   REAL NOT NULL DEFAULT 0,
	matched_keywords  TEXT NOT NULL DEFAULT '[]',
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_source_url ON opportunities (source_url);
CREATE INDEX IF NOT EXISTS idx_opportunities_deadline ON opportunities (response_deadline);
`

// Open connects to the SQLite database at path, creating the directory and
// schema as needed.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()
	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}
