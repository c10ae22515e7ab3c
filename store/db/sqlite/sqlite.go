package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/polyglot/internal/profile"
	"github.com/hrygo/polyglot/store"
)

// SQLite is the default driver for single-node and development use.
// Writes are serialized over one connection in WAL mode.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// When using the `modernc.org/sqlite` driver, each pragma must be prefixed with `_pragma=`.
	separator := "?"
	if strings.Contains(profile.DSN, "?") {
		separator = "&"
	}
	sqliteDB, err := sql.Open("sqlite", profile.DSN+separator+"_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	sqliteDB.SetMaxOpenConns(1)    // SQLite: single connection is optimal with WAL
	sqliteDB.SetMaxIdleConns(1)    // Keep the single connection ready
	sqliteDB.SetConnMaxLifetime(0) // No lifetime limit (local file, no network)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS tutor_session (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL DEFAULT '',
	level           TEXT NOT NULL,
	mode            TEXT NOT NULL,
	topic           TEXT NOT NULL DEFAULT '',
	native_language TEXT NOT NULL DEFAULT '',
	target_language TEXT NOT NULL DEFAULT 'en',
	created_ts      INTEGER NOT NULL,
	updated_ts      INTEGER NOT NULL,
	ended_ts        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tutor_message (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	session_id     TEXT NOT NULL,
	role           TEXT NOT NULL,
	content        TEXT NOT NULL,
	corrections    TEXT NOT NULL DEFAULT '',
	micro_exercise TEXT NOT NULL DEFAULT '',
	created_ts     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tutor_message_session ON tutor_message (session_id, seq);

CREATE TABLE IF NOT EXISTS tutor_session_counters (
	session_id          TEXT PRIMARY KEY,
	total_message_count INTEGER NOT NULL DEFAULT 0,
	user_turn_count     INTEGER NOT NULL DEFAULT 0,
	last_feedback_at    INTEGER NOT NULL DEFAULT 0,
	last_exercise_at    INTEGER NOT NULL DEFAULT 0,
	updated_ts          INTEGER NOT NULL
);`

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}
