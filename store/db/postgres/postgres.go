package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/polyglot/internal/profile"
	"github.com/hrygo/polyglot/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection pool for profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil || profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db: db, profile: profile}, nil
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
	created_ts      BIGINT NOT NULL,
	updated_ts      BIGINT NOT NULL,
	ended_ts        BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tutor_message (
	seq            BIGSERIAL PRIMARY KEY,
	id             TEXT NOT NULL UNIQUE,
	session_id     TEXT NOT NULL,
	role           TEXT NOT NULL,
	content        TEXT NOT NULL,
	corrections    TEXT NOT NULL DEFAULT '',
	micro_exercise TEXT NOT NULL DEFAULT '',
	created_ts     BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tutor_message_session ON tutor_message (session_id, seq);

CREATE TABLE IF NOT EXISTS tutor_session_counters (
	session_id          TEXT PRIMARY KEY,
	total_message_count INTEGER NOT NULL DEFAULT 0,
	user_turn_count     INTEGER NOT NULL DEFAULT 0,
	last_feedback_at    INTEGER NOT NULL DEFAULT 0,
	last_exercise_at    INTEGER NOT NULL DEFAULT 0,
	updated_ts          BIGINT NOT NULL
);`

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
