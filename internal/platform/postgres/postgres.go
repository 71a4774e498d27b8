package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres: DATABASE_URL is required for the postgres backend")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema holds the DDL for the tracking tables. Applied idempotently at
// startup; a real migration tool can take over without changing the shape.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	id                     UUID PRIMARY KEY,
	section                TEXT        NOT NULL,
	date_received          DATE        NOT NULL,
	subject                TEXT        NOT NULL DEFAULT '',
	sender                 TEXT        NOT NULL DEFAULT '',
	office_control_number  TEXT        NOT NULL,
	section_control_number TEXT        NOT NULL,
	office_sequence        INTEGER     NOT NULL DEFAULT 0,
	section_sequence       INTEGER     NOT NULL DEFAULT 0,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_section_date ON records (section, date_received);
CREATE INDEX IF NOT EXISTS idx_records_date ON records (date_received);

CREATE TABLE IF NOT EXISTS counters (
	scope          TEXT    NOT NULL,
	section        TEXT    NOT NULL DEFAULT '',
	current_number INTEGER NOT NULL DEFAULT 0,
	last_date_used DATE,
	PRIMARY KEY (scope, section)
);

CREATE TABLE IF NOT EXISTS audit_events (
	id            UUID        PRIMARY KEY,
	action        TEXT        NOT NULL,
	record_id     UUID,
	section       TEXT        NOT NULL DEFAULT '',
	date_received TEXT        NOT NULL DEFAULT '',
	detail        TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema applies the tracking DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
