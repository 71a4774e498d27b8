package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"doctrack/internal/tracking/models"
	"doctrack/pkg/platform/sentinel"
	txcontext "doctrack/pkg/platform/tx"
)

// Postgres persists counters in the counters table. When the context carries
// a transaction (see pkg/platform/tx), Get takes a row lock so concurrent
// allocators on other replicas serialize on the database even without the
// in-process keyed lock.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// BeginTx opens the transaction WithTx joins to the context so Get locks the
// counter row.
func (s *Postgres) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) (dbExecutor, bool) {
	if tx, ok := txcontext.From(ctx); ok {
		return tx, true
	}
	return s.db, false
}

func (s *Postgres) Get(ctx context.Context, scope models.Scope, section string) (*models.Counter, error) {
	execer, inTx := s.execer(ctx)
	if inTx {
		// FOR UPDATE cannot lock a row that does not exist yet. Reserve the
		// row first so two transactions racing on a never-seen pair serialize
		// here instead of both issuing the same first sequence.
		reserve := `
			INSERT INTO counters (scope, section) VALUES ($1, $2)
			ON CONFLICT (scope, section) DO NOTHING
		`
		if _, err := execer.ExecContext(ctx, reserve, string(scope), section); err != nil {
			return nil, fmt.Errorf("reserve counter row: %w", err)
		}
	}

	query := `
		SELECT scope, section, current_number, last_date_used
		FROM counters
		WHERE scope = $1 AND section = $2
	`
	if inTx {
		query += ` FOR UPDATE`
	}

	var ctr models.Counter
	var lastDate sql.NullTime
	err := execer.QueryRowContext(ctx, query, string(scope), section).Scan(
		&ctr.Scope,
		&ctr.Section,
		&ctr.CurrentNumber,
		&lastDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get counter: %w", err)
	}
	if lastDate.Valid {
		ctr.LastDateUsed = lastDate.Time.Format(models.DateLayout)
	}
	if inTx && ctr.CurrentNumber == 0 && !lastDate.Valid {
		// The row is the reservation from above: the pair has never been
		// allocated. Report not-found while keeping the row lock held.
		return nil, sentinel.ErrNotFound
	}
	return &ctr, nil
}

func (s *Postgres) Upsert(ctx context.Context, ctr *models.Counter) error {
	execer, _ := s.execer(ctx)

	var lastDate sql.NullTime
	if ctr.LastDateUsed != "" {
		t, err := time.Parse(models.DateLayout, ctr.LastDateUsed)
		if err != nil {
			return fmt.Errorf("counter last date %q: %w", ctr.LastDateUsed, err)
		}
		lastDate = sql.NullTime{Time: t, Valid: true}
	}

	query := `
		INSERT INTO counters (scope, section, current_number, last_date_used)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, section)
		DO UPDATE SET current_number = EXCLUDED.current_number,
		              last_date_used = EXCLUDED.last_date_used
	`
	if _, err := execer.ExecContext(ctx, query, string(ctr.Scope), ctr.Section, ctr.CurrentNumber, lastDate); err != nil {
		return fmt.Errorf("upsert counter: %w", err)
	}
	return nil
}
