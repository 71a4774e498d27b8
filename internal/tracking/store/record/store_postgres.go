package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"doctrack/internal/tracking/models"
	"doctrack/pkg/platform/sentinel"
	txcontext "doctrack/pkg/platform/tx"
	"doctrack/pkg/requestcontext"
)

// Postgres persists records in the records table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recordColumns = `
	id, section, date_received, subject, sender,
	office_control_number, section_control_number,
	office_sequence, section_sequence, created_at, updated_at`

// Create inserts the record, assigning its ID and timestamps.
func (s *Postgres) Create(ctx context.Context, rec *models.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := requestcontext.Now(ctx)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID,
		rec.Section,
		rec.DateReceived,
		rec.Subject,
		rec.Sender,
		rec.OfficeControlNumber,
		rec.SectionControlNumber,
		rec.OfficeSequence,
		rec.SectionSequence,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	rec, err := scanRecord(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) ListBySectionAndDate(ctx context.Context, section, date string) ([]*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE section = $1 AND date_received = $2
		ORDER BY created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, section, date)
	if err != nil {
		return nil, fmt.Errorf("query records by section and date: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Postgres) ListByDate(ctx context.Context, date string) ([]*models.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE date_received = $1
		ORDER BY created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query records by date: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Update rewrites descriptive fields only; control numbers and sequences are
// immutable once assigned.
func (s *Postgres) Update(ctx context.Context, rec *models.Record) error {
	rec.UpdatedAt = requestcontext.Now(ctx)
	query := `
		UPDATE records
		SET subject = $2, sender = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, rec.ID, rec.Subject, rec.Sender, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var dateReceived time.Time
	err := row.Scan(
		&rec.ID,
		&rec.Section,
		&dateReceived,
		&rec.Subject,
		&rec.Sender,
		&rec.OfficeControlNumber,
		&rec.SectionControlNumber,
		&rec.OfficeSequence,
		&rec.SectionSequence,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.DateReceived = dateReceived.Format(models.DateLayout)
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
