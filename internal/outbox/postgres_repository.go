package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackerhq/tracker/internal/issue"
)

const schema = `
	CREATE TABLE IF NOT EXISTS tracker_outbox (
		id          UUID PRIMARY KEY,
		issue_id    TEXT NOT NULL UNIQUE,
		status      TEXT NOT NULL,
		attempts    INTEGER NOT NULL DEFAULT 0,
		last_error  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresRepository is a PostgreSQL implementation of Repository, shared by
// every shell and the reconciliation worker.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL outbox repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the outbox table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}

// Enqueue upserts the pending status for an issue.
func (r *PostgresRepository) Enqueue(ctx context.Context, issueID string, status issue.Status) (Entry, error) {
	query := `
		INSERT INTO tracker_outbox (id, issue_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (issue_id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = now()
		RETURNING id, issue_id, status, attempts, last_error, created_at, updated_at
	`

	var e Entry
	var st string
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), issueID, status.String()).Scan(
		&e.ID,
		&e.IssueID,
		&st,
		&e.Attempts,
		&e.LastError,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("enqueue status write: %w", err)
	}
	e.Status = issue.Status(st)
	return e, nil
}

// Pending returns entries ordered by creation time.
func (r *PostgresRepository) Pending(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT id, issue_id, status, attempts, last_error, created_at, updated_at
		FROM tracker_outbox
		ORDER BY created_at, issue_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var st string
		if err := rows.Scan(&e.ID, &e.IssueID, &st, &e.Attempts, &e.LastError, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Status = issue.Status(st)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Complete deletes the entry if it still carries status.
func (r *PostgresRepository) Complete(ctx context.Context, issueID string, status issue.Status) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM tracker_outbox WHERE issue_id = $1 AND status = $2`,
		issueID, status.String(),
	)
	return err
}

// Remove deletes the entry for an issue regardless of its status.
func (r *PostgresRepository) Remove(ctx context.Context, issueID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM tracker_outbox WHERE issue_id = $1`, issueID); err != nil {
		return fmt.Errorf("remove status write: %w", err)
	}
	return nil
}

// RecordFailure notes a failed attempt.
func (r *PostgresRepository) RecordFailure(ctx context.Context, issueID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE tracker_outbox
		SET attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE issue_id = $1
	`, issueID, msg)
	return err
}
