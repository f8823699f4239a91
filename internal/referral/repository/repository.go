package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReopenHistoryEntry records one reopen of a closed case. Append-only.
type ReopenHistoryEntry struct {
	ID             uuid.UUID `db:"id"`
	ClientID       uuid.UUID `db:"client_id"`
	PreviousStatus string    `db:"previous_status"`
	NewStatus      string    `db:"new_status"`
	Reason         string    `db:"reason"`
	ReopenedBy     uuid.UUID `db:"reopened_by"`
	ReopenedAt     time.Time `db:"reopened_at"`
}

// Repository provides database operations for reopen history
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new referral repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendReopen inserts a reopen history entry
func (r *Repository) AppendReopen(ctx context.Context, entry *ReopenHistoryEntry) error {
	query := `
		INSERT INTO reopen_history (id, client_id, previous_status, new_status, reason, reopened_by, reopened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.ClientID, entry.PreviousStatus, entry.NewStatus,
		entry.Reason, entry.ReopenedBy, entry.ReopenedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append reopen history: %w", err)
	}
	return nil
}

// DeleteReopen removes a reopen history entry. Used to roll back an audit
// row whose reopen was never applied.
func (r *Repository) DeleteReopen(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM reopen_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reopen entry: %w", err)
	}
	return nil
}

// ListReopens retrieves a client's reopen history, newest first
func (r *Repository) ListReopens(ctx context.Context, clientID uuid.UUID) ([]ReopenHistoryEntry, error) {
	query := `
		SELECT id, client_id, previous_status, new_status, reason, reopened_by, reopened_at
		FROM reopen_history WHERE client_id = $1 ORDER BY reopened_at DESC`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reopen history: %w", err)
	}
	defer rows.Close()

	entries := []ReopenHistoryEntry{}
	for rows.Next() {
		var e ReopenHistoryEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.PreviousStatus, &e.NewStatus, &e.Reason, &e.ReopenedBy, &e.ReopenedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reopen entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
