package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intake_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Attempt statuses. An attempt that does not exist yet is simply absent;
// rows only ever move pending -> sent.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// Attempt represents one numbered outreach email for a client. Rows are
// append-only; attempt numbers are contiguous per client starting at 1.
type Attempt struct {
	ID                uuid.UUID  `db:"id"`
	ClientID          uuid.UUID  `db:"client_id"`
	AttemptNumber     int        `db:"attempt_number"`
	Status            string     `db:"status"`
	SentAt            *time.Time `db:"sent_at"`
	ResponseWindowEnd *time.Time `db:"response_window_end"`
	ResponseDetected  bool       `db:"response_detected"`
	MessageID         *string    `db:"message_id"`
	CreatedAt         time.Time  `db:"created_at"`
}

const attemptColumns = `id, client_id, attempt_number, status, sent_at,
	response_window_end, response_detected, message_id, created_at`

// Repository provides database operations for outreach attempts
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new outreach repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending attempt. Idempotent on (client, attempt number):
// if the attempt already exists the existing row is returned unchanged.
func (r *Repository) Create(ctx context.Context, a *Attempt) (*Attempt, error) {
	query := `
		INSERT INTO outreach_attempts (id, client_id, attempt_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (client_id, attempt_number) DO NOTHING`

	result, err := r.pool.Exec(ctx, query, a.ID, a.ClientID, a.AttemptNumber, a.Status, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.GetByClientAndNumber(ctx, a.ClientID, a.AttemptNumber)
	}

	return a, nil
}

// GetByID retrieves an attempt by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM outreach_attempts WHERE id = $1`

	attempt, err := scanAttempt(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("outreach attempt not found")
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return attempt, nil
}

// GetByClientAndNumber retrieves a specific attempt for a client
func (r *Repository) GetByClientAndNumber(ctx context.Context, clientID uuid.UUID, number int) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM outreach_attempts WHERE client_id = $1 AND attempt_number = $2`

	attempt, err := scanAttempt(r.pool.QueryRow(ctx, query, clientID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("outreach attempt not found")
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return attempt, nil
}

// ListByClient retrieves all attempts for a client ordered by attempt number
func (r *Repository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM outreach_attempts WHERE client_id = $1 ORDER BY attempt_number ASC`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, *attempt)
	}

	return attempts, rows.Err()
}

// LatestSent retrieves the highest-numbered sent attempt for a client, or
// NotFound when no attempt has been sent yet.
func (r *Repository) LatestSent(ctx context.Context, clientID uuid.UUID) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM outreach_attempts
		WHERE client_id = $1 AND status = $2
		ORDER BY attempt_number DESC LIMIT 1`

	attempt, err := scanAttempt(r.pool.QueryRow(ctx, query, clientID, StatusSent))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no sent attempt for client")
		}
		return nil, fmt.Errorf("failed to get latest sent attempt: %w", err)
	}

	return attempt, nil
}

// MarkSent transitions an attempt from pending to sent, stamping the send
// time, response window end, and message ID. Idempotent: marking an attempt
// that is already sent is a no-op.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, sentAt, windowEnd time.Time, messageID string) error {
	query := `
		UPDATE outreach_attempts
		SET status = $2, sent_at = $3, response_window_end = $4, message_id = $5
		WHERE id = $1 AND status = $6`

	result, err := r.pool.Exec(ctx, query, id, StatusSent, sentAt, windowEnd, messageID, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark attempt sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if existing.Status == StatusSent {
			return nil
		}
		return apperr.Conflict("attempt is not pending")
	}

	return nil
}

// MarkResponseDetected flags every sent attempt of the client as answered.
// Called when the reply monitor observes an inbound message.
func (r *Repository) MarkResponseDetected(ctx context.Context, clientID uuid.UUID) error {
	query := `UPDATE outreach_attempts SET response_detected = TRUE WHERE client_id = $1 AND status = $2`

	if _, err := r.pool.Exec(ctx, query, clientID, StatusSent); err != nil {
		return fmt.Errorf("failed to mark response detected: %w", err)
	}
	return nil
}

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var a Attempt
	err := row.Scan(
		&a.ID, &a.ClientID, &a.AttemptNumber, &a.Status, &a.SentAt,
		&a.ResponseWindowEnd, &a.ResponseDetected, &a.MessageID, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
