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

// Client represents the client database model. The status column is owned by
// the lifecycle service; nothing else writes it.
type Client struct {
	ID                  uuid.UUID  `db:"id"`
	Name                string     `db:"name"`
	Email               string     `db:"email"`
	Phone               string     `db:"phone"`
	Status              string     `db:"status"`
	Version             int64      `db:"version"`
	InitialOutreachDate *time.Time `db:"initial_outreach_date"`
	FollowUp1Date       *time.Time `db:"follow_up1_date"`
	FollowUp2Date       *time.Time `db:"follow_up2_date"`
	ScheduledDate       *time.Time `db:"scheduled_date"`
	ClosedDate          *time.Time `db:"closed_date"`
	ClosedReason        *string    `db:"closed_reason"`
	ClosedFromWorkflow  *string    `db:"closed_from_workflow"`
	ClosedFromStatus    *string    `db:"closed_from_status"`
	ReferralEmailSentAt *time.Time `db:"referral_email_sent_at"`
	ReferralClinicNames []string   `db:"referral_clinic_names"`
	EvaluationNote      *string    `db:"evaluation_note"`
	FlagNote            *string    `db:"flag_note"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

const clientNotFoundMsg = "client not found"

const clientColumns = `id, name, email, phone, status, version,
	initial_outreach_date, follow_up1_date, follow_up2_date, scheduled_date,
	closed_date, closed_reason, closed_from_workflow, closed_from_status,
	referral_email_sent_at, referral_clinic_names,
	evaluation_note, flag_note, created_at, updated_at`

// Repository provides database operations for clients
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new clients repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new client
func (r *Repository) Create(ctx context.Context, c *Client) error {
	query := `
		INSERT INTO clients (
			id, name, email, phone, status, version,
			evaluation_note, flag_note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.Status, c.Version,
		c.EvaluationNote, c.FlagNote, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// GetByID retrieves a client by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return client, nil
}

// ListByStatuses retrieves all clients whose status is in the given set,
// oldest first.
func (r *Repository) ListByStatuses(ctx context.Context, statuses []string) ([]Client, error) {
	if len(statuses) == 0 {
		return []Client{}, nil
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE status = ANY($1) ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *client)
	}

	return clients, rows.Err()
}

// UpdateState persists a state mutation using optimistic concurrency. The
// client's Version field must hold the version that was read; on success it
// is incremented in place. A stale version returns a Conflict error and the
// caller must reload and retry.
func (r *Repository) UpdateState(ctx context.Context, c *Client) error {
	query := `
		UPDATE clients SET
			status = $2,
			initial_outreach_date = $3,
			follow_up1_date = $4,
			follow_up2_date = $5,
			scheduled_date = $6,
			closed_date = $7,
			closed_reason = $8,
			closed_from_workflow = $9,
			closed_from_status = $10,
			referral_email_sent_at = $11,
			referral_clinic_names = $12,
			version = version + 1,
			updated_at = $13
		WHERE id = $1 AND version = $14`

	now := time.Now()
	result, err := r.pool.Exec(ctx, query,
		c.ID, c.Status,
		c.InitialOutreachDate, c.FollowUp1Date, c.FollowUp2Date, c.ScheduledDate,
		c.ClosedDate, c.ClosedReason, c.ClosedFromWorkflow, c.ClosedFromStatus,
		c.ReferralEmailSentAt, c.ReferralClinicNames,
		now, c.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update client state: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the row is gone or someone else won the version race.
		if _, getErr := r.GetByID(ctx, c.ID); getErr != nil {
			return getErr
		}
		return apperr.Conflict("client was modified concurrently, reload and retry")
	}

	c.Version++
	c.UpdatedAt = now
	return nil
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Status, &c.Version,
		&c.InitialOutreachDate, &c.FollowUp1Date, &c.FollowUp2Date, &c.ScheduledDate,
		&c.ClosedDate, &c.ClosedReason, &c.ClosedFromWorkflow, &c.ClosedFromStatus,
		&c.ReferralEmailSentAt, &c.ReferralClinicNames,
		&c.EvaluationNote, &c.FlagNote, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
