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

// OfferedSlot is a slot proposed to a client during communication. Slots
// are deactivated rather than deleted once used or withdrawn.
type OfferedSlot struct {
	ID         uuid.UUID `db:"id"`
	ClientID   uuid.UUID `db:"client_id"`
	Day        int       `db:"day"`
	TimeOfDay  string    `db:"time_of_day"`
	Clinicians []string  `db:"clinicians"`
	Active     bool      `db:"active"`
	CreatedAt  time.Time `db:"created_at"`
}

// ScheduledAppointment is a validated, committed appointment.
type ScheduledAppointment struct {
	ID                uuid.UUID  `db:"id"`
	ClientID          uuid.UUID  `db:"client_id"`
	Day               int        `db:"day"`
	TimeOfDay         string     `db:"time_of_day"`
	Clinician         string     `db:"clinician"`
	StartDate         time.Time  `db:"start_date"`
	Recurrence        string     `db:"recurrence"`
	CommunicationNote *string    `db:"communication_note"`
	OfferedSlotID     *uuid.UUID `db:"offered_slot_id"`
	CreatedAt         time.Time  `db:"created_at"`
}

// Repository provides database operations for scheduling
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new scheduling repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSlot inserts an offered slot
func (r *Repository) CreateSlot(ctx context.Context, slot *OfferedSlot) error {
	query := `
		INSERT INTO offered_slots (id, client_id, day, time_of_day, clinicians, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		slot.ID, slot.ClientID, slot.Day, slot.TimeOfDay, slot.Clinicians, slot.Active, slot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create offered slot: %w", err)
	}
	return nil
}

// GetSlot retrieves an offered slot by ID
func (r *Repository) GetSlot(ctx context.Context, id uuid.UUID) (*OfferedSlot, error) {
	query := `SELECT id, client_id, day, time_of_day, clinicians, active, created_at
		FROM offered_slots WHERE id = $1`

	var s OfferedSlot
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.ClientID, &s.Day, &s.TimeOfDay, &s.Clinicians, &s.Active, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("offered slot not found")
		}
		return nil, fmt.Errorf("failed to get offered slot: %w", err)
	}
	return &s, nil
}

// ListSlots retrieves a client's active offered slots
func (r *Repository) ListSlots(ctx context.Context, clientID uuid.UUID) ([]OfferedSlot, error) {
	query := `SELECT id, client_id, day, time_of_day, clinicians, active, created_at
		FROM offered_slots WHERE client_id = $1 AND active ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offered slots: %w", err)
	}
	defer rows.Close()

	slots := []OfferedSlot{}
	for rows.Next() {
		var s OfferedSlot
		if err := rows.Scan(&s.ID, &s.ClientID, &s.Day, &s.TimeOfDay, &s.Clinicians, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offered slot: %w", err)
		}
		slots = append(slots, s)
	}

	return slots, rows.Err()
}

// DeactivateSlot marks an offered slot inactive
func (r *Repository) DeactivateSlot(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `UPDATE offered_slots SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate offered slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("offered slot not found")
	}
	return nil
}

// CreateAppointment inserts a scheduled appointment
func (r *Repository) CreateAppointment(ctx context.Context, a *ScheduledAppointment) error {
	query := `
		INSERT INTO scheduled_appointments (
			id, client_id, day, time_of_day, clinician, start_date,
			recurrence, communication_note, offered_slot_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ClientID, a.Day, a.TimeOfDay, a.Clinician, a.StartDate,
		a.Recurrence, a.CommunicationNote, a.OfferedSlotID, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// DeleteAppointment removes an appointment. Used to roll back an insert
// whose lifecycle transition was rejected.
func (r *Repository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM scheduled_appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

// GetAppointmentByClient retrieves a client's appointment
func (r *Repository) GetAppointmentByClient(ctx context.Context, clientID uuid.UUID) (*ScheduledAppointment, error) {
	query := `SELECT id, client_id, day, time_of_day, clinician, start_date,
			recurrence, communication_note, offered_slot_id, created_at
		FROM scheduled_appointments WHERE client_id = $1
		ORDER BY created_at DESC LIMIT 1`

	var a ScheduledAppointment
	err := r.pool.QueryRow(ctx, query, clientID).Scan(
		&a.ID, &a.ClientID, &a.Day, &a.TimeOfDay, &a.Clinician, &a.StartDate,
		&a.Recurrence, &a.CommunicationNote, &a.OfferedSlotID, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no appointment for client")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &a, nil
}
