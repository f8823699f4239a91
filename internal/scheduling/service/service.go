package service

import (
	"context"
	"strings"
	"time"

	clientdomain "intake_portal_backend/internal/clients/domain"
	clientrepo "intake_portal_backend/internal/clients/repository"
	"intake_portal_backend/internal/events"
	"intake_portal_backend/internal/scheduling/domain"
	"intake_portal_backend/internal/scheduling/repository"
	"intake_portal_backend/internal/settings"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository defines what the service needs from the persistence layer
type Repository interface {
	CreateSlot(ctx context.Context, slot *repository.OfferedSlot) error
	GetSlot(ctx context.Context, id uuid.UUID) (*repository.OfferedSlot, error)
	ListSlots(ctx context.Context, clientID uuid.UUID) ([]repository.OfferedSlot, error)
	DeactivateSlot(ctx context.Context, id uuid.UUID) error
	CreateAppointment(ctx context.Context, a *repository.ScheduledAppointment) error
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	GetAppointmentByClient(ctx context.Context, clientID uuid.UUID) (*repository.ScheduledAppointment, error)
}

// Lifecycle is the slice of the clients service the scheduler needs.
type Lifecycle interface {
	GetClient(ctx context.Context, id uuid.UUID) (*clientrepo.Client, error)
	Transition(ctx context.Context, clientID uuid.UUID, ev clientdomain.Event) (*clientrepo.Client, error)
}

// Service validates appointment proposals and commits them.
type Service struct {
	repo      Repository
	lifecycle Lifecycle
	bus       events.Bus
	settings  settings.Settings
	log       *logger.Logger
}

// NewService creates a new scheduling service
func NewService(repo Repository, lifecycle Lifecycle, bus events.Bus, cfg settings.Settings, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		lifecycle: lifecycle,
		bus:       bus,
		settings:  cfg,
		log:       log,
	}
}

// OfferSlotParams carries a new slot offer.
type OfferSlotParams struct {
	Day        time.Weekday
	TimeOfDay  string
	Clinicians []string
}

// OfferSlot records a slot proposed to the client.
func (s *Service) OfferSlot(ctx context.Context, clientID uuid.UUID, params OfferSlotParams) (*repository.OfferedSlot, error) {
	if _, err := time.Parse("15:04", params.TimeOfDay); err != nil {
		return nil, apperr.Validation("time of day must be in HH:MM format")
	}
	clinicians := make([]string, 0, len(params.Clinicians))
	for _, c := range params.Clinicians {
		if name := strings.TrimSpace(c); name != "" {
			clinicians = append(clinicians, name)
		}
	}
	if len(clinicians) == 0 {
		return nil, apperr.Validation("at least one clinician is required")
	}

	if _, err := s.lifecycle.GetClient(ctx, clientID); err != nil {
		return nil, err
	}

	slot := &repository.OfferedSlot{
		ID:         uuid.New(),
		ClientID:   clientID,
		Day:        int(params.Day),
		TimeOfDay:  params.TimeOfDay,
		Clinicians: clinicians,
		Active:     true,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// ListOfferedSlots retrieves a client's active slots.
func (s *Service) ListOfferedSlots(ctx context.Context, clientID uuid.UUID) ([]repository.OfferedSlot, error) {
	return s.repo.ListSlots(ctx, clientID)
}

// DeactivateSlot withdraws an offered slot.
func (s *Service) DeactivateSlot(ctx context.Context, slotID uuid.UUID) error {
	return s.repo.DeactivateSlot(ctx, slotID)
}

// ScheduleParams carries an appointment proposal.
type ScheduleParams struct {
	Day               time.Weekday
	TimeOfDay         string
	Clinician         string
	StartDate         time.Time
	Recurrence        domain.Recurrence
	OfferedSlotID     *uuid.UUID
	CommunicationNote string
}

// ValidateAndSchedule validates the proposal, persists the appointment,
// fires the terminal scheduled transition, and consumes the offered slot.
func (s *Service) ValidateAndSchedule(ctx context.Context, clientID uuid.UUID, params ScheduleParams) (*repository.ScheduledAppointment, error) {
	client, err := s.lifecycle.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	current, err := clientdomain.Parse(client.Status)
	if err != nil {
		return nil, apperr.Configuration("client has unrecognized status: " + client.Status)
	}

	proposal := domain.Proposal{
		Day:               params.Day,
		TimeOfDay:         params.TimeOfDay,
		Clinician:         params.Clinician,
		StartDate:         params.StartDate,
		Recurrence:        params.Recurrence,
		CommunicationNote: params.CommunicationNote,
	}

	var slot *repository.OfferedSlot
	if params.OfferedSlotID != nil {
		slot, err = s.repo.GetSlot(ctx, *params.OfferedSlotID)
		if err != nil {
			return nil, err
		}
		if slot.ClientID != clientID {
			return nil, apperr.Validation("offered slot belongs to a different client")
		}
		if !slot.Active {
			return nil, apperr.Validation("offered slot is no longer active")
		}
		proposal.SlotClinicians = slot.Clinicians
	}

	clinician, err := domain.Validate(proposal, current, time.Now(), s.settings.SchedulingLeadDays)
	if err != nil {
		return nil, err
	}

	var note *string
	if trimmed := strings.TrimSpace(params.CommunicationNote); trimmed != "" {
		note = &trimmed
	}
	appointment := &repository.ScheduledAppointment{
		ID:                uuid.New(),
		ClientID:          clientID,
		Day:               int(params.Day),
		TimeOfDay:         params.TimeOfDay,
		Clinician:         clinician,
		StartDate:         params.StartDate,
		Recurrence:        string(params.Recurrence),
		CommunicationNote: note,
		OfferedSlotID:     params.OfferedSlotID,
		CreatedAt:         time.Now(),
	}

	if err := s.repo.CreateAppointment(ctx, appointment); err != nil {
		return nil, err
	}

	if _, err := s.lifecycle.Transition(ctx, clientID, clientdomain.StaffAction{Kind: clientdomain.ActionSchedule}); err != nil {
		// An appointment row may only exist for a scheduled client.
		if delErr := s.repo.DeleteAppointment(ctx, appointment.ID); delErr != nil {
			s.log.WithClientID(clientID.String()).Error("failed to remove appointment after rejected transition", "error", delErr)
		}
		return nil, err
	}

	if slot != nil {
		if err := s.repo.DeactivateSlot(ctx, slot.ID); err != nil {
			s.log.WithClientID(clientID.String()).Error("failed to deactivate consumed slot", "error", err)
		}
	}

	s.bus.Publish(ctx, events.AppointmentScheduled{
		BaseEvent:     events.NewBaseEvent(),
		ClientID:      clientID,
		AppointmentID: appointment.ID,
		Day:           params.Day.String(),
		TimeOfDay:     params.TimeOfDay,
		Clinician:     clinician,
		StartDate:     params.StartDate,
		Recurrence:    string(params.Recurrence),
	})

	return appointment, nil
}

// GetAppointment retrieves a client's latest appointment.
func (s *Service) GetAppointment(ctx context.Context, clientID uuid.UUID) (*repository.ScheduledAppointment, error) {
	return s.repo.GetAppointmentByClient(ctx, clientID)
}
