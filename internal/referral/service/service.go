package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"intake_portal_backend/internal/clients/domain"
	clientrepo "intake_portal_backend/internal/clients/repository"
	clientsvc "intake_portal_backend/internal/clients/service"
	"intake_portal_backend/internal/email"
	"intake_portal_backend/internal/events"
	"intake_portal_backend/internal/referral/repository"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Closure reasons recorded on the client. The asymmetry is intentional:
// closing without any referral or contact requires an explicit
// acknowledgement from staff so cases are never silently dropped.
const (
	ReasonReferralSent     = "referral_sent"
	ReasonClosedWithoutRef = "closed_without_referral"
	ReasonClosedNoContact  = "closed_no_contact"
)

// Repository defines what the service needs from the persistence layer
type Repository interface {
	AppendReopen(ctx context.Context, entry *repository.ReopenHistoryEntry) error
	DeleteReopen(ctx context.Context, id uuid.UUID) error
	ListReopens(ctx context.Context, clientID uuid.UUID) ([]repository.ReopenHistoryEntry, error)
}

// Lifecycle is the slice of the clients service the referral flow needs.
type Lifecycle interface {
	GetClient(ctx context.Context, id uuid.UUID) (*clientrepo.Client, error)
	Close(ctx context.Context, clientID uuid.UUID, params clientsvc.CloseParams) (*clientrepo.Client, error)
	Reopen(ctx context.Context, clientID uuid.UUID, target domain.Status) (*clientrepo.Client, domain.Status, error)
	SetReferralSent(ctx context.Context, clientID uuid.UUID, sentAt time.Time, clinicNames []string) (*clientrepo.Client, error)
}

// Service owns referrals, case closure, and reopening.
type Service struct {
	repo      Repository
	lifecycle Lifecycle
	sender    email.Sender
	bus       events.Bus
	log       *logger.Logger

	// Clinic selections are working state only; nothing persists until
	// the referral email actually goes out.
	mu         sync.Mutex
	selections map[uuid.UUID][]string
}

// NewService creates a new referral service
func NewService(repo Repository, lifecycle Lifecycle, sender email.Sender, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		lifecycle:  lifecycle,
		sender:     sender,
		bus:        bus,
		log:        log,
		selections: make(map[uuid.UUID][]string),
	}
}

// SelectClinics stores the working clinic selection for a client.
func (s *Service) SelectClinics(ctx context.Context, clientID uuid.UUID, clinics []string) error {
	cleaned := make([]string, 0, len(clinics))
	for _, c := range clinics {
		if name := strings.TrimSpace(c); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return apperr.Validation("at least one clinic is required")
	}

	if _, err := s.lifecycle.GetClient(ctx, clientID); err != nil {
		return err
	}

	s.mu.Lock()
	s.selections[clientID] = cleaned
	s.mu.Unlock()
	return nil
}

// SelectedClinics returns the working selection, or nil when none exists.
func (s *Service) SelectedClinics(clientID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selections[clientID]...)
}

// SendReferral emails the selected clinics to the client and records the
// referral metadata. The status is untouched; only CloseCase concludes.
func (s *Service) SendReferral(ctx context.Context, clientID uuid.UUID) (*clientrepo.Client, error) {
	s.mu.Lock()
	clinics := append([]string(nil), s.selections[clientID]...)
	s.mu.Unlock()
	if len(clinics) == 0 {
		return nil, apperr.Validation("no clinics selected for referral")
	}

	client, err := s.lifecycle.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sender.SendReferralEmail(ctx, client.Email, email.ReferralParams{
		ClientName:  client.Name,
		ClinicNames: clinics,
	}); err != nil {
		return nil, apperr.Transient("failed to send referral email", err)
	}

	sentAt := time.Now()
	client, err = s.RecordReferralSent(ctx, clientID, clinics, sentAt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.selections, clientID)
	s.mu.Unlock()

	return client, nil
}

// RecordReferralSent persists the referral metadata and publishes the
// referral event.
func (s *Service) RecordReferralSent(ctx context.Context, clientID uuid.UUID, clinicNames []string, sentAt time.Time) (*clientrepo.Client, error) {
	client, err := s.lifecycle.SetReferralSent(ctx, clientID, sentAt, clinicNames)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ReferralSent{
		BaseEvent:   events.NewBaseEvent(),
		ClientID:    clientID,
		ClinicNames: clinicNames,
		SentAt:      sentAt,
	})

	return client, nil
}

// CloseCaseParams carries the closure request.
type CloseCaseParams struct {
	// AcknowledgeNoReferral must be set when closing a case that never
	// had a referral sent.
	AcknowledgeNoReferral bool
	// NoContact marks the closure as a no-contact outcome.
	NoContact bool
	Workflow  string
}

// CloseCase concludes a client's case. When a referral was sent the reason
// is referral_sent; otherwise staff must explicitly acknowledge that the
// case is being closed without one.
func (s *Service) CloseCase(ctx context.Context, clientID uuid.UUID, params CloseCaseParams) (*clientrepo.Client, error) {
	client, err := s.lifecycle.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var reason string
	target := domain.StatusClosedOther
	switch {
	case client.ReferralEmailSentAt != nil:
		reason = ReasonReferralSent
	case params.AcknowledgeNoReferral && params.NoContact:
		reason = ReasonClosedNoContact
		target = domain.StatusClosedNoContact
	case params.AcknowledgeNoReferral:
		reason = ReasonClosedWithoutRef
	default:
		return nil, apperr.Validation("closing without a sent referral requires explicit acknowledgement")
	}

	return s.lifecycle.Close(ctx, clientID, clientsvc.CloseParams{
		Target:   target,
		Reason:   reason,
		Workflow: params.Workflow,
	})
}

// ReopenCaseParams carries the reopen request.
type ReopenCaseParams struct {
	TargetStatus domain.Status
	Reason       string
	Actor        uuid.UUID
}

// ReopenCase moves a closed case back to the chosen status and appends the
// reopen history entry. The reason is mandatory; audit without a why is
// useless.
func (s *Service) ReopenCase(ctx context.Context, clientID uuid.UUID, params ReopenCaseParams) (*clientrepo.Client, error) {
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return nil, apperr.Validation("a reason is required to reopen a case")
	}

	current, err := s.lifecycle.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	prevStatus, err := domain.Parse(current.Status)
	if err != nil {
		return nil, err
	}
	if _, err := domain.Transition(prevStatus, domain.StaffAction{Kind: domain.ActionReopen, Target: params.TargetStatus}); err != nil {
		return nil, err
	}

	// A reopen without its audit row must not exist, so the history entry
	// goes in first and the reopen is only applied once it is durable.
	entry := &repository.ReopenHistoryEntry{
		ID:             uuid.New(),
		ClientID:       clientID,
		PreviousStatus: string(prevStatus),
		NewStatus:      string(params.TargetStatus),
		Reason:         reason,
		ReopenedBy:     params.Actor,
		ReopenedAt:     time.Now(),
	}
	if err := s.repo.AppendReopen(ctx, entry); err != nil {
		return nil, err
	}

	client, prevStatus, err := s.lifecycle.Reopen(ctx, clientID, params.TargetStatus)
	if err != nil {
		if delErr := s.repo.DeleteReopen(ctx, entry.ID); delErr != nil {
			s.log.WithClientID(clientID.String()).Error("failed to remove reopen entry after rejected reopen", "error", delErr)
		}
		return client, err
	}

	s.bus.Publish(ctx, events.ClientReopened{
		BaseEvent:      events.NewBaseEvent(),
		ClientID:       clientID,
		PreviousStatus: string(prevStatus),
		NewStatus:      string(params.TargetStatus),
		Reason:         reason,
		ReopenedBy:     params.Actor,
	})

	return client, nil
}

// ListReopenHistory retrieves a client's reopen history, newest first.
func (s *Service) ListReopenHistory(ctx context.Context, clientID uuid.UUID) ([]repository.ReopenHistoryEntry, error) {
	return s.repo.ListReopens(ctx, clientID)
}
