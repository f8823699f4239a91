package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intake_portal_backend/internal/clients/domain"
	"intake_portal_backend/internal/clients/repository"
	"intake_portal_backend/internal/events"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/logger"
	"intake_portal_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository defines what the service needs from the persistence layer
type Repository interface {
	Create(ctx context.Context, c *repository.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Client, error)
	ListByStatuses(ctx context.Context, statuses []string) ([]repository.Client, error)
	UpdateState(ctx context.Context, c *repository.Client) error
}

// Service owns the client lifecycle. Every status mutation goes through
// Transition, Close, or Reopen, all of which serialize per client.
type Service struct {
	repo  Repository
	bus   events.Bus
	log   *logger.Logger
	locks *keyedMutex
}

// NewService creates a new client lifecycle service
func NewService(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		bus:   bus,
		log:   log,
		locks: newKeyedMutex(),
	}
}

// CreateClientParams holds the fields needed to register a new client.
type CreateClientParams struct {
	Name           string
	Email          string
	Phone          string
	EvaluationNote string
}

// CreateClient registers a new client in the new status.
func (s *Service) CreateClient(ctx context.Context, params CreateClientParams) (*repository.Client, error) {
	name := strings.TrimSpace(params.Name)
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if email == "" {
		return nil, apperr.Validation("email is required")
	}

	now := time.Now()
	client := &repository.Client{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phone:     phone.NormalizeE164(params.Phone),
		Status:    string(domain.StatusNew),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if note := strings.TrimSpace(params.EvaluationNote); note != "" {
		client.EvaluationNote = &note
	}

	if err := s.repo.Create(ctx, client); err != nil {
		return nil, err
	}

	return client, nil
}

// GetClient retrieves a single client by ID.
func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*repository.Client, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByStatuses retrieves clients in any of the given statuses. Stored
// rows may still carry retired status strings, so the filter matches the
// legacy aliases of each status alongside its canonical value.
func (s *Service) ListByStatuses(ctx context.Context, statuses []domain.Status) ([]repository.Client, error) {
	raw := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if !domain.IsKnown(st) {
			return nil, apperr.Validation("unknown status: " + string(st))
		}
		raw = append(raw, string(st))
		raw = append(raw, domain.LegacyAliases(st)...)
	}
	return s.repo.ListByStatuses(ctx, raw)
}

// Transition applies a lifecycle event to a client. The rules live in the
// domain package; this method adds loading, per-client serialization,
// milestone timestamps, optimistic persistence, and event publication.
// On rejection the client is returned unchanged alongside the error so
// callers can report the current state.
func (s *Service) Transition(ctx context.Context, clientID uuid.UUID, ev domain.Event) (*repository.Client, error) {
	unlock := s.locks.Lock(clientID)
	defer unlock()

	return s.transitionLocked(ctx, clientID, ev, nil)
}

// CloseParams carries the closure metadata recorded alongside the status.
type CloseParams struct {
	Target   domain.Status
	Reason   string
	Workflow string
}

// Close moves a client to a closed status and records when, why, and from
// which status the case was closed.
func (s *Service) Close(ctx context.Context, clientID uuid.UUID, params CloseParams) (*repository.Client, error) {
	if !params.Target.IsClosed() {
		return nil, apperr.Validation("close target must be a closed status")
	}
	if params.Workflow != "" && !domain.IsKnownWorkflow(params.Workflow) {
		return nil, apperr.Validation(fmt.Sprintf("unknown closure workflow %q", params.Workflow))
	}

	unlock := s.locks.Lock(clientID)
	defer unlock()

	now := time.Now()
	return s.transitionLocked(ctx, clientID,
		domain.StaffAction{Kind: domain.ActionClose, Target: params.Target},
		func(c *repository.Client, fromStatus domain.Status) {
			from := string(fromStatus)
			c.ClosedDate = &now
			c.ClosedFromStatus = &from
			if reason := strings.TrimSpace(params.Reason); reason != "" {
				c.ClosedReason = &reason
			}
			if params.Workflow != "" {
				c.ClosedFromWorkflow = &params.Workflow
			}

			s.bus.Publish(ctx, events.ClientClosed{
				BaseEvent:        events.NewBaseEvent(),
				ClientID:         clientID,
				ClosedFromStatus: from,
				Reason:           params.Reason,
				Workflow:         params.Workflow,
			})
		})
}

// Reopen moves a closed client back to the caller-chosen status and returns
// the previous (closed) status. Closure metadata is left intact; the reopen
// history kept by the referral module is the record of what happened.
func (s *Service) Reopen(ctx context.Context, clientID uuid.UUID, target domain.Status) (*repository.Client, domain.Status, error) {
	unlock := s.locks.Lock(clientID)
	defer unlock()

	var prev domain.Status
	client, err := s.transitionLocked(ctx, clientID,
		domain.StaffAction{Kind: domain.ActionReopen, Target: target},
		func(c *repository.Client, fromStatus domain.Status) {
			prev = fromStatus
		})
	if err != nil {
		return client, "", err
	}
	return client, prev, nil
}

// SetReferralSent records the referral email metadata without touching the
// status. Status only changes on an explicit case closure.
func (s *Service) SetReferralSent(ctx context.Context, clientID uuid.UUID, sentAt time.Time, clinicNames []string) (*repository.Client, error) {
	unlock := s.locks.Lock(clientID)
	defer unlock()

	client, err := s.repo.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	client.ReferralEmailSentAt = &sentAt
	client.ReferralClinicNames = clinicNames
	if err := s.repo.UpdateState(ctx, client); err != nil {
		return nil, err
	}

	return client, nil
}

// transitionLocked applies ev to the client. Callers must hold the client's
// lock. sideEffect, when non-nil, runs after a successful domain transition
// and before persistence, with the client's status already updated.
func (s *Service) transitionLocked(ctx context.Context, clientID uuid.UUID, ev domain.Event, sideEffect func(c *repository.Client, fromStatus domain.Status)) (*repository.Client, error) {
	client, err := s.repo.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	current, err := domain.Parse(client.Status)
	if err != nil {
		return client, apperr.Configuration("client has unrecognized status: " + client.Status)
	}

	next, err := domain.Transition(current, ev)
	if err != nil {
		s.log.WithContext(ctx).TransitionRejected(clientID.String(), string(current), ev.Name(), err.Error())
		return client, err
	}

	client.Status = string(next)
	s.applyMilestones(client, ev)
	if sideEffect != nil {
		sideEffect(client, current)
	}

	if err := s.repo.UpdateState(ctx, client); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ClientStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		ClientID:  clientID,
		OldStatus: string(current),
		NewStatus: string(next),
		Event:     ev.Name(),
	})

	return client, nil
}

// applyMilestones stamps the milestone date columns for events that
// correspond to one. Existing stamps are never overwritten.
func (s *Service) applyMilestones(c *repository.Client, ev domain.Event) {
	now := time.Now()
	switch e := ev.(type) {
	case domain.AttemptSent:
		switch e.Number {
		case 1:
			if c.InitialOutreachDate == nil {
				c.InitialOutreachDate = &now
			}
		case 2:
			if c.FollowUp1Date == nil {
				c.FollowUp1Date = &now
			}
		case 3:
			if c.FollowUp2Date == nil {
				c.FollowUp2Date = &now
			}
		}
	case domain.StaffAction:
		if e.Kind == domain.ActionSchedule && c.ScheduledDate == nil {
			c.ScheduledDate = &now
		}
	}
}
