package service

import (
	"context"
	"time"

	"intake_portal_backend/internal/clients/domain"
	clientrepo "intake_portal_backend/internal/clients/repository"
	clientsvc "intake_portal_backend/internal/clients/service"
	"intake_portal_backend/internal/email"
	"intake_portal_backend/internal/events"
	"intake_portal_backend/internal/outreach/repository"
	"intake_portal_backend/internal/settings"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/calendar"
	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository defines what the service needs from the persistence layer
type Repository interface {
	Create(ctx context.Context, a *repository.Attempt) (*repository.Attempt, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Attempt, error)
	GetByClientAndNumber(ctx context.Context, clientID uuid.UUID, number int) (*repository.Attempt, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]repository.Attempt, error)
	LatestSent(ctx context.Context, clientID uuid.UUID) (*repository.Attempt, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt, windowEnd time.Time, messageID string) error
	MarkResponseDetected(ctx context.Context, clientID uuid.UUID) error
}

// Lifecycle is the slice of the clients service the outreach flow needs.
type Lifecycle interface {
	GetClient(ctx context.Context, id uuid.UUID) (*clientrepo.Client, error)
	Transition(ctx context.Context, clientID uuid.UUID, ev domain.Event) (*clientrepo.Client, error)
	Close(ctx context.Context, clientID uuid.UUID, params clientsvc.CloseParams) (*clientrepo.Client, error)
	ListByStatuses(ctx context.Context, statuses []domain.Status) ([]clientrepo.Client, error)
}

// FollowUpScheduler enqueues a deferred follow-up check. Checks scheduled
// for clients that conclude earlier become no-ops when they fire.
type FollowUpScheduler interface {
	ScheduleFollowUpCheck(ctx context.Context, clientID uuid.UUID, attemptNumber int, at time.Time) error
}

// Service owns outreach attempts: creating them in order, sending the
// emails, and driving the follow-up cadence until a reply arrives or the
// configured attempts are exhausted.
type Service struct {
	repo      Repository
	lifecycle Lifecycle
	sender    email.Sender
	scheduler FollowUpScheduler
	bus       events.Bus
	settings  settings.Settings
	log       *logger.Logger
}

// NewService creates a new outreach service
func NewService(repo Repository, lifecycle Lifecycle, sender email.Sender, scheduler FollowUpScheduler, bus events.Bus, cfg settings.Settings, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		lifecycle: lifecycle,
		sender:    sender,
		scheduler: scheduler,
		bus:       bus,
		settings:  cfg,
		log:       log,
	}
}

// CreateAttempt records a pending attempt. Numbers must be contiguous:
// attempt n requires attempt n-1 to be sent. Idempotent on (client, number).
func (s *Service) CreateAttempt(ctx context.Context, clientID uuid.UUID, number int) (*repository.Attempt, error) {
	if number < 1 {
		return nil, apperr.Validation("attempt number must be at least 1")
	}
	if number > s.settings.OutreachAttemptCount {
		return nil, apperr.Validation("attempt number exceeds configured outreach attempt count")
	}

	if number > 1 {
		prev, err := s.repo.GetByClientAndNumber(ctx, clientID, number-1)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Validation("previous attempt does not exist")
			}
			return nil, err
		}
		if prev.Status != repository.StatusSent {
			return nil, apperr.Validation("previous attempt has not been sent")
		}
	}

	return s.repo.Create(ctx, &repository.Attempt{
		ID:            uuid.New(),
		ClientID:      clientID,
		AttemptNumber: number,
		Status:        repository.StatusPending,
		CreatedAt:     time.Now(),
	})
}

// MarkSent stamps an attempt as sent and derives its response window end.
// Idempotent on repeated calls with the same attempt.
func (s *Service) MarkSent(ctx context.Context, attemptID uuid.UUID, sentAt time.Time, messageID string) error {
	return s.repo.MarkSent(ctx, attemptID, sentAt, sentAt.Add(settings.ResponseWindow), messageID)
}

// SendAttempt performs the full send flow for attempt n: verify the
// lifecycle allows it, create the pending record, deliver the email, mark
// it sent, advance the client's status, and schedule the follow-up check.
func (s *Service) SendAttempt(ctx context.Context, clientID uuid.UUID, number int) (*repository.Attempt, error) {
	client, err := s.lifecycle.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	current, err := domain.Parse(client.Status)
	if err != nil {
		return nil, apperr.Configuration("client has unrecognized status: " + client.Status)
	}
	// Dry-run the transition before spending an email on it.
	if _, err := domain.Transition(current, domain.AttemptSent{Number: number}); err != nil {
		return nil, err
	}

	attempt, err := s.CreateAttempt(ctx, clientID, number)
	if err != nil {
		return nil, err
	}
	if attempt.Status == repository.StatusSent {
		// Retried call after a prior success. Nothing to redo.
		return attempt, nil
	}

	messageID, err := s.sender.SendOutreachEmail(ctx, client.Email, email.OutreachParams{
		ClientName:    client.Name,
		AttemptNumber: number,
		TotalAttempts: s.settings.OutreachAttemptCount,
	})
	if err != nil {
		// The pending row stays; the next invocation retries the send.
		return nil, apperr.Transient("failed to send outreach email", err)
	}

	sentAt := time.Now()
	if err := s.MarkSent(ctx, attempt.ID, sentAt, messageID); err != nil {
		return nil, err
	}
	attempt, err = s.repo.GetByID(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.lifecycle.Transition(ctx, clientID, domain.AttemptSent{Number: number}); err != nil {
		return attempt, err
	}

	s.bus.Publish(ctx, events.OutreachAttemptSent{
		BaseEvent:     events.NewBaseEvent(),
		ClientID:      clientID,
		AttemptNumber: number,
		SentAt:        sentAt,
		MessageID:     messageID,
	})

	checkAt := calendar.AddBusinessDays(sentAt, s.settings.FollowUpDays(number))
	if err := s.scheduler.ScheduleFollowUpCheck(ctx, clientID, number, checkAt); err != nil {
		// The periodic sweep will still catch the client; log and move on.
		s.log.WithContext(ctx).Error("failed to schedule follow-up check",
			"clientId", clientID, "attempt", number, "error", err)
	}

	return attempt, nil
}

// HandleFollowUpCheck runs when a scheduled follow-up check fires. It is a
// no-op for clients that concluded in the meantime (replied, scheduled, or
// closed); otherwise it either sends the next attempt or declares the
// outreach exhausted.
func (s *Service) HandleFollowUpCheck(ctx context.Context, clientID uuid.UUID, attemptNumber int) error {
	client, err := s.lifecycle.GetClient(ctx, clientID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	status, err := domain.Parse(client.Status)
	if err != nil {
		return apperr.Configuration("client has unrecognized status: " + client.Status)
	}
	switch status {
	case domain.StatusAwaitingResponse:
	case domain.StatusFollowUpDue:
		// An earlier check already advanced the status but the send itself
		// failed; this retry resumes from the send.
	default:
		// Replied, scheduled, closed, or already moved on. Check dissolves.
		return nil
	}

	latest, err := s.repo.LatestSent(ctx, clientID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if latest.AttemptNumber != attemptNumber || latest.ResponseDetected {
		return nil
	}
	if latest.ResponseWindowEnd != nil && time.Now().Before(*latest.ResponseWindowEnd) {
		// Cadence fired inside the response window; give the client the
		// rest of it.
		return s.scheduler.ScheduleFollowUpCheck(ctx, clientID, attemptNumber, *latest.ResponseWindowEnd)
	}

	if attemptNumber < s.settings.OutreachAttemptCount {
		if status == domain.StatusAwaitingResponse {
			if _, err := s.lifecycle.Transition(ctx, clientID, domain.FollowUpDue{}); err != nil {
				return err
			}
		}
		_, err := s.SendAttempt(ctx, clientID, attemptNumber+1)
		return err
	}

	if _, err := s.lifecycle.Transition(ctx, clientID, domain.AllAttemptsExhausted{}); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.AllAttemptsExhausted{
		BaseEvent:    events.NewBaseEvent(),
		ClientID:     clientID,
		AttemptCount: s.settings.OutreachAttemptCount,
	})
	return nil
}

// HandleAutoCloseSweep closes clients that have sat in no_contact_ok_close
// for the configured number of business days. Invoked periodically by the
// worker.
func (s *Service) HandleAutoCloseSweep(ctx context.Context) error {
	clients, err := s.lifecycle.ListByStatuses(ctx, []domain.Status{domain.StatusNoContactOKClose})
	if err != nil {
		return err
	}

	now := time.Now()
	for _, client := range clients {
		latest, err := s.repo.LatestSent(ctx, client.ID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			return err
		}
		if latest.ResponseWindowEnd == nil {
			continue
		}
		closeAt := calendar.AddBusinessDays(*latest.ResponseWindowEnd, s.settings.AutoCloseDays)
		if now.Before(closeAt) {
			continue
		}

		if _, err := s.lifecycle.Close(ctx, client.ID, clientsvc.CloseParams{
			Target:   domain.StatusClosedNoContact,
			Reason:   "no contact after all configured outreach attempts",
			Workflow: domain.WorkflowOutreach,
		}); err != nil {
			if apperr.Is(err, apperr.KindInvalidTransition) {
				continue
			}
			return err
		}
	}
	return nil
}

// EvaluateClientDueness loads the client and their attempts and classifies
// the due state.
func (s *Service) EvaluateClientDueness(ctx context.Context, clientID uuid.UUID) (Dueness, error) {
	client, err := s.lifecycle.GetClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	status, err := domain.Parse(client.Status)
	if err != nil {
		return "", apperr.Configuration("client has unrecognized status: " + client.Status)
	}

	attempts, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return "", err
	}

	return EvaluateDueness(status, attempts, s.settings.OutreachAttemptCount, time.Now()), nil
}

// ListAttempts retrieves a client's attempts in order.
func (s *Service) ListAttempts(ctx context.Context, clientID uuid.UUID) ([]repository.Attempt, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// HandleReplyDetected flags the client's sent attempts as answered. Wired
// to the reply monitor's event on the bus.
func (s *Service) HandleReplyDetected(ctx context.Context, clientID uuid.UUID) error {
	return s.repo.MarkResponseDetected(ctx, clientID)
}
