package replymonitor

import (
	"context"
	"sync/atomic"
	"time"

	"intake_portal_backend/internal/clients/domain"
	clientrepo "intake_portal_backend/internal/clients/repository"
	"intake_portal_backend/internal/events"
	outreachrepo "intake_portal_backend/internal/outreach/repository"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// scanConcurrency bounds parallel per-client mailbox scans.
const scanConcurrency = 8

// monitoredStatuses are the outreach states worth scanning. A reply can
// still rescue a no_contact_ok_close client before the auto-close fires.
var monitoredStatuses = []domain.Status{
	domain.StatusAwaitingResponse,
	domain.StatusFollowUpDue,
	domain.StatusNoContactOKClose,
}

// Lifecycle is the slice of the clients service the monitor needs.
type Lifecycle interface {
	ListByStatuses(ctx context.Context, statuses []domain.Status) ([]clientrepo.Client, error)
	Transition(ctx context.Context, clientID uuid.UUID, ev domain.Event) (*clientrepo.Client, error)
}

// AttemptReader supplies each client's last sent attempt, which anchors the
// scan window.
type AttemptReader interface {
	LatestSent(ctx context.Context, clientID uuid.UUID) (*outreachrepo.Attempt, error)
}

// Service polls the mailbox for replies from clients in outreach states.
type Service struct {
	mailbox  Mailbox
	store    *WatermarkStore
	clients  Lifecycle
	attempts AttemptReader
	bus      events.Bus
	log      *logger.Logger
}

// NewService creates a new reply monitor service
func NewService(mailbox Mailbox, store *WatermarkStore, clients Lifecycle, attempts AttemptReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		mailbox:  mailbox,
		store:    store,
		clients:  clients,
		attempts: attempts,
		bus:      bus,
		log:      log,
	}
}

// CheckNow scans the mailbox for every monitored client and returns how
// many new replies were detected. Per-client failures are recorded and
// retried on the next cycle; they never abort the sweep.
func (s *Service) CheckNow(ctx context.Context) (int, error) {
	clients, err := s.clients.ListByStatuses(ctx, monitoredStatuses)
	if err != nil {
		return 0, err
	}

	var detected atomic.Int64
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i := range clients {
		client := clients[i]
		g.Go(func() error {
			n, scanErr := s.scanClient(gctx, &client)
			if scanErr != nil {
				failed.Add(1)
				s.log.WithClientID(client.ID.String()).MailboxError("scan", scanErr)
				if storeErr := s.store.SetError(gctx, scanErr.Error()); storeErr != nil {
					s.log.MailboxError("record scan error", storeErr)
				}
				return nil
			}
			detected.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(detected.Load()), err
	}

	if failed.Load() == 0 {
		if err := s.store.SetChecked(ctx, time.Now()); err != nil {
			s.log.MailboxError("record check time", err)
		}
	}

	return int(detected.Load()), nil
}

// scanClient checks one client's thread and returns the number of newly
// observed replies.
func (s *Service) scanClient(ctx context.Context, client *clientrepo.Client) (int, error) {
	latest, err := s.attempts.LatestSent(ctx, client.ID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if latest.SentAt == nil {
		return 0, nil
	}

	since := *latest.SentAt
	watermark, err := s.store.Watermark(ctx, client.ID)
	if err != nil {
		return 0, err
	}
	if watermark.After(since) {
		since = watermark
	}

	messages, err := s.mailbox.ListMessagesFrom(ctx, client.Email, since)
	if err != nil {
		return 0, err
	}

	detected := 0
	for _, msg := range messages {
		newly, err := s.store.MarkSeen(ctx, client.ID, msg.ID)
		if err != nil {
			return detected, err
		}
		if !newly {
			continue
		}

		detected++
		s.bus.Publish(ctx, events.ReplyDetected{
			BaseEvent:  events.NewBaseEvent(),
			ClientID:   client.ID,
			MessageID:  msg.ID,
			ReceivedAt: msg.ReceivedAt,
		})

		if err := s.store.AdvanceWatermark(ctx, client.ID, msg.ReceivedAt); err != nil {
			return detected, err
		}
	}

	if detected > 0 {
		if _, err := s.clients.Transition(ctx, client.ID, domain.ReplyDetected{}); err != nil {
			// A concurrent staff action may have concluded the client
			// between listing and detection. The reply events stand.
			if !apperr.Is(err, apperr.KindInvalidTransition) {
				return detected, err
			}
			s.log.WithClientID(client.ID.String()).Warn("reply detected on concluded client", "error", err)
		}
	}

	return detected, nil
}

// Status returns the monitor's health snapshot.
func (s *Service) Status(ctx context.Context) (MonitorStatus, error) {
	return s.store.Status(ctx)
}
