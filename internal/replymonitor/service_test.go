package replymonitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"intake_portal_backend/internal/clients/domain"
	clientrepo "intake_portal_backend/internal/clients/repository"
	"intake_portal_backend/internal/events"
	outreachrepo "intake_portal_backend/internal/outreach/repository"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeMailbox struct {
	mu       sync.Mutex
	messages map[string][]Message
	fail     bool
}

func (m *fakeMailbox) ListMessagesFrom(_ context.Context, fromAddr string, since time.Time) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, apperr.Transient("mailbox down", errors.New("connection refused"))
	}
	var out []Message
	for _, msg := range m.messages[fromAddr] {
		if !msg.ReceivedAt.Before(since) {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeLifecycle struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*clientrepo.Client
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{clients: make(map[uuid.UUID]*clientrepo.Client)}
}

func (l *fakeLifecycle) add(email string, status domain.Status) uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.New()
	l.clients[id] = &clientrepo.Client{ID: id, Email: email, Status: string(status)}
	return id
}

func (l *fakeLifecycle) status(id uuid.UUID) domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.Status(l.clients[id].Status)
}

func (l *fakeLifecycle) ListByStatuses(_ context.Context, statuses []domain.Status) ([]clientrepo.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	want := make(map[domain.Status]struct{})
	for _, s := range statuses {
		want[s] = struct{}{}
	}
	var out []clientrepo.Client
	for _, c := range l.clients {
		if _, ok := want[domain.Status(c.Status)]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (l *fakeLifecycle) Transition(_ context.Context, id uuid.UUID, ev domain.Event) (*clientrepo.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.clients[id]
	next, err := domain.Transition(domain.Status(c.Status), ev)
	if err != nil {
		out := *c
		return &out, err
	}
	c.Status = string(next)
	out := *c
	return &out, nil
}

type fakeAttempts struct {
	mu     sync.Mutex
	latest map[uuid.UUID]*outreachrepo.Attempt
}

func (a *fakeAttempts) LatestSent(_ context.Context, clientID uuid.UUID) (*outreachrepo.Attempt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	attempt, ok := a.latest[clientID]
	if !ok {
		return nil, apperr.NotFound("no sent attempt for client")
	}
	out := *attempt
	return &out, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) replies() []events.ReplyDetected {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.ReplyDetected
	for _, e := range b.events {
		if r, ok := e.(events.ReplyDetected); ok {
			out = append(out, r)
		}
	}
	return out
}

type monitorHarness struct {
	svc       *Service
	mailbox   *fakeMailbox
	lifecycle *fakeLifecycle
	attempts  *fakeAttempts
	bus       *recordingBus
	store     *WatermarkStore
}

func newMonitorHarness(t *testing.T) *monitorHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := &monitorHarness{
		mailbox:   &fakeMailbox{messages: make(map[string][]Message)},
		lifecycle: newFakeLifecycle(),
		attempts:  &fakeAttempts{latest: make(map[uuid.UUID]*outreachrepo.Attempt)},
		bus:       &recordingBus{},
		store:     NewWatermarkStore(rdb),
	}
	h.svc = NewService(h.mailbox, h.store, h.lifecycle, h.attempts, h.bus, logger.New("test"))
	return h
}

func (h *monitorHarness) addOutreachClient(email string, status domain.Status, sentAt time.Time) uuid.UUID {
	id := h.lifecycle.add(email, status)
	h.attempts.mu.Lock()
	defer h.attempts.mu.Unlock()
	h.attempts.latest[id] = &outreachrepo.Attempt{
		ID:            uuid.New(),
		ClientID:      id,
		AttemptNumber: 1,
		Status:        outreachrepo.StatusSent,
		SentAt:        &sentAt,
	}
	return id
}

func TestCheckNow_DetectsNewReplyAndTransitions(t *testing.T) {
	h := newMonitorHarness(t)
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	id := h.addOutreachClient("jordan@example.com", domain.StatusAwaitingResponse, sentAt)

	h.mailbox.messages["jordan@example.com"] = []Message{{
		ID:         "<reply-1@example.com>",
		From:       "jordan@example.com",
		Subject:    "Re: Scheduling your first appointment",
		ReceivedAt: sentAt.Add(3 * time.Hour),
	}}

	detected, err := h.svc.CheckNow(context.Background())
	if err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if detected != 1 {
		t.Errorf("detected = %d, want 1", detected)
	}
	if h.lifecycle.status(id) != domain.StatusInCommunication {
		t.Errorf("client status = %q, want in_communication", h.lifecycle.status(id))
	}

	replies := h.bus.replies()
	if len(replies) != 1 {
		t.Fatalf("published %d reply events, want 1", len(replies))
	}
	if replies[0].ClientID != id || replies[0].MessageID != "<reply-1@example.com>" {
		t.Errorf("unexpected reply event: %+v", replies[0])
	}
}

func TestCheckNow_RepeatedPollEmitsOnce(t *testing.T) {
	h := newMonitorHarness(t)
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	h.addOutreachClient("jordan@example.com", domain.StatusAwaitingResponse, sentAt)

	h.mailbox.messages["jordan@example.com"] = []Message{{
		ID:         "<reply-1@example.com>",
		ReceivedAt: sentAt.Add(3 * time.Hour),
	}}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := h.svc.CheckNow(ctx); err != nil {
			t.Fatalf("CheckNow #%d: %v", i+1, err)
		}
	}

	if got := len(h.bus.replies()); got != 1 {
		t.Errorf("published %d reply events across repeated polls, want exactly 1", got)
	}
}

func TestCheckNow_IgnoresMessagesBeforeLastSentAttempt(t *testing.T) {
	h := newMonitorHarness(t)
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	id := h.addOutreachClient("jordan@example.com", domain.StatusAwaitingResponse, sentAt)

	// An old message from before the attempt went out.
	h.mailbox.messages["jordan@example.com"] = []Message{{
		ID:         "<old-1@example.com>",
		ReceivedAt: sentAt.Add(-24 * time.Hour),
	}}

	detected, err := h.svc.CheckNow(context.Background())
	if err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if detected != 0 {
		t.Errorf("detected = %d, want 0", detected)
	}
	if h.lifecycle.status(id) != domain.StatusAwaitingResponse {
		t.Errorf("client status = %q, want unchanged awaiting_response", h.lifecycle.status(id))
	}
}

func TestCheckNow_SkipsClientsOutsideOutreach(t *testing.T) {
	h := newMonitorHarness(t)
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	h.lifecycle.add("jordan@example.com", domain.StatusInCommunication)

	h.mailbox.messages["jordan@example.com"] = []Message{{
		ID:         "<reply-1@example.com>",
		ReceivedAt: sentAt.Add(time.Hour),
	}}

	detected, err := h.svc.CheckNow(context.Background())
	if err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if detected != 0 {
		t.Errorf("detected = %d, want 0 for non-outreach client", detected)
	}
}

func TestCheckNow_MailboxFailureRecordsErrorAndRecovers(t *testing.T) {
	h := newMonitorHarness(t)
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	id := h.addOutreachClient("jordan@example.com", domain.StatusAwaitingResponse, sentAt)
	ctx := context.Background()

	h.mailbox.fail = true
	if _, err := h.svc.CheckNow(ctx); err != nil {
		t.Fatalf("CheckNow with failing mailbox must not error the sweep: %v", err)
	}
	status, err := h.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.LastError == "" {
		t.Error("mailbox failure should be recorded in monitor status")
	}

	// Next tick the mailbox is back and the reply comes through.
	h.mailbox.fail = false
	h.mailbox.messages["jordan@example.com"] = []Message{{
		ID:         "<reply-1@example.com>",
		ReceivedAt: sentAt.Add(3 * time.Hour),
	}}
	detected, err := h.svc.CheckNow(ctx)
	if err != nil {
		t.Fatalf("recovered CheckNow: %v", err)
	}
	if detected != 1 {
		t.Errorf("detected = %d, want 1 after recovery", detected)
	}
	if h.lifecycle.status(id) != domain.StatusInCommunication {
		t.Errorf("client status = %q, want in_communication", h.lifecycle.status(id))
	}

	status, err = h.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status after recovery: %v", err)
	}
	if status.LastError != "" {
		t.Errorf("last error = %q, want cleared after clean sweep", status.LastError)
	}
}

func TestCheckNow_RescuesNoContactClient(t *testing.T) {
	h := newMonitorHarness(t)
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	id := h.addOutreachClient("jordan@example.com", domain.StatusNoContactOKClose, sentAt)

	h.mailbox.messages["jordan@example.com"] = []Message{{
		ID:         "<late-reply@example.com>",
		ReceivedAt: sentAt.Add(5 * 24 * time.Hour),
	}}

	if _, err := h.svc.CheckNow(context.Background()); err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if h.lifecycle.status(id) != domain.StatusInCommunication {
		t.Errorf("late reply should rescue the client, status = %q", h.lifecycle.status(id))
	}
}
