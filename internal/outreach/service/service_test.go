package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"intake_portal_backend/internal/clients/domain"
	clientrepo "intake_portal_backend/internal/clients/repository"
	clientsvc "intake_portal_backend/internal/clients/service"
	"intake_portal_backend/internal/email"
	"intake_portal_backend/internal/events"
	"intake_portal_backend/internal/outreach/repository"
	"intake_portal_backend/internal/settings"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]repository.Attempt
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[uuid.UUID]repository.Attempt)}
}

func (r *fakeAttemptRepo) Create(_ context.Context, a *repository.Attempt) (*repository.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.attempts {
		if existing.ClientID == a.ClientID && existing.AttemptNumber == a.AttemptNumber {
			out := existing
			return &out, nil
		}
	}
	r.attempts[a.ID] = *a
	out := *a
	return &out, nil
}

func (r *fakeAttemptRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, apperr.NotFound("outreach attempt not found")
	}
	out := a
	return &out, nil
}

func (r *fakeAttemptRepo) GetByClientAndNumber(_ context.Context, clientID uuid.UUID, number int) (*repository.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.ClientID == clientID && a.AttemptNumber == number {
			out := a
			return &out, nil
		}
	}
	return nil, apperr.NotFound("outreach attempt not found")
}

func (r *fakeAttemptRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]repository.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Attempt
	for _, a := range r.attempts {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) LatestSent(_ context.Context, clientID uuid.UUID) (*repository.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *repository.Attempt
	for id := range r.attempts {
		a := r.attempts[id]
		if a.ClientID != clientID || a.Status != repository.StatusSent {
			continue
		}
		if latest == nil || a.AttemptNumber > latest.AttemptNumber {
			copied := a
			latest = &copied
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("no sent attempt for client")
	}
	return latest, nil
}

func (r *fakeAttemptRepo) MarkSent(_ context.Context, id uuid.UUID, sentAt, windowEnd time.Time, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return apperr.NotFound("outreach attempt not found")
	}
	if a.Status == repository.StatusSent {
		return nil
	}
	a.Status = repository.StatusSent
	a.SentAt = &sentAt
	a.ResponseWindowEnd = &windowEnd
	a.MessageID = &messageID
	r.attempts[id] = a
	return nil
}

func (r *fakeAttemptRepo) MarkResponseDetected(_ context.Context, clientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.attempts {
		if a.ClientID == clientID && a.Status == repository.StatusSent {
			a.ResponseDetected = true
			r.attempts[id] = a
		}
	}
	return nil
}

// fakeLifecycle applies the real transition rules over an in-memory client.
type fakeLifecycle struct {
	mu                sync.Mutex
	clients           map[uuid.UUID]*clientrepo.Client
	lastCloseWorkflow string
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{clients: make(map[uuid.UUID]*clientrepo.Client)}
}

func (l *fakeLifecycle) add(status domain.Status) uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.New()
	l.clients[id] = &clientrepo.Client{
		ID:     id,
		Name:   "Jordan Reyes",
		Email:  "jordan@example.com",
		Status: string(status),
	}
	return id
}

func (l *fakeLifecycle) status(id uuid.UUID) domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.Status(l.clients[id].Status)
}

func (l *fakeLifecycle) GetClient(_ context.Context, id uuid.UUID) (*clientrepo.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[id]
	if !ok {
		return nil, apperr.NotFound("client not found")
	}
	out := *c
	return &out, nil
}

func (l *fakeLifecycle) Transition(_ context.Context, id uuid.UUID, ev domain.Event) (*clientrepo.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[id]
	if !ok {
		return nil, apperr.NotFound("client not found")
	}
	next, err := domain.Transition(domain.Status(c.Status), ev)
	if err != nil {
		out := *c
		return &out, err
	}
	c.Status = string(next)
	out := *c
	return &out, nil
}

func (l *fakeLifecycle) Close(ctx context.Context, id uuid.UUID, params clientsvc.CloseParams) (*clientrepo.Client, error) {
	if params.Workflow != "" && !domain.IsKnownWorkflow(params.Workflow) {
		return nil, apperr.Validation("unknown closure workflow")
	}
	client, err := l.Transition(ctx, id, domain.StaffAction{Kind: domain.ActionClose, Target: params.Target})
	if err == nil {
		l.mu.Lock()
		l.lastCloseWorkflow = params.Workflow
		l.mu.Unlock()
	}
	return client, err
}

func (l *fakeLifecycle) ListByStatuses(_ context.Context, statuses []domain.Status) ([]clientrepo.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	want := make(map[domain.Status]struct{}, len(statuses))
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

type fakeSender struct {
	mu    sync.Mutex
	sent  []email.OutreachParams
	fail  bool
	count int
}

func (s *fakeSender) SendOutreachEmail(_ context.Context, _ string, params email.OutreachParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", errors.New("smtp unavailable")
	}
	s.count++
	s.sent = append(s.sent, params)
	return "<msg-1@test>", nil
}

func (s *fakeSender) SendReferralEmail(context.Context, string, email.ReferralParams) (string, error) {
	return "<msg-ref@test>", nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []scheduledCheck
}

type scheduledCheck struct {
	clientID      uuid.UUID
	attemptNumber int
	at            time.Time
}

func (s *fakeScheduler) ScheduleFollowUpCheck(_ context.Context, clientID uuid.UUID, attemptNumber int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, scheduledCheck{clientID, attemptNumber, at})
	return nil
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

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

func testSettings() settings.Settings {
	return settings.Settings{
		FollowUp1Days:             2,
		FollowUp2Days:             4,
		AutoCloseDays:             7,
		OutreachAttemptCount:      3,
		ReplyCheckIntervalMinutes: 5,
		SchedulingLeadDays:        1,
	}
}

type testHarness struct {
	svc       *Service
	repo      *fakeAttemptRepo
	lifecycle *fakeLifecycle
	sender    *fakeSender
	scheduler *fakeScheduler
	bus       *recordingBus
}

func newHarness() *testHarness {
	h := &testHarness{
		repo:      newFakeAttemptRepo(),
		lifecycle: newFakeLifecycle(),
		sender:    &fakeSender{},
		scheduler: &fakeScheduler{},
		bus:       &recordingBus{},
	}
	h.svc = NewService(h.repo, h.lifecycle, h.sender, h.scheduler, h.bus, testSettings(), logger.New("test"))
	return h
}

func TestCreateAttempt_RejectsBeyondConfiguredCount(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)

	_, err := h.svc.CreateAttempt(context.Background(), id, 4)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("CreateAttempt(4) with count 3: got %v, want validation error", err)
	}
}

func TestCreateAttempt_RequiresPreviousSent(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	// No attempt 1 at all.
	if _, err := h.svc.CreateAttempt(ctx, id, 2); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("attempt 2 without attempt 1: got %v, want validation error", err)
	}

	// Attempt 1 exists but is still pending.
	if _, err := h.svc.CreateAttempt(ctx, id, 1); err != nil {
		t.Fatalf("CreateAttempt(1): %v", err)
	}
	if _, err := h.svc.CreateAttempt(ctx, id, 2); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("attempt 2 with attempt 1 pending: got %v, want validation error", err)
	}
}

func TestCreateAttempt_IdempotentOnRetry(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	first, err := h.svc.CreateAttempt(ctx, id, 1)
	if err != nil {
		t.Fatalf("CreateAttempt: %v", err)
	}
	second, err := h.svc.CreateAttempt(ctx, id, 1)
	if err != nil {
		t.Fatalf("retried CreateAttempt: %v", err)
	}
	if first.ID != second.ID {
		t.Error("retried creation must return the existing attempt, not a new row")
	}
}

func TestMarkSent_IdempotentAndDerivesWindow(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	attempt, _ := h.svc.CreateAttempt(ctx, id, 1)
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)

	if err := h.svc.MarkSent(ctx, attempt.ID, sentAt, "<m@t>"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := h.svc.MarkSent(ctx, attempt.ID, sentAt, "<m@t>"); err != nil {
		t.Fatalf("repeated MarkSent must be a no-op, got %v", err)
	}

	stored, _ := h.repo.GetByID(ctx, attempt.ID)
	if stored.ResponseWindowEnd == nil || !stored.ResponseWindowEnd.Equal(sentAt.Add(24*time.Hour)) {
		t.Errorf("response window end = %v, want sentAt + 24h", stored.ResponseWindowEnd)
	}
}

func TestSendAttempt_FullFlow(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)

	attempt, err := h.svc.SendAttempt(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("SendAttempt: %v", err)
	}
	if attempt.Status != repository.StatusSent {
		t.Errorf("attempt status = %q, want sent", attempt.Status)
	}
	if h.lifecycle.status(id) != domain.StatusAwaitingResponse {
		t.Errorf("client status = %q, want awaiting_response", h.lifecycle.status(id))
	}
	if len(h.sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(h.sender.sent))
	}
	if len(h.scheduler.scheduled) != 1 {
		t.Fatalf("scheduled %d checks, want 1", len(h.scheduler.scheduled))
	}

	check := h.scheduler.scheduled[0]
	if check.attemptNumber != 1 {
		t.Errorf("check attempt = %d, want 1", check.attemptNumber)
	}
	// followUp1Days = 2 business days after send.
	wd := check.at.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		t.Errorf("follow-up check lands on %s", wd)
	}
}

func TestSendAttempt_RejectedStatusSendsNothing(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusNew)

	_, err := h.svc.SendAttempt(context.Background(), id, 1)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("got %v, want invalid transition", err)
	}
	if len(h.sender.sent) != 0 {
		t.Error("no email may be sent when the lifecycle rejects the attempt")
	}
}

func TestSendAttempt_DeliveryFailureKeepsPendingForRetry(t *testing.T) {
	h := newHarness()
	h.sender.fail = true
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	_, err := h.svc.SendAttempt(ctx, id, 1)
	if !apperr.Is(err, apperr.KindTransient) {
		t.Fatalf("got %v, want transient error", err)
	}
	if h.lifecycle.status(id) != domain.StatusPendingOutreach {
		t.Error("client status must not advance on delivery failure")
	}

	attempt, getErr := h.repo.GetByClientAndNumber(ctx, id, 1)
	if getErr != nil {
		t.Fatalf("pending attempt should exist: %v", getErr)
	}
	if attempt.Status != repository.StatusPending {
		t.Errorf("attempt status = %q, want pending", attempt.Status)
	}

	// Retry succeeds and reuses the same row.
	h.sender.fail = false
	sent, err := h.svc.SendAttempt(ctx, id, 1)
	if err != nil {
		t.Fatalf("retry SendAttempt: %v", err)
	}
	if sent.ID != attempt.ID {
		t.Error("retry must reuse the pending attempt row")
	}
}

func TestHandleFollowUpCheck_SendsNextAttempt(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	if _, err := h.svc.SendAttempt(ctx, id, 1); err != nil {
		t.Fatalf("SendAttempt: %v", err)
	}
	// Age the window past 24h so the check does not reschedule.
	backdateWindow(h.repo, id, 1, time.Now().Add(-48*time.Hour))

	if err := h.svc.HandleFollowUpCheck(ctx, id, 1); err != nil {
		t.Fatalf("HandleFollowUpCheck: %v", err)
	}
	if h.lifecycle.status(id) != domain.StatusAwaitingResponse {
		t.Errorf("client status = %q, want awaiting_response after attempt 2", h.lifecycle.status(id))
	}
	if h.sender.count != 2 {
		t.Errorf("sent %d emails, want 2", h.sender.count)
	}
	if _, err := h.repo.GetByClientAndNumber(ctx, id, 2); err != nil {
		t.Errorf("attempt 2 should exist: %v", err)
	}
}

func TestHandleFollowUpCheck_ResumesAfterDeliveryFailure(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	if _, err := h.svc.SendAttempt(ctx, id, 1); err != nil {
		t.Fatalf("SendAttempt: %v", err)
	}
	backdateWindow(h.repo, id, 1, time.Now().Add(-48*time.Hour))

	// The cadence fires but SMTP is down: the status advances to
	// follow_up_due and the error propagates so the task is retried.
	h.sender.fail = true
	if err := h.svc.HandleFollowUpCheck(ctx, id, 1); !apperr.Is(err, apperr.KindTransient) {
		t.Fatalf("check with failing sender: got %v, want transient error", err)
	}
	if h.lifecycle.status(id) != domain.StatusFollowUpDue {
		t.Fatalf("client status = %q, want follow_up_due", h.lifecycle.status(id))
	}

	// The retried check must resume the send, not dissolve.
	h.sender.fail = false
	if err := h.svc.HandleFollowUpCheck(ctx, id, 1); err != nil {
		t.Fatalf("retried HandleFollowUpCheck: %v", err)
	}
	if h.lifecycle.status(id) != domain.StatusAwaitingResponse {
		t.Errorf("client status = %q, want awaiting_response after attempt 2", h.lifecycle.status(id))
	}
	if h.sender.count != 2 {
		t.Errorf("sent %d emails, want 2", h.sender.count)
	}
	sent, err := h.repo.GetByClientAndNumber(ctx, id, 2)
	if err != nil {
		t.Fatalf("attempt 2 should exist: %v", err)
	}
	if sent.Status != repository.StatusSent {
		t.Errorf("attempt 2 status = %q, want sent", sent.Status)
	}
}

func TestHandleFollowUpCheck_NoOpWhenClientReplied(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	if _, err := h.svc.SendAttempt(ctx, id, 1); err != nil {
		t.Fatalf("SendAttempt: %v", err)
	}
	if _, err := h.lifecycle.Transition(ctx, id, domain.ReplyDetected{}); err != nil {
		t.Fatalf("ReplyDetected: %v", err)
	}

	if err := h.svc.HandleFollowUpCheck(ctx, id, 1); err != nil {
		t.Fatalf("HandleFollowUpCheck: %v", err)
	}
	if h.lifecycle.status(id) != domain.StatusInCommunication {
		t.Errorf("client status = %q, want in_communication untouched", h.lifecycle.status(id))
	}
	if h.sender.count != 1 {
		t.Errorf("sent %d emails, want 1; the check must dissolve", h.sender.count)
	}
}

func TestHandleFollowUpCheck_ExhaustsAfterFinalAttempt(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusPendingOutreach)
	ctx := context.Background()

	for n := 1; n <= 3; n++ {
		if n > 1 {
			backdateWindow(h.repo, id, n-1, time.Now().Add(-48*time.Hour))
			if err := h.svc.HandleFollowUpCheck(ctx, id, n-1); err != nil {
				t.Fatalf("HandleFollowUpCheck(%d): %v", n-1, err)
			}
		} else {
			if _, err := h.svc.SendAttempt(ctx, id, 1); err != nil {
				t.Fatalf("SendAttempt: %v", err)
			}
		}
	}

	backdateWindow(h.repo, id, 3, time.Now().Add(-48*time.Hour))
	if err := h.svc.HandleFollowUpCheck(ctx, id, 3); err != nil {
		t.Fatalf("final HandleFollowUpCheck: %v", err)
	}
	if h.lifecycle.status(id) != domain.StatusNoContactOKClose {
		t.Errorf("client status = %q, want no_contact_ok_close", h.lifecycle.status(id))
	}

	var exhausted bool
	for _, name := range h.bus.names() {
		if name == "outreach.attempts.exhausted" {
			exhausted = true
		}
	}
	if !exhausted {
		t.Error("expected outreach.attempts.exhausted event")
	}
	if h.sender.count != 3 {
		t.Errorf("sent %d emails, want exactly 3", h.sender.count)
	}
}

func TestHandleAutoCloseSweep_ClosesAgedNoContactClients(t *testing.T) {
	h := newHarness()
	id := h.lifecycle.add(domain.StatusNoContactOKClose)
	ctx := context.Background()

	// A final attempt long past the auto-close horizon.
	attempt := &repository.Attempt{
		ID:            uuid.New(),
		ClientID:      id,
		AttemptNumber: 3,
		Status:        repository.StatusPending,
		CreatedAt:     time.Now(),
	}
	if _, err := h.repo.Create(ctx, attempt); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	old := time.Now().Add(-30 * 24 * time.Hour)
	if err := h.repo.MarkSent(ctx, attempt.ID, old, old.Add(24*time.Hour), "<m@t>"); err != nil {
		t.Fatalf("seed mark sent: %v", err)
	}

	if err := h.svc.HandleAutoCloseSweep(ctx); err != nil {
		t.Fatalf("HandleAutoCloseSweep: %v", err)
	}
	if h.lifecycle.status(id) != domain.StatusClosedNoContact {
		t.Errorf("client status = %q, want closed_no_contact", h.lifecycle.status(id))
	}
	if h.lifecycle.lastCloseWorkflow != domain.WorkflowOutreach {
		t.Errorf("closure workflow = %q, want %q", h.lifecycle.lastCloseWorkflow, domain.WorkflowOutreach)
	}
}

func backdateWindow(repo *fakeAttemptRepo, clientID uuid.UUID, number int, windowEnd time.Time) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for id, a := range repo.attempts {
		if a.ClientID == clientID && a.AttemptNumber == number {
			a.ResponseWindowEnd = &windowEnd
			repo.attempts[id] = a
		}
	}
}
