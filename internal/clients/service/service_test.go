package service

import (
	"context"
	"sync"
	"testing"

	"intake_portal_backend/internal/clients/domain"
	"intake_portal_backend/internal/clients/repository"
	"intake_portal_backend/internal/events"
	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]repository.Client
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clients: make(map[uuid.UUID]repository.Client)}
}

func (r *fakeRepo) Create(_ context.Context, c *repository.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = *c
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, apperr.NotFound("client not found")
	}
	out := c
	return &out, nil
}

func (r *fakeRepo) ListByStatuses(_ context.Context, statuses []string) ([]repository.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		want[s] = struct{}{}
	}
	var out []repository.Client
	for _, c := range r.clients {
		if _, ok := want[c.Status]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateState(_ context.Context, c *repository.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.clients[c.ID]
	if !ok {
		return apperr.NotFound("client not found")
	}
	if stored.Version != c.Version {
		return apperr.Conflict("client was modified concurrently, reload and retry")
	}
	c.Version++
	r.clients[c.ID] = *c
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

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.Publish(context.Background(), event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestService() (*Service, *fakeRepo, *recordingBus) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	return NewService(repo, bus, logger.New("test")), repo, bus
}

func createAt(t *testing.T, svc *Service, status domain.Status) uuid.UUID {
	t.Helper()
	client, err := svc.CreateClient(context.Background(), CreateClientParams{
		Name:  "Jordan Reyes",
		Email: "jordan@example.com",
		Phone: "+12025550123",
	})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if status != domain.StatusNew {
		client.Status = string(status)
		if err := svc.repo.UpdateState(context.Background(), client); err != nil {
			t.Fatalf("seed status: %v", err)
		}
	}
	return client.ID
}

func TestCreateClient_NormalizesInput(t *testing.T) {
	svc, _, _ := newTestService()

	client, err := svc.CreateClient(context.Background(), CreateClientParams{
		Name:  "  Jordan Reyes ",
		Email: " Jordan@Example.COM ",
		Phone: "(202) 555-0123",
	})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if client.Email != "jordan@example.com" {
		t.Errorf("email = %q, want lowercased and trimmed", client.Email)
	}
	if client.Phone != "+12025550123" {
		t.Errorf("phone = %q, want E.164", client.Phone)
	}
	if client.Status != string(domain.StatusNew) {
		t.Errorf("status = %q, want %q", client.Status, domain.StatusNew)
	}
}

func TestCreateClient_RequiresNameAndEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateClient(ctx, CreateClientParams{Email: "a@b.com"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing name: got %v, want validation error", err)
	}
	if _, err := svc.CreateClient(ctx, CreateClientParams{Name: "A"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing email: got %v, want validation error", err)
	}
}

func TestTransition_PersistsAndPublishes(t *testing.T) {
	svc, repo, bus := newTestService()
	id := createAt(t, svc, domain.StatusPendingOutreach)

	client, err := svc.Transition(context.Background(), id, domain.AttemptSent{Number: 1})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if client.Status != string(domain.StatusAwaitingResponse) {
		t.Errorf("status = %q, want awaiting_response", client.Status)
	}
	if client.InitialOutreachDate == nil {
		t.Error("initial outreach milestone not stamped")
	}

	stored, _ := repo.GetByID(context.Background(), id)
	if stored.Status != string(domain.StatusAwaitingResponse) {
		t.Errorf("stored status = %q, want awaiting_response", stored.Status)
	}

	changed := bus.byName("clients.status.changed")
	if len(changed) != 1 {
		t.Fatalf("published %d status change events, want 1", len(changed))
	}
	ev := changed[0].(events.ClientStatusChanged)
	if ev.OldStatus != string(domain.StatusPendingOutreach) || ev.NewStatus != string(domain.StatusAwaitingResponse) {
		t.Errorf("event = %s -> %s, want pending_outreach -> awaiting_response", ev.OldStatus, ev.NewStatus)
	}
}

func TestTransition_RejectionLeavesClientUntouched(t *testing.T) {
	svc, repo, bus := newTestService()
	id := createAt(t, svc, domain.StatusNew)

	client, err := svc.Transition(context.Background(), id, domain.AttemptSent{Number: 1})
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("got %v, want invalid transition", err)
	}
	if client == nil || client.Status != string(domain.StatusNew) {
		t.Error("rejection should return the current unchanged client")
	}

	stored, _ := repo.GetByID(context.Background(), id)
	if stored.Status != string(domain.StatusNew) {
		t.Errorf("stored status = %q, want new", stored.Status)
	}
	if len(bus.byName("clients.status.changed")) != 0 {
		t.Error("rejected transition must not publish events")
	}
}

func TestClose_RecordsClosureMetadata(t *testing.T) {
	svc, _, bus := newTestService()
	id := createAt(t, svc, domain.StatusFollowUpDue)

	client, err := svc.Close(context.Background(), id, CloseParams{
		Target:   domain.StatusClosedNoContact,
		Reason:   "no response after final attempt",
		Workflow: "outreach",
	})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.Status != string(domain.StatusClosedNoContact) {
		t.Errorf("status = %q, want closed_no_contact", client.Status)
	}
	if client.ClosedDate == nil {
		t.Error("closed date not stamped")
	}
	if client.ClosedFromStatus == nil || *client.ClosedFromStatus != string(domain.StatusFollowUpDue) {
		t.Errorf("closed from status = %v, want follow_up_due", client.ClosedFromStatus)
	}
	if client.ClosedReason == nil || *client.ClosedReason != "no response after final attempt" {
		t.Errorf("closed reason = %v", client.ClosedReason)
	}

	if len(bus.byName("clients.closed")) != 1 {
		t.Error("expected exactly one clients.closed event")
	}
}

func TestClose_RejectsNonClosedTarget(t *testing.T) {
	svc, _, _ := newTestService()
	id := createAt(t, svc, domain.StatusInCommunication)

	_, err := svc.Close(context.Background(), id, CloseParams{Target: domain.StatusScheduled})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestClose_RejectsUnknownWorkflowTag(t *testing.T) {
	svc, repo, _ := newTestService()
	id := createAt(t, svc, domain.StatusInCommunication)

	_, err := svc.Close(context.Background(), id, CloseParams{
		Target:   domain.StatusClosedOther,
		Reason:   "duplicate record",
		Workflow: "outreach_auto_close",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("got %v, want validation error", err)
	}

	stored, _ := repo.GetByID(context.Background(), id)
	if stored.Status != string(domain.StatusInCommunication) {
		t.Errorf("stored status = %q, want unchanged in_communication", stored.Status)
	}
}

func TestReopen_ReturnsPreviousStatus(t *testing.T) {
	svc, _, _ := newTestService()
	id := createAt(t, svc, domain.StatusClosedNoContact)

	client, prev, err := svc.Reopen(context.Background(), id, domain.StatusInCommunication)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if prev != domain.StatusClosedNoContact {
		t.Errorf("previous status = %q, want closed_no_contact", prev)
	}
	if client.Status != string(domain.StatusInCommunication) {
		t.Errorf("status = %q, want in_communication", client.Status)
	}
}

func TestReopen_RejectedWhenNotClosed(t *testing.T) {
	svc, _, _ := newTestService()
	id := createAt(t, svc, domain.StatusInCommunication)

	_, _, err := svc.Reopen(context.Background(), id, domain.StatusReadyToSchedule)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Errorf("got %v, want invalid transition", err)
	}
}

func TestTransition_ConcurrentEventsSerialize(t *testing.T) {
	svc, repo, _ := newTestService()
	id := createAt(t, svc, domain.StatusPendingOutreach)

	// One attempt send racing one staff close. Exactly one of the two
	// outcomes must win and the loser must see a clean rejection, never
	// a version conflict, because transitions serialize per client.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.Transition(context.Background(), id, domain.AttemptSent{Number: 1})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.Close(context.Background(), id, CloseParams{Target: domain.StatusClosedOther, Reason: "withdrawn"})
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil && !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Errorf("operation %d: got %v, want nil or invalid transition", i, err)
		}
	}

	stored, _ := repo.GetByID(context.Background(), id)
	got := domain.Status(stored.Status)
	// Close is legal from awaiting_response too, so closed may win after
	// the attempt lands.
	if got != domain.StatusAwaitingResponse && got != domain.StatusClosedOther {
		t.Errorf("final status = %q, want awaiting_response or closed_other", got)
	}
}

func TestListByStatuses_MatchesLegacyStoredValues(t *testing.T) {
	svc, repo, _ := newTestService()
	canonical := createAt(t, svc, domain.StatusAwaitingResponse)

	// A row imported before the status rename, stored under the retired
	// spelling.
	legacy := uuid.New()
	if err := repo.Create(context.Background(), &repository.Client{
		ID:      legacy,
		Name:    "Sam Okafor",
		Email:   "sam@example.com",
		Status:  "follow_up_1",
		Version: 1,
	}); err != nil {
		t.Fatalf("seed legacy client: %v", err)
	}

	clients, err := svc.ListByStatuses(context.Background(), []domain.Status{domain.StatusAwaitingResponse})
	if err != nil {
		t.Fatalf("ListByStatuses: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("got %d clients, want both the canonical and the legacy row", len(clients))
	}
	found := map[uuid.UUID]bool{}
	for _, c := range clients {
		found[c.ID] = true
	}
	if !found[canonical] || !found[legacy] {
		t.Errorf("missing rows: canonical=%v legacy=%v", found[canonical], found[legacy])
	}
}

func TestListByStatuses_RejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ListByStatuses(context.Background(), []domain.Status{"definitely_not_a_status"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("got %v, want validation error", err)
	}
}
