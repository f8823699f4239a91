package service

import (
	"testing"
	"time"

	"intake_portal_backend/internal/clients/domain"
	"intake_portal_backend/internal/outreach/repository"

	"github.com/google/uuid"
)

func sentAttempt(number int, sentAt time.Time) repository.Attempt {
	windowEnd := sentAt.Add(24 * time.Hour)
	return repository.Attempt{
		ID:                uuid.New(),
		ClientID:          uuid.New(),
		AttemptNumber:     number,
		Status:            repository.StatusSent,
		SentAt:            &sentAt,
		ResponseWindowEnd: &windowEnd,
	}
}

func TestEvaluateDueness_OverdueAfterWindow(t *testing.T) {
	// Attempt 1 sent Monday 9am, evaluated Tuesday 10am with no reply.
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.August, 18, 10, 0, 0, 0, time.UTC)

	attempts := []repository.Attempt{sentAttempt(1, sentAt)}
	got := EvaluateDueness(domain.StatusAwaitingResponse, attempts, 3, now)
	if got != DuenessOverdue {
		t.Errorf("dueness = %q, want overdue", got)
	}
}

func TestEvaluateDueness_DueTodayInsideWindow(t *testing.T) {
	// Window ends Tuesday 9am; evaluating Tuesday 8am.
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.August, 18, 8, 0, 0, 0, time.UTC)

	attempts := []repository.Attempt{sentAttempt(1, sentAt)}
	got := EvaluateDueness(domain.StatusAwaitingResponse, attempts, 3, now)
	if got != DuenessDueToday {
		t.Errorf("dueness = %q, want due_today", got)
	}
}

func TestEvaluateDueness_NotDueSameDayAsSend(t *testing.T) {
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	now := sentAt.Add(2 * time.Hour)

	attempts := []repository.Attempt{sentAttempt(1, sentAt)}
	got := EvaluateDueness(domain.StatusAwaitingResponse, attempts, 3, now)
	if got != DuenessNotDue {
		t.Errorf("dueness = %q, want not_due", got)
	}
}

func TestEvaluateDueness_FinalAttemptElapsedIsNoContactOKClose(t *testing.T) {
	// Attempt count 3; attempt 3 sent and its window has elapsed unanswered.
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	now := sentAt.Add(48 * time.Hour)

	attempts := []repository.Attempt{
		sentAttempt(1, sentAt.Add(-10*24*time.Hour)),
		sentAttempt(2, sentAt.Add(-5*24*time.Hour)),
		sentAttempt(3, sentAt),
	}
	got := EvaluateDueness(domain.StatusAwaitingResponse, attempts, 3, now)
	if got != DuenessNoContactOKClose {
		t.Errorf("dueness = %q, want no_contact_ok_close", got)
	}
}

func TestEvaluateDueness_ResponseDetectedIsNotDue(t *testing.T) {
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	attempt := sentAttempt(1, sentAt)
	attempt.ResponseDetected = true

	got := EvaluateDueness(domain.StatusAwaitingResponse, []repository.Attempt{attempt}, 3, sentAt.Add(48*time.Hour))
	if got != DuenessNotDue {
		t.Errorf("dueness = %q, want not_due when response detected", got)
	}
}

func TestEvaluateDueness_NonOutreachStatusesNotDue(t *testing.T) {
	sentAt := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	attempts := []repository.Attempt{sentAttempt(1, sentAt)}
	now := sentAt.Add(48 * time.Hour)

	for _, status := range []domain.Status{
		domain.StatusInCommunication,
		domain.StatusScheduled,
		domain.StatusClosedNoContact,
		domain.StatusNew,
	} {
		if got := EvaluateDueness(status, attempts, 3, now); got != DuenessNotDue {
			t.Errorf("status %s: dueness = %q, want not_due", status, got)
		}
	}
}

func TestEvaluateDueness_NoContactStatusShortCircuits(t *testing.T) {
	got := EvaluateDueness(domain.StatusNoContactOKClose, nil, 3, time.Now())
	if got != DuenessNoContactOKClose {
		t.Errorf("dueness = %q, want no_contact_ok_close", got)
	}
}

func TestEvaluateDueness_PendingAttemptsIgnored(t *testing.T) {
	pending := repository.Attempt{
		ID:            uuid.New(),
		AttemptNumber: 1,
		Status:        repository.StatusPending,
	}
	got := EvaluateDueness(domain.StatusAwaitingResponse, []repository.Attempt{pending}, 3, time.Now())
	if got != DuenessNotDue {
		t.Errorf("dueness = %q, want not_due with only pending attempts", got)
	}
}
