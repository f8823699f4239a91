package service

import (
	"time"

	"intake_portal_backend/internal/clients/domain"
	"intake_portal_backend/internal/outreach/repository"
)

// Dueness classifies how a client stands relative to the response window of
// their latest sent attempt. The fixed 24-hour window is authoritative here;
// the business-day cadence only decides when follow-up checks run.
type Dueness string

const (
	DuenessNotDue           Dueness = "not_due"
	DuenessDueToday         Dueness = "due_today"
	DuenessOverdue          Dueness = "overdue"
	DuenessNoContactOKClose Dueness = "no_contact_ok_close"
)

// EvaluateDueness is the single source of truth for due classification.
// Pure: no clock reads, no I/O. Attempts must belong to the given client.
func EvaluateDueness(status domain.Status, attempts []repository.Attempt, attemptCount int, now time.Time) Dueness {
	if status == domain.StatusNoContactOKClose {
		return DuenessNoContactOKClose
	}
	if status != domain.StatusAwaitingResponse && status != domain.StatusFollowUpDue {
		return DuenessNotDue
	}

	latest := latestSent(attempts)
	if latest == nil || latest.ResponseDetected || latest.ResponseWindowEnd == nil {
		return DuenessNotDue
	}

	windowEnd := *latest.ResponseWindowEnd
	if now.After(windowEnd) {
		if latest.AttemptNumber >= attemptCount {
			return DuenessNoContactOKClose
		}
		return DuenessOverdue
	}

	if sameDay(now, windowEnd) {
		return DuenessDueToday
	}
	return DuenessNotDue
}

func latestSent(attempts []repository.Attempt) *repository.Attempt {
	var latest *repository.Attempt
	for i := range attempts {
		a := &attempts[i]
		if a.Status != repository.StatusSent {
			continue
		}
		if latest == nil || a.AttemptNumber > latest.AttemptNumber {
			latest = a
		}
	}
	return latest
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
