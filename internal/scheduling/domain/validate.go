// Package domain holds the pure appointment validation rules.
package domain

import (
	"strings"
	"time"

	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/calendar"

	clientdomain "intake_portal_backend/internal/clients/domain"
)

// Recurrence patterns for a scheduled appointment.
type Recurrence string

const (
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiWeekly Recurrence = "bi_weekly"
	RecurrenceMonthly  Recurrence = "monthly"
	RecurrenceOneTime  Recurrence = "one_time"
)

var recurrences = map[Recurrence]struct{}{
	RecurrenceWeekly:   {},
	RecurrenceBiWeekly: {},
	RecurrenceMonthly:  {},
	RecurrenceOneTime:  {},
}

// Validation error codes surfaced in the error details.
const (
	CodeDateMismatch      = "date_mismatch"
	CodePastDate          = "past_date"
	CodeLeadTime          = "lead_time"
	CodeClinicianRequired = "clinician_required"
	CodeNoteRequired      = "communication_note_required"
)

// minNoteLength is the shortest acceptable out-of-band justification.
const minNoteLength = 10

// Proposal is a candidate appointment awaiting validation.
type Proposal struct {
	Day        time.Weekday
	TimeOfDay  string
	Clinician  string
	StartDate  time.Time
	Recurrence Recurrence

	// SlotClinicians carries the clinicians of the chosen offered slot,
	// empty when scheduling without one.
	SlotClinicians []string

	// CommunicationNote justifies scheduling without an inbound reply.
	CommunicationNote string
}

// Validate checks a proposal against the client's current status and the
// scheduling rules. Pure: the caller supplies today. Returns the resolved
// clinician on success.
func Validate(p Proposal, currentStatus clientdomain.Status, today time.Time, leadDays int) (string, error) {
	if _, ok := recurrences[p.Recurrence]; !ok {
		return "", apperr.Validation("unknown recurrence pattern: " + string(p.Recurrence))
	}
	if _, err := time.Parse("15:04", p.TimeOfDay); err != nil {
		return "", apperr.Validation("time of day must be in HH:MM format")
	}

	if p.StartDate.Weekday() != p.Day {
		return "", apperr.Validation("start date does not fall on the proposed day").
			WithDetails(map[string]string{"code": CodeDateMismatch})
	}

	startDay := truncateToDay(p.StartDate)
	todayDay := truncateToDay(today)
	if startDay.Before(todayDay) {
		return "", apperr.Validation("start date is in the past").
			WithDetails(map[string]string{"code": CodePastDate})
	}

	if leadDays > 0 {
		earliest := truncateToDay(calendar.AddBusinessDays(todayDay, leadDays))
		if startDay.Before(earliest) {
			return "", apperr.Validation("start date is inside the scheduling lead time").
				WithDetails(map[string]string{"code": CodeLeadTime})
		}
	}

	clinician, err := resolveClinician(p)
	if err != nil {
		return "", err
	}

	if currentStatus != clientdomain.StatusInCommunication {
		note := strings.TrimSpace(p.CommunicationNote)
		if len(note) < minNoteLength {
			return "", apperr.Validation("scheduling without an inbound reply requires a written justification of at least 10 characters").
				WithDetails(map[string]string{"code": CodeNoteRequired})
		}
	}

	return clinician, nil
}

// resolveClinician disambiguates the clinician against the offered slot.
func resolveClinician(p Proposal) (string, error) {
	chosen := strings.TrimSpace(p.Clinician)

	switch len(p.SlotClinicians) {
	case 0:
		if chosen == "" {
			return "", apperr.Validation("a clinician is required").
				WithDetails(map[string]string{"code": CodeClinicianRequired})
		}
		return chosen, nil
	case 1:
		if chosen != "" && chosen != p.SlotClinicians[0] {
			return "", apperr.Validation("clinician does not match the offered slot").
				WithDetails(map[string]string{"code": CodeClinicianRequired})
		}
		return p.SlotClinicians[0], nil
	default:
		for _, c := range p.SlotClinicians {
			if c == chosen {
				return chosen, nil
			}
		}
		return "", apperr.Validation("the offered slot has multiple clinicians, exactly one must be chosen").
			WithDetails(map[string]string{"code": CodeClinicianRequired})
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
