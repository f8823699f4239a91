// Package domain provides core business rules for the client lifecycle
// bounded context: the status enum, the legacy status mapping table, and the
// pure transition function.
package domain

import (
	"fmt"

	"intake_portal_backend/platform/apperr"
)

// Status is a client's position in the outreach lifecycle.
type Status string

const (
	StatusNew                Status = "new"
	StatusPendingEvaluation  Status = "pending_evaluation"
	StatusEvaluationComplete Status = "evaluation_complete"
	StatusEvaluationFlagged  Status = "evaluation_flagged"
	StatusPendingOutreach    Status = "pending_outreach"
	StatusAwaitingResponse   Status = "awaiting_response"
	StatusFollowUpDue        Status = "follow_up_due"
	StatusInCommunication    Status = "in_communication"
	StatusReadyToSchedule    Status = "ready_to_schedule"
	StatusAwaitingScheduling Status = "awaiting_scheduling"
	StatusScheduled          Status = "scheduled"
	StatusCompleted          Status = "completed"
	StatusPendingReferral    Status = "pending_referral"
	StatusReferred           Status = "referred"
	StatusNoContactOKClose   Status = "no_contact_ok_close"
	StatusClosedNoContact    Status = "closed_no_contact"
	StatusClosedOther        Status = "closed_other"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:                {},
	StatusPendingEvaluation:  {},
	StatusEvaluationComplete: {},
	StatusEvaluationFlagged:  {},
	StatusPendingOutreach:    {},
	StatusAwaitingResponse:   {},
	StatusFollowUpDue:        {},
	StatusInCommunication:    {},
	StatusReadyToSchedule:    {},
	StatusAwaitingScheduling: {},
	StatusScheduled:          {},
	StatusCompleted:          {},
	StatusPendingReferral:    {},
	StatusReferred:           {},
	StatusNoContactOKClose:   {},
	StatusClosedNoContact:    {},
	StatusClosedOther:        {},
}

// Workflow tags name which flow closed a case. Closure only accepts tags
// from this set.
const (
	WorkflowEvaluation = "evaluation"
	WorkflowOutreach   = "outreach"
	WorkflowReferral   = "referral"
	WorkflowScheduling = "scheduling"
	WorkflowOther      = "other"
)

var knownWorkflows = map[string]struct{}{
	WorkflowEvaluation: {},
	WorkflowOutreach:   {},
	WorkflowReferral:   {},
	WorkflowScheduling: {},
	WorkflowOther:      {},
}

// IsKnownWorkflow reports whether tag is a recognized closure workflow tag.
func IsKnownWorkflow(tag string) bool {
	_, ok := knownWorkflows[tag]
	return ok
}

// legacyMapping migrates a pre-canonical status string to its canonical
// status. Version records the schema revision that retired the legacy value,
// so overlapping generations of the string enum stay distinguishable.
type legacyMapping struct {
	Canonical Status
	Version   int
}

// legacyStatuses is the versioned migration table for status strings observed
// in older data. Legacy values are mapped explicitly, never conflated with
// canonical values that happen to look similar.
var legacyStatuses = map[string]legacyMapping{
	"follow_up_1":      {Canonical: StatusAwaitingResponse, Version: 1},
	"follow_up_2":      {Canonical: StatusAwaitingResponse, Version: 1},
	"contacted":        {Canonical: StatusInCommunication, Version: 1},
	"responded":        {Canonical: StatusInCommunication, Version: 2},
	"outreach_pending": {Canonical: StatusPendingOutreach, Version: 2},
	"no_contact":       {Canonical: StatusNoContactOKClose, Version: 2},
	"closed":           {Canonical: StatusClosedOther, Version: 1},
}

// Parse resolves a stored status string to a canonical Status, migrating
// legacy values through the mapping table. Unknown values are rejected.
func Parse(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := knownStatuses[s]; ok {
		return s, nil
	}
	if m, ok := legacyStatuses[raw]; ok {
		return m.Canonical, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown client status %q", raw))
}

// LegacyAliases returns the retired raw strings that migrate to s. Rows
// written before the status rename may still carry them, so status-filtered
// queries match the aliases alongside the canonical value.
func LegacyAliases(s Status) []string {
	var out []string
	for raw, m := range legacyStatuses {
		if m.Canonical == s {
			out = append(out, raw)
		}
	}
	return out
}

// MigrateLegacy reports the canonical status for a legacy value and whether
// the value was legacy at all.
func MigrateLegacy(raw string) (Status, bool) {
	m, ok := legacyStatuses[raw]
	if !ok {
		return "", false
	}
	return m.Canonical, true
}

// IsKnown reports whether s is a canonical status.
func IsKnown(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsClosed reports whether s is one of the closure statuses.
func (s Status) IsClosed() bool {
	return s == StatusClosedNoContact || s == StatusClosedOther
}

// IsTerminal reports whether s ends the workflow. Closed statuses are
// handled separately because they remain reopenable.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusReferred
}

// InOutreach reports whether s is a status in which the reply monitor should
// watch the client's mailbox thread.
func (s Status) InOutreach() bool {
	switch s {
	case StatusAwaitingResponse, StatusFollowUpDue, StatusNoContactOKClose:
		return true
	default:
		return false
	}
}

// CanClose reports whether a close event is legal from s. Any non-terminal,
// non-closed state may be closed.
func (s Status) CanClose() bool {
	return !s.IsTerminal() && !s.IsClosed()
}
