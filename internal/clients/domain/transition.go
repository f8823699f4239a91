package domain

import (
	"fmt"

	"intake_portal_backend/platform/apperr"
)

// Event is a lifecycle event applied to a client's current status. The set
// of event types is closed; Transition rejects anything it does not know.
type Event interface {
	// Name returns the event identifier used in logs and audit trails.
	Name() string
}

// AttemptSent signals that outreach attempt Number was actually dispatched.
type AttemptSent struct {
	Number int
}

func (AttemptSent) Name() string { return "attempt_sent" }

// ReplyDetected signals a new inbound message from the client. It is a
// strict override: client responsiveness supersedes the follow-up cadence.
type ReplyDetected struct{}

func (ReplyDetected) Name() string { return "reply_detected" }

// FollowUpDue signals that the response window of the latest sent attempt
// elapsed without a reply and a follow-up is owed.
type FollowUpDue struct{}

func (FollowUpDue) Name() string { return "follow_up_due" }

// AllAttemptsExhausted signals that the final configured attempt's window
// elapsed unanswered.
type AllAttemptsExhausted struct{}

func (AllAttemptsExhausted) Name() string { return "all_attempts_exhausted" }

// StaffActionKind identifies a staff-driven transition.
type StaffActionKind string

const (
	ActionBeginEvaluation       StaffActionKind = "begin_evaluation"
	ActionCompleteEvaluation    StaffActionKind = "complete_evaluation"
	ActionFlagEvaluation        StaffActionKind = "flag_evaluation"
	ActionStartOutreach         StaffActionKind = "start_outreach"
	ActionMarkReadyToSchedule   StaffActionKind = "mark_ready_to_schedule"
	ActionMarkAwaitingScheduling StaffActionKind = "mark_awaiting_scheduling"
	ActionBeginReferral         StaffActionKind = "begin_referral"
	ActionMarkReferred          StaffActionKind = "mark_referred"
	ActionSchedule              StaffActionKind = "schedule"
	ActionMarkCompleted         StaffActionKind = "mark_completed"
	ActionClose                 StaffActionKind = "close"
	ActionReopen                StaffActionKind = "reopen"
)

// StaffAction is a transition initiated by a staff member. Target carries
// the destination status for the close and reopen kinds and is ignored
// otherwise.
type StaffAction struct {
	Kind   StaffActionKind
	Target Status
}

func (a StaffAction) Name() string { return string(a.Kind) }

// staffTransitions maps each simple staff action to its legal source
// statuses and destination. Close, reopen, and schedule carry extra rules
// and are handled separately.
var staffTransitions = map[StaffActionKind]struct {
	from map[Status]struct{}
	to   Status
}{
	ActionBeginEvaluation: {
		from: set(StatusNew),
		to:   StatusPendingEvaluation,
	},
	ActionCompleteEvaluation: {
		from: set(StatusPendingEvaluation),
		to:   StatusEvaluationComplete,
	},
	ActionFlagEvaluation: {
		from: set(StatusPendingEvaluation),
		to:   StatusEvaluationFlagged,
	},
	ActionStartOutreach: {
		from: set(StatusEvaluationComplete, StatusEvaluationFlagged),
		to:   StatusPendingOutreach,
	},
	ActionMarkReadyToSchedule: {
		from: set(StatusInCommunication),
		to:   StatusReadyToSchedule,
	},
	ActionMarkAwaitingScheduling: {
		from: set(StatusInCommunication),
		to:   StatusAwaitingScheduling,
	},
	ActionBeginReferral: {
		from: set(StatusInCommunication, StatusNoContactOKClose, StatusEvaluationFlagged),
		to:   StatusPendingReferral,
	},
	ActionMarkReferred: {
		from: set(StatusPendingReferral),
		to:   StatusReferred,
	},
	ActionMarkCompleted: {
		from: set(StatusScheduled),
		to:   StatusCompleted,
	},
}

// schedulableFrom lists statuses from which an appointment may move the
// client to scheduled. Out-of-band scheduling (no inbound reply yet) is
// permitted but the scheduling validator requires a written justification.
var schedulableFrom = set(
	StatusReadyToSchedule,
	StatusAwaitingScheduling,
	StatusInCommunication,
	StatusAwaitingResponse,
	StatusFollowUpDue,
	StatusPendingOutreach,
	StatusNoContactOKClose,
)

// Transition is the pure lifecycle function. Given the current status and an
// event it returns the new status, or an InvalidTransition error leaving the
// decision to the caller. It never mutates anything.
func Transition(current Status, ev Event) (Status, error) {
	switch e := ev.(type) {
	case AttemptSent:
		return applyAttemptSent(current, e)
	case ReplyDetected:
		return applyReplyDetected(current)
	case FollowUpDue:
		if current != StatusAwaitingResponse {
			return current, rejected(current, ev, "follow-up is only due while awaiting a response")
		}
		return StatusFollowUpDue, nil
	case AllAttemptsExhausted:
		if current != StatusAwaitingResponse && current != StatusFollowUpDue {
			return current, rejected(current, ev, "attempts can only be exhausted during outreach")
		}
		return StatusNoContactOKClose, nil
	case StaffAction:
		return applyStaffAction(current, e)
	default:
		return current, rejected(current, ev, "unknown event")
	}
}

func applyAttemptSent(current Status, e AttemptSent) (Status, error) {
	if e.Number < 1 {
		return current, rejected(current, e, fmt.Sprintf("attempt number %d is invalid", e.Number))
	}
	if e.Number == 1 {
		if current != StatusPendingOutreach {
			return current, rejected(current, e, "initial outreach requires pending_outreach")
		}
		return StatusAwaitingResponse, nil
	}
	// A follow-up attempt may only be sent once the previous one is due.
	if current != StatusFollowUpDue {
		return current, rejected(current, e, fmt.Sprintf("attempt %d requires a due follow-up", e.Number))
	}
	return StatusAwaitingResponse, nil
}

func applyReplyDetected(current Status) (Status, error) {
	if current.IsClosed() {
		return current, rejected(current, ReplyDetected{}, "client is closed")
	}
	if current == StatusScheduled || current.IsTerminal() {
		return current, rejected(current, ReplyDetected{}, "client workflow already concluded")
	}
	return StatusInCommunication, nil
}

func applyStaffAction(current Status, a StaffAction) (Status, error) {
	switch a.Kind {
	case ActionClose:
		if !current.CanClose() {
			return current, rejected(current, a, "client cannot be closed from a terminal or closed state")
		}
		if !a.Target.IsClosed() {
			return current, rejected(current, a, fmt.Sprintf("close target %q is not a closure status", a.Target))
		}
		return a.Target, nil

	case ActionReopen:
		if !current.IsClosed() {
			return current, rejected(current, a, "only closed clients can be reopened")
		}
		if !IsKnown(a.Target) || a.Target.IsClosed() {
			return current, rejected(current, a, fmt.Sprintf("reopen target %q is not a valid resumption status", a.Target))
		}
		return a.Target, nil

	case ActionSchedule:
		if _, ok := schedulableFrom[current]; !ok {
			return current, rejected(current, a, "client cannot be scheduled from this status")
		}
		return StatusScheduled, nil
	}

	rule, ok := staffTransitions[a.Kind]
	if !ok {
		return current, rejected(current, a, fmt.Sprintf("unknown staff action %q", a.Kind))
	}
	if _, ok := rule.from[current]; !ok {
		return current, rejected(current, a, fmt.Sprintf("%s is not allowed from %s", a.Kind, current))
	}
	return rule.to, nil
}

func rejected(current Status, ev Event, reason string) error {
	return apperr.InvalidTransition(
		fmt.Sprintf("cannot apply %s in status %s: %s", ev.Name(), current, reason),
	)
}

func set(statuses ...Status) map[Status]struct{} {
	m := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		m[s] = struct{}{}
	}
	return m
}
