// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"intake_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lifecycle Domain Events
// =============================================================================

// ClientStatusChanged is published after every successful lifecycle transition.
type ClientStatusChanged struct {
	BaseEvent
	ClientID  uuid.UUID `json:"clientId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Event     string    `json:"event"`
}

func (e ClientStatusChanged) EventName() string { return "clients.status.changed" }

// ClientClosed is published when a client case is closed.
type ClientClosed struct {
	BaseEvent
	ClientID         uuid.UUID `json:"clientId"`
	ClosedFromStatus string    `json:"closedFromStatus"`
	Reason           string    `json:"reason"`
	Workflow         string    `json:"workflow"`
}

func (e ClientClosed) EventName() string { return "clients.closed" }

// ClientReopened is published when a closed client case is reopened.
type ClientReopened struct {
	BaseEvent
	ClientID       uuid.UUID `json:"clientId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason"`
	ReopenedBy     uuid.UUID `json:"reopenedBy"`
}

func (e ClientReopened) EventName() string { return "clients.reopened" }

// =============================================================================
// Outreach Domain Events
// =============================================================================

// OutreachAttemptSent is published when an outreach email is actually sent.
type OutreachAttemptSent struct {
	BaseEvent
	ClientID      uuid.UUID `json:"clientId"`
	AttemptNumber int       `json:"attemptNumber"`
	SentAt        time.Time `json:"sentAt"`
	MessageID     string    `json:"messageId,omitempty"`
}

func (e OutreachAttemptSent) EventName() string { return "outreach.attempt.sent" }

// AllAttemptsExhausted is published when the final configured attempt's
// response window elapses without a reply.
type AllAttemptsExhausted struct {
	BaseEvent
	ClientID     uuid.UUID `json:"clientId"`
	AttemptCount int       `json:"attemptCount"`
}

func (e AllAttemptsExhausted) EventName() string { return "outreach.attempts.exhausted" }

// ReplyDetected is published when the reply monitor observes a new inbound
// message from a client. Emitted exactly once per newly observed message.
type ReplyDetected struct {
	BaseEvent
	ClientID   uuid.UUID `json:"clientId"`
	MessageID  string    `json:"messageId"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (e ReplyDetected) EventName() string { return "outreach.reply.detected" }

// =============================================================================
// Referral Domain Events
// =============================================================================

// ReferralSent is published when a referral email has been dispatched.
type ReferralSent struct {
	BaseEvent
	ClientID    uuid.UUID `json:"clientId"`
	ClinicNames []string  `json:"clinicNames"`
	SentAt      time.Time `json:"sentAt"`
}

func (e ReferralSent) EventName() string { return "referral.sent" }

// =============================================================================
// Scheduling Domain Events
// =============================================================================

// AppointmentScheduled is published when a validated appointment is created
// and the client reaches the terminal scheduled status.
type AppointmentScheduled struct {
	BaseEvent
	ClientID      uuid.UUID `json:"clientId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	Day           string    `json:"day"`
	TimeOfDay     string    `json:"timeOfDay"`
	Clinician     string    `json:"clinician"`
	StartDate     time.Time `json:"startDate"`
	Recurrence    string    `json:"recurrence"`
}

func (e AppointmentScheduled) EventName() string { return "scheduling.appointment.scheduled" }
