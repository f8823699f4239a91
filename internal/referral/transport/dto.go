package transport

import (
	"time"

	"intake_portal_backend/internal/referral/repository"

	"github.com/google/uuid"
)

// SelectClinicsRequest is the request body for staging a clinic selection
type SelectClinicsRequest struct {
	Clinics []string `json:"clinics" validate:"required,min=1,max=10,dive,min=1,max=200"`
}

// CloseCaseRequest is the request body for closing a case
type CloseCaseRequest struct {
	AcknowledgeNoReferral bool   `json:"acknowledgeNoReferral"`
	NoContact             bool   `json:"noContact"`
	Workflow              string `json:"workflow,omitempty" validate:"omitempty,oneof=evaluation outreach referral scheduling other"`
}

// ReopenCaseRequest is the request body for reopening a closed case
type ReopenCaseRequest struct {
	TargetStatus string `json:"targetStatus" validate:"required,min=1,max=64"`
	Reason       string `json:"reason" validate:"required,min=1,max=2000"`
}

// ReopenHistoryResponse is the response body for a reopen history entry
type ReopenHistoryResponse struct {
	ID             uuid.UUID `json:"id"`
	ClientID       uuid.UUID `json:"clientId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Reason         string    `json:"reason"`
	ReopenedBy     uuid.UUID `json:"reopenedBy"`
	ReopenedAt     time.Time `json:"reopenedAt"`
}

// ToReopenHistoryResponses maps reopen history entries to API responses
func ToReopenHistoryResponses(entries []repository.ReopenHistoryEntry) []ReopenHistoryResponse {
	out := make([]ReopenHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ReopenHistoryResponse{
			ID:             e.ID,
			ClientID:       e.ClientID,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			Reason:         e.Reason,
			ReopenedBy:     e.ReopenedBy,
			ReopenedAt:     e.ReopenedAt,
		})
	}
	return out
}
