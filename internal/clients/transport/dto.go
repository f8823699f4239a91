package transport

import (
	"time"

	"intake_portal_backend/internal/clients/repository"

	"github.com/google/uuid"
)

// CreateClientRequest is the request body for registering a new client
type CreateClientRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone,omitempty" validate:"max=32"`
	EvaluationNote string `json:"evaluationNote,omitempty" validate:"max=2000"`
}

// StaffActionRequest is the request body for applying a staff-driven
// lifecycle action. Target is required for close and reopen actions only.
type StaffActionRequest struct {
	Action string `json:"action" validate:"required,min=1,max=64"`
	Target string `json:"target,omitempty" validate:"max=64"`
}

// ListClientsRequest is the query parameters for listing clients
type ListClientsRequest struct {
	Statuses []string `form:"status" validate:"required,min=1,dive,min=1,max=64"`
}

// ClientResponse is the response body for a client
type ClientResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone,omitempty"`
	Status              string     `json:"status"`
	Version             int64      `json:"version"`
	InitialOutreachDate *time.Time `json:"initialOutreachDate,omitempty"`
	FollowUp1Date       *time.Time `json:"followUp1Date,omitempty"`
	FollowUp2Date       *time.Time `json:"followUp2Date,omitempty"`
	ScheduledDate       *time.Time `json:"scheduledDate,omitempty"`
	ClosedDate          *time.Time `json:"closedDate,omitempty"`
	ClosedReason        *string    `json:"closedReason,omitempty"`
	ClosedFromWorkflow  *string    `json:"closedFromWorkflow,omitempty"`
	ClosedFromStatus    *string    `json:"closedFromStatus,omitempty"`
	ReferralEmailSentAt *time.Time `json:"referralEmailSentAt,omitempty"`
	ReferralClinicNames []string   `json:"referralClinicNames,omitempty"`
	EvaluationNote      *string    `json:"evaluationNote,omitempty"`
	FlagNote            *string    `json:"flagNote,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// ToClientResponse maps the database model to the API response
func ToClientResponse(c *repository.Client) ClientResponse {
	return ClientResponse{
		ID:                  c.ID,
		Name:                c.Name,
		Email:               c.Email,
		Phone:               c.Phone,
		Status:              c.Status,
		Version:             c.Version,
		InitialOutreachDate: c.InitialOutreachDate,
		FollowUp1Date:       c.FollowUp1Date,
		FollowUp2Date:       c.FollowUp2Date,
		ScheduledDate:       c.ScheduledDate,
		ClosedDate:          c.ClosedDate,
		ClosedReason:        c.ClosedReason,
		ClosedFromWorkflow:  c.ClosedFromWorkflow,
		ClosedFromStatus:    c.ClosedFromStatus,
		ReferralEmailSentAt: c.ReferralEmailSentAt,
		ReferralClinicNames: c.ReferralClinicNames,
		EvaluationNote:      c.EvaluationNote,
		FlagNote:            c.FlagNote,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

// ToClientResponses maps a slice of database models to API responses
func ToClientResponses(clients []repository.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, ToClientResponse(&clients[i]))
	}
	return out
}
