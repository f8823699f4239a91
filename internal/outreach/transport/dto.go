package transport

import (
	"time"

	"intake_portal_backend/internal/outreach/repository"

	"github.com/google/uuid"
)

// SendAttemptRequest is the request body for sending an outreach attempt
type SendAttemptRequest struct {
	AttemptNumber int `json:"attemptNumber" validate:"required,min=1,max=10"`
}

// AttemptResponse is the response body for an outreach attempt
type AttemptResponse struct {
	ID                uuid.UUID  `json:"id"`
	ClientID          uuid.UUID  `json:"clientId"`
	AttemptNumber     int        `json:"attemptNumber"`
	Status            string     `json:"status"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	ResponseWindowEnd *time.Time `json:"responseWindowEnd,omitempty"`
	ResponseDetected  bool       `json:"responseDetected"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// DuenessResponse is the response body for a dueness evaluation
type DuenessResponse struct {
	ClientID uuid.UUID `json:"clientId"`
	Dueness  string    `json:"dueness"`
}

// ToAttemptResponse maps the database model to the API response
func ToAttemptResponse(a *repository.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:                a.ID,
		ClientID:          a.ClientID,
		AttemptNumber:     a.AttemptNumber,
		Status:            a.Status,
		SentAt:            a.SentAt,
		ResponseWindowEnd: a.ResponseWindowEnd,
		ResponseDetected:  a.ResponseDetected,
		CreatedAt:         a.CreatedAt,
	}
}

// ToAttemptResponses maps a slice of database models to API responses
func ToAttemptResponses(attempts []repository.Attempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for i := range attempts {
		out = append(out, ToAttemptResponse(&attempts[i]))
	}
	return out
}
