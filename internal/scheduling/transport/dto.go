package transport

import (
	"time"

	"intake_portal_backend/internal/scheduling/repository"

	"github.com/google/uuid"
)

// OfferSlotRequest is the request body for offering a slot
type OfferSlotRequest struct {
	Day        int      `json:"day" validate:"min=0,max=6"`
	TimeOfDay  string   `json:"timeOfDay" validate:"required"`
	Clinicians []string `json:"clinicians" validate:"required,min=1,max=10,dive,min=1,max=200"`
}

// ScheduleRequest is the request body for scheduling an appointment
type ScheduleRequest struct {
	Day               int        `json:"day" validate:"min=0,max=6"`
	TimeOfDay         string     `json:"timeOfDay" validate:"required"`
	Clinician         string     `json:"clinician,omitempty" validate:"max=200"`
	StartDate         time.Time  `json:"startDate" validate:"required"`
	Recurrence        string     `json:"recurrence" validate:"required,oneof=weekly bi_weekly monthly one_time"`
	OfferedSlotID     *uuid.UUID `json:"offeredSlotId,omitempty"`
	CommunicationNote string     `json:"communicationNote,omitempty" validate:"max=2000"`
}

// SlotResponse is the response body for an offered slot
type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	ClientID   uuid.UUID `json:"clientId"`
	Day        int       `json:"day"`
	TimeOfDay  string    `json:"timeOfDay"`
	Clinicians []string  `json:"clinicians"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AppointmentResponse is the response body for a scheduled appointment
type AppointmentResponse struct {
	ID                uuid.UUID  `json:"id"`
	ClientID          uuid.UUID  `json:"clientId"`
	Day               int        `json:"day"`
	TimeOfDay         string     `json:"timeOfDay"`
	Clinician         string     `json:"clinician"`
	StartDate         time.Time  `json:"startDate"`
	Recurrence        string     `json:"recurrence"`
	CommunicationNote *string    `json:"communicationNote,omitempty"`
	OfferedSlotID     *uuid.UUID `json:"offeredSlotId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// ToSlotResponse maps the database model to the API response
func ToSlotResponse(s *repository.OfferedSlot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ClientID:   s.ClientID,
		Day:        s.Day,
		TimeOfDay:  s.TimeOfDay,
		Clinicians: s.Clinicians,
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
	}
}

// ToSlotResponses maps a slice of database models to API responses
func ToSlotResponses(slots []repository.OfferedSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, ToSlotResponse(&slots[i]))
	}
	return out
}

// ToAppointmentResponse maps the database model to the API response
func ToAppointmentResponse(a *repository.ScheduledAppointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		ClientID:          a.ClientID,
		Day:               a.Day,
		TimeOfDay:         a.TimeOfDay,
		Clinician:         a.Clinician,
		StartDate:         a.StartDate,
		Recurrence:        a.Recurrence,
		CommunicationNote: a.CommunicationNote,
		OfferedSlotID:     a.OfferedSlotID,
		CreatedAt:         a.CreatedAt,
	}
}
