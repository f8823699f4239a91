package handler

import (
	"net/http"
	"time"

	"intake_portal_backend/internal/scheduling/domain"
	"intake_portal_backend/internal/scheduling/service"
	"intake_portal_backend/internal/scheduling/transport"
	"intake_portal_backend/platform/httpkit"
	"intake_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidClientID  = "invalid client ID"
)

// Handler handles HTTP requests for scheduling
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new scheduling handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the scheduling routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/clients/:id/slots", h.OfferSlot)
	rg.GET("/clients/:id/slots", h.ListSlots)
	rg.DELETE("/slots/:slotId", h.DeactivateSlot)
	rg.POST("/clients/:id/appointments", h.Schedule)
	rg.GET("/clients/:id/appointments", h.GetAppointment)
}

// OfferSlot handles POST /api/v1/scheduling/clients/:id/slots
func (h *Handler) OfferSlot(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.OfferSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	slot, offerErr := h.svc.OfferSlot(c.Request.Context(), clientID, service.OfferSlotParams{
		Day:        time.Weekday(req.Day),
		TimeOfDay:  req.TimeOfDay,
		Clinicians: req.Clinicians,
	})
	if httpkit.HandleError(c, offerErr) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToSlotResponse(slot))
}

// ListSlots handles GET /api/v1/scheduling/clients/:id/slots
func (h *Handler) ListSlots(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	slots, listErr := h.svc.ListOfferedSlots(c.Request.Context(), clientID)
	if httpkit.HandleError(c, listErr) {
		return
	}

	httpkit.OK(c, transport.ToSlotResponses(slots))
}

// DeactivateSlot handles DELETE /api/v1/scheduling/slots/:slotId
func (h *Handler) DeactivateSlot(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid slot ID", nil)
		return
	}

	if err := h.svc.DeactivateSlot(c.Request.Context(), slotID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusNoContent, nil)
}

// Schedule handles POST /api/v1/scheduling/clients/:id/appointments
func (h *Handler) Schedule(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	appointment, schedErr := h.svc.ValidateAndSchedule(c.Request.Context(), clientID, service.ScheduleParams{
		Day:               time.Weekday(req.Day),
		TimeOfDay:         req.TimeOfDay,
		Clinician:         req.Clinician,
		StartDate:         req.StartDate,
		Recurrence:        domain.Recurrence(req.Recurrence),
		OfferedSlotID:     req.OfferedSlotID,
		CommunicationNote: req.CommunicationNote,
	})
	if httpkit.HandleError(c, schedErr) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAppointmentResponse(appointment))
}

// GetAppointment handles GET /api/v1/scheduling/clients/:id/appointments
func (h *Handler) GetAppointment(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	appointment, getErr := h.svc.GetAppointment(c.Request.Context(), clientID)
	if httpkit.HandleError(c, getErr) {
		return
	}

	httpkit.OK(c, transport.ToAppointmentResponse(appointment))
}
