package handler

import (
	"net/http"

	"intake_portal_backend/internal/outreach/service"
	"intake_portal_backend/internal/outreach/transport"
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

// Handler handles HTTP requests for outreach
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new outreach handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the outreach routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/clients/:id/attempts", h.SendAttempt)
	rg.GET("/clients/:id/attempts", h.ListAttempts)
	rg.GET("/clients/:id/dueness", h.GetDueness)
}

// SendAttempt handles POST /api/v1/outreach/clients/:id/attempts
func (h *Handler) SendAttempt(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.SendAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	attempt, err := h.svc.SendAttempt(c.Request.Context(), clientID, req.AttemptNumber)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAttemptResponse(attempt))
}

// ListAttempts handles GET /api/v1/outreach/clients/:id/attempts
func (h *Handler) ListAttempts(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	attempts, listErr := h.svc.ListAttempts(c.Request.Context(), clientID)
	if httpkit.HandleError(c, listErr) {
		return
	}

	httpkit.OK(c, transport.ToAttemptResponses(attempts))
}

// GetDueness handles GET /api/v1/outreach/clients/:id/dueness
func (h *Handler) GetDueness(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	dueness, evalErr := h.svc.EvaluateClientDueness(c.Request.Context(), clientID)
	if httpkit.HandleError(c, evalErr) {
		return
	}

	httpkit.OK(c, transport.DuenessResponse{ClientID: clientID, Dueness: string(dueness)})
}
