package handler

import (
	"net/http"

	"intake_portal_backend/internal/clients/domain"
	clienttransport "intake_portal_backend/internal/clients/transport"
	"intake_portal_backend/internal/referral/service"
	"intake_portal_backend/internal/referral/transport"
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

// Handler handles HTTP requests for referrals and case closure
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new referral handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the referral routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/clients/:id/clinics", h.SelectClinics)
	rg.POST("/clients/:id/send", h.SendReferral)
	rg.POST("/clients/:id/close", h.CloseCase)
	rg.POST("/clients/:id/reopen", h.ReopenCase)
	rg.GET("/clients/:id/reopens", h.ListReopenHistory)
}

// SelectClinics handles PUT /api/v1/referrals/clients/:id/clinics
func (h *Handler) SelectClinics(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.SelectClinicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.SelectClinics(c.Request.Context(), clientID, req.Clinics); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"clinics": h.svc.SelectedClinics(clientID)})
}

// SendReferral handles POST /api/v1/referrals/clients/:id/send
func (h *Handler) SendReferral(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	client, sendErr := h.svc.SendReferral(c.Request.Context(), clientID)
	if httpkit.HandleError(c, sendErr) {
		return
	}

	httpkit.OK(c, clienttransport.ToClientResponse(client))
}

// CloseCase handles POST /api/v1/referrals/clients/:id/close
func (h *Handler) CloseCase(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.CloseCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, closeErr := h.svc.CloseCase(c.Request.Context(), clientID, service.CloseCaseParams{
		AcknowledgeNoReferral: req.AcknowledgeNoReferral,
		NoContact:             req.NoContact,
		Workflow:              req.Workflow,
	})
	if httpkit.HandleError(c, closeErr) {
		return
	}

	httpkit.OK(c, clienttransport.ToClientResponse(client))
}

// ReopenCase handles POST /api/v1/referrals/clients/:id/reopen
func (h *Handler) ReopenCase(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.ReopenCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	target, parseErr := domain.Parse(req.TargetStatus)
	if httpkit.HandleError(c, parseErr) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	client, reopenErr := h.svc.ReopenCase(c.Request.Context(), clientID, service.ReopenCaseParams{
		TargetStatus: target,
		Reason:       req.Reason,
		Actor:        identity.UserID(),
	})
	if reopenErr != nil {
		if client != nil {
			httpkit.ErrorWithState(c, reopenErr, clienttransport.ToClientResponse(client))
			return
		}
		httpkit.HandleError(c, reopenErr)
		return
	}

	httpkit.OK(c, clienttransport.ToClientResponse(client))
}

// ListReopenHistory handles GET /api/v1/referrals/clients/:id/reopens
func (h *Handler) ListReopenHistory(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	history, listErr := h.svc.ListReopenHistory(c.Request.Context(), clientID)
	if httpkit.HandleError(c, listErr) {
		return
	}

	httpkit.OK(c, transport.ToReopenHistoryResponses(history))
}
