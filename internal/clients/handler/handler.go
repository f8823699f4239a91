package handler

import (
	"net/http"

	"intake_portal_backend/internal/clients/domain"
	"intake_portal_backend/internal/clients/service"
	"intake_portal_backend/internal/clients/transport"
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

// Handler handles HTTP requests for clients
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new clients handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the client routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/actions", h.ApplyAction)
}

// Create handles POST /api/v1/clients
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, err := h.svc.CreateClient(c.Request.Context(), service.CreateClientParams{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		EvaluationNote: req.EvaluationNote,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToClientResponse(client))
}

// List handles GET /api/v1/clients?status=...
func (h *Handler) List(c *gin.Context) {
	var req transport.ListClientsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	statuses := make([]domain.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		st, err := domain.Parse(raw)
		if httpkit.HandleError(c, err) {
			return
		}
		statuses = append(statuses, st)
	}

	clients, err := h.svc.ListByStatuses(c.Request.Context(), statuses)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToClientResponses(clients))
}

// GetByID handles GET /api/v1/clients/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	client, getErr := h.svc.GetClient(c.Request.Context(), id)
	if httpkit.HandleError(c, getErr) {
		return
	}

	httpkit.OK(c, transport.ToClientResponse(client))
}

// ApplyAction handles POST /api/v1/clients/:id/actions. Closure and reopen
// carry extra bookkeeping and live under the referral module's endpoints.
func (h *Handler) ApplyAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClientID, nil)
		return
	}

	var req transport.StaffActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	kind := domain.StaffActionKind(req.Action)
	if kind == domain.ActionClose || kind == domain.ActionReopen {
		httpkit.Error(c, http.StatusBadRequest, "use the case closure endpoints for close and reopen", nil)
		return
	}

	action := domain.StaffAction{Kind: kind, Target: domain.Status(req.Target)}
	client, err := h.svc.Transition(c.Request.Context(), id, action)
	if err != nil {
		// Rejections report the current state so staff can see what the
		// client actually is before retrying.
		if client != nil {
			httpkit.ErrorWithState(c, err, transport.ToClientResponse(client))
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToClientResponse(client))
}
