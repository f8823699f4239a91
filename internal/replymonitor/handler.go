package replymonitor

import (
	"net/http"

	"intake_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the reply monitor
type Handler struct {
	svc *Service
}

// NewHandler creates a new reply monitor handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the monitor routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/check", h.CheckNow)
	rg.GET("/status", h.Status)
}

// CheckNow handles POST /api/v1/replies/check, the on-demand sweep.
func (h *Handler) CheckNow(c *gin.Context) {
	detected, err := h.svc.CheckNow(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusOK, gin.H{"detected": detected})
}

// Status handles GET /api/v1/replies/status
func (h *Handler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, status)
}
