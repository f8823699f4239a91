// Package clients provides the client lifecycle domain module. It owns the
// status state machine; all other modules mutate client status through this
// module's service.
package clients

import (
	"intake_portal_backend/internal/clients/handler"
	"intake_portal_backend/internal/clients/repository"
	"intake_portal_backend/internal/clients/service"
	"intake_portal_backend/internal/events"
	apphttp "intake_portal_backend/internal/http"
	"intake_portal_backend/platform/logger"
	"intake_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the clients domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new clients module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "clients"
}

// RegisterRoutes registers the module's routes under /api/v1/clients
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	clients := ctx.Protected.Group("/clients")
	m.handler.RegisterRoutes(clients)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
