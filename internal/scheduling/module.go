// Package scheduling provides the appointment scheduling domain module:
// offered slots, proposal validation, and the terminal scheduled transition.
package scheduling

import (
	"intake_portal_backend/internal/events"
	apphttp "intake_portal_backend/internal/http"
	"intake_portal_backend/internal/scheduling/handler"
	"intake_portal_backend/internal/scheduling/repository"
	"intake_portal_backend/internal/scheduling/service"
	"intake_portal_backend/internal/settings"
	"intake_portal_backend/platform/logger"
	"intake_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the scheduling domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new scheduling module with all dependencies wired
func NewModule(pool *pgxpool.Pool, lifecycle service.Lifecycle, bus events.Bus, cfg settings.Settings, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, lifecycle, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "scheduling"
}

// RegisterRoutes registers the module's routes under /api/v1/scheduling
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	scheduling := ctx.Protected.Group("/scheduling")
	m.handler.RegisterRoutes(scheduling)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
