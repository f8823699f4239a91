// Package referral provides the referral and case closure domain module,
// including the append-only reopen history.
package referral

import (
	"intake_portal_backend/internal/email"
	"intake_portal_backend/internal/events"
	apphttp "intake_portal_backend/internal/http"
	"intake_portal_backend/internal/referral/handler"
	"intake_portal_backend/internal/referral/repository"
	"intake_portal_backend/internal/referral/service"
	"intake_portal_backend/platform/logger"
	"intake_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the referral domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new referral module with all dependencies wired
func NewModule(pool *pgxpool.Pool, lifecycle service.Lifecycle, sender email.Sender, bus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, lifecycle, sender, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "referral"
}

// RegisterRoutes registers the module's routes under /api/v1/referrals
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	referrals := ctx.Protected.Group("/referrals")
	m.handler.RegisterRoutes(referrals)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
