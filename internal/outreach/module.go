// Package outreach provides the outreach attempt domain module: numbered
// attempt records, the follow-up cadence, and due classification.
package outreach

import (
	"context"

	"intake_portal_backend/internal/email"
	"intake_portal_backend/internal/events"
	apphttp "intake_portal_backend/internal/http"
	"intake_portal_backend/internal/outreach/handler"
	"intake_portal_backend/internal/outreach/repository"
	"intake_portal_backend/internal/outreach/service"
	"intake_portal_backend/internal/settings"
	"intake_portal_backend/platform/logger"
	"intake_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the outreach domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new outreach module with all dependencies wired.
// It subscribes to reply detection events so attempts get their
// responseDetected flag set without coupling the monitor to this module.
func NewModule(pool *pgxpool.Pool, lifecycle service.Lifecycle, sender email.Sender, scheduler service.FollowUpScheduler, bus events.Bus, cfg settings.Settings, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, lifecycle, sender, scheduler, bus, cfg, log)
	h := handler.New(svc, val)

	bus.Subscribe(events.ReplyDetected{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		reply, ok := event.(events.ReplyDetected)
		if !ok {
			return nil
		}
		return svc.HandleReplyDetected(ctx, reply.ClientID)
	}))

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "outreach"
}

// RegisterRoutes registers the module's routes under /api/v1/outreach
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	outreach := ctx.Protected.Group("/outreach")
	m.handler.RegisterRoutes(outreach)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
