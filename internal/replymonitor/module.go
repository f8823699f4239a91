package replymonitor

import (
	"intake_portal_backend/internal/events"
	apphttp "intake_portal_backend/internal/http"
	"intake_portal_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module represents the reply monitor module
type Module struct {
	handler *Handler
	Service *Service
}

// NewModule creates a new reply monitor module with all dependencies wired
func NewModule(mailbox Mailbox, rdb *redis.Client, clients Lifecycle, attempts AttemptReader, bus events.Bus, log *logger.Logger) *Module {
	store := NewWatermarkStore(rdb)
	svc := NewService(mailbox, store, clients, attempts, bus, log)

	return &Module{
		handler: NewHandler(svc),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "replymonitor"
}

// RegisterRoutes registers the module's routes under /api/v1/replies
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	replies := ctx.Protected.Group("/replies")
	m.handler.RegisterRoutes(replies)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
