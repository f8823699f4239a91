package replymonitor

import (
	"context"
	"time"

	"intake_portal_backend/platform/logger"
)

// Runner drives the monitor on the configured interval until the context
// is cancelled. Cycle failures are logged and retried on the next tick.
type Runner struct {
	svc      *Service
	interval time.Duration
	log      *logger.Logger
}

// NewRunner creates a new monitor runner
func NewRunner(svc *Service, interval time.Duration, log *logger.Logger) *Runner {
	return &Runner{svc: svc, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("reply monitor started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reply monitor stopped")
			return
		case <-ticker.C:
			cycleCtx, cancel := context.WithTimeout(ctx, r.interval)
			detected, err := r.svc.CheckNow(cycleCtx)
			cancel()
			if err != nil {
				r.log.MailboxError("check cycle", err)
				continue
			}
			if detected > 0 {
				r.log.Info("replies detected", "count", detected)
			}
		}
	}
}
