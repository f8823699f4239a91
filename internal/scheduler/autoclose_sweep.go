package scheduler

import (
	"context"
	"time"

	"intake_portal_backend/platform/logger"
)

const defaultAutoCloseSweepInterval = time.Hour

// AutoCloseSweep periodically closes clients that exhausted all outreach
// attempts and stayed silent past the grace period.
type AutoCloseSweep struct {
	outreach OutreachHandler
	log      *logger.Logger
	interval time.Duration
}

func NewAutoCloseSweep(outreach OutreachHandler, log *logger.Logger, interval time.Duration) *AutoCloseSweep {
	if interval <= 0 {
		interval = defaultAutoCloseSweepInterval
	}

	return &AutoCloseSweep{
		outreach: outreach,
		log:      log,
		interval: interval,
	}
}

func (s *AutoCloseSweep) Run(ctx context.Context) {
	if s == nil || s.outreach == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *AutoCloseSweep) sweep(ctx context.Context) {
	if err := s.outreach.HandleAutoCloseSweep(ctx); err != nil {
		s.log.Warn("auto close sweep failed", "error", err)
	}
}
