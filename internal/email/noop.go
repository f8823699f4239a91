package email

import (
	"context"
	"fmt"

	"intake_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// NoopSender logs instead of delivering. Used in development and whenever
// outbound email is disabled, so the outreach flow still advances.
type NoopSender struct {
	log *logger.Logger
}

// NewNoopSender creates a sender that only logs.
func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) SendOutreachEmail(_ context.Context, toEmail string, params OutreachParams) (string, error) {
	s.log.Info("email disabled, skipping outreach send",
		"to", toEmail,
		"attempt", params.AttemptNumber,
	)
	return fmt.Sprintf("<noop-%s@local>", uuid.NewString()), nil
}

func (s *NoopSender) SendReferralEmail(_ context.Context, toEmail string, params ReferralParams) (string, error) {
	s.log.Info("email disabled, skipping referral send",
		"to", toEmail,
		"clinics", params.ClinicNames,
	)
	return fmt.Sprintf("<noop-%s@local>", uuid.NewString()), nil
}

var _ Sender = (*NoopSender)(nil)
