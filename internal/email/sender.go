// Package email renders and delivers the engine's outbound mail. Outreach
// attempts and referral notices both go through the Sender interface so the
// outreach and referral services stay independent of the delivery mechanism.
package email

import (
	"context"

	"intake_portal_backend/platform/config"
	"intake_portal_backend/platform/logger"
)

// OutreachParams carries the data rendered into an outreach attempt email.
type OutreachParams struct {
	ClientName    string
	AttemptNumber int
	TotalAttempts int
	ReplyTo       string
}

// ReferralParams carries the data rendered into a referral email.
type ReferralParams struct {
	ClientName  string
	ClinicNames []string
}

// Sender delivers engine emails. Implementations return the Message-ID of
// the delivered message so the reply monitor can correlate threads.
type Sender interface {
	SendOutreachEmail(ctx context.Context, toEmail string, params OutreachParams) (messageID string, err error)
	SendReferralEmail(ctx context.Context, toEmail string, params ReferralParams) (messageID string, err error)
}

// NewSender returns the SMTP sender when email is enabled and a logging no-op
// sender otherwise.
func NewSender(cfg config.MailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		log.Warn("email delivery disabled, using noop sender")
		return NewNoopSender(log)
	}
	return NewSMTPSender(cfg)
}
