package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"intake_portal_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface over a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from the mail configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) (string, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return "", fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return "", fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	return msg.GetMessageID(), nil
}

// SendOutreachEmail delivers an initial outreach or follow-up email.
func (s *SMTPSender) SendOutreachEmail(ctx context.Context, toEmail string, params OutreachParams) (string, error) {
	subject := subjectInitialOutreach
	heading := "Let's schedule your first appointment"
	isFollowUp := params.AttemptNumber > 1
	if isFollowUp {
		subject = fmt.Sprintf(subjectFollowUpFmt, params.AttemptNumber-1)
		heading = "We'd still love to hear from you"
	}

	content, err := renderEmailTemplate("outreach_attempt.html", outreachEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: heading,
		},
		ClientName:    params.ClientName,
		AttemptNumber: params.AttemptNumber,
		TotalAttempts: params.TotalAttempts,
		IsFollowUp:    isFollowUp,
		ReplyTo:       params.ReplyTo,
	})
	if err != nil {
		return "", err
	}
	return s.send(ctx, toEmail, subject, content)
}

// SendReferralEmail delivers the referral notice listing the selected clinics.
func (s *SMTPSender) SendReferralEmail(ctx context.Context, toEmail string, params ReferralParams) (string, error) {
	content, err := renderEmailTemplate("referral.html", referralEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectReferral,
			Heading: "Clinics that can help",
		},
		ClientName:  params.ClientName,
		ClinicNames: params.ClinicNames,
	})
	if err != nil {
		return "", err
	}
	return s.send(ctx, toEmail, subjectReferral, content)
}

var _ Sender = (*SMTPSender)(nil)
