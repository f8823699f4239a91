package replymonitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"intake_portal_backend/platform/apperr"
	"intake_portal_backend/platform/config"

	imap "github.com/BrianLeishman/go-imap"
)

// IMAPMailbox implements Mailbox over a plain IMAP connection. A fresh
// connection is dialed per poll; at the configured check intervals the
// overhead is negligible and it sidesteps stale-connection handling.
type IMAPMailbox struct {
	host     string
	port     int
	username string
	password string
	folder   string
}

// NewIMAPMailbox creates a mailbox client from the IMAP configuration.
func NewIMAPMailbox(cfg config.MailboxConfig) *IMAPMailbox {
	folder := cfg.GetIMAPFolder()
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPMailbox{
		host:     cfg.GetIMAPHost(),
		port:     cfg.GetIMAPPort(),
		username: cfg.GetIMAPUsername(),
		password: cfg.GetIMAPPassword(),
		folder:   folder,
	}
}

// ListMessagesFrom searches the folder for messages from the given sender
// received on or after since. IMAP SINCE has date granularity; callers
// dedupe by message ID and watermark, so the coarse cut is fine.
func (m *IMAPMailbox) ListMessagesFrom(ctx context.Context, fromAddr string, since time.Time) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialer, err := imap.New(m.username, m.password, m.host, m.port)
	if err != nil {
		return nil, apperr.Transient("failed to connect to mailbox", err)
	}
	defer dialer.Close()

	if err := dialer.SelectFolder(m.folder); err != nil {
		return nil, apperr.Transient("failed to select mailbox folder", err)
	}

	search := fmt.Sprintf("FROM %q SINCE %s", fromAddr, since.UTC().Format("02-Jan-2006"))
	uids, err := dialer.GetUIDs(search)
	if err != nil {
		return nil, apperr.Transient("mailbox search failed", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	overviews, err := dialer.GetOverviews(uids...)
	if err != nil {
		return nil, apperr.Transient("failed to fetch message overviews", err)
	}

	messages := make([]Message, 0, len(overviews))
	for uid, email := range overviews {
		if email == nil {
			continue
		}
		received := email.Received
		if received.Before(since) {
			// SINCE is date-granular; drop same-day messages that
			// predate the watermark.
			continue
		}
		messages = append(messages, Message{
			ID:         messageID(email, uid),
			From:       senderAddress(email, fromAddr),
			Subject:    email.Subject,
			ReceivedAt: received,
		})
	}

	sortMessagesByTime(messages)
	return messages, nil
}

func messageID(email *imap.Email, uid int) string {
	if email.MessageID != "" {
		return email.MessageID
	}
	return fmt.Sprintf("uid-%d", uid)
}

func senderAddress(email *imap.Email, fallback string) string {
	for addr := range email.From {
		return strings.ToLower(addr)
	}
	return fallback
}

func sortMessagesByTime(messages []Message) {
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ReceivedAt.Before(messages[j].ReceivedAt)
	})
}

var _ Mailbox = (*IMAPMailbox)(nil)
