// Package replymonitor polls the intake mailbox for inbound client replies
// and turns them into lifecycle events. Detection is watermark-deduplicated
// per client so repeated polls never emit the same reply twice.
package replymonitor

import (
	"context"
	"time"
)

// Message is an inbound mailbox message. Only the envelope matters for
// detection; bodies are never read.
type Message struct {
	ID         string
	From       string
	Subject    string
	ReceivedAt time.Time
}

// Mailbox lists inbound messages. Outbound mail is the email package's
// concern; this interface is read-only on purpose.
type Mailbox interface {
	// ListMessagesFrom returns messages from the given sender received
	// at or after since, newest last.
	ListMessagesFrom(ctx context.Context, fromAddr string, since time.Time) ([]Message, error)
}
