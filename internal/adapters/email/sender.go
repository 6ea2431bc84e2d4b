package email

import (
	"context"
	"errors"
	"time"
)

// SendRequest is one message handed to the delivery provider.
type SendRequest struct {
	To      []string
	From    string // defaults to the sender's configured address
	Subject string
	HTML    string
	Text    string // plain-text alternative
	ReplyTo string
}

// SendResult is the provider's acknowledgement of a message.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers e-mail through an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	// SendBatch returns results in request order; on error the results cover
	// the leading requests that were accepted before the failure.
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}

// Request errors.
var (
	ErrNoRecipient = errors.New("email has no recipient")
	ErrNoSubject   = errors.New("email has no subject")
	ErrNoBody      = errors.New("email has no body")
)

// Validate checks that req can be delivered.
func (req SendRequest) Validate() error {
	if len(req.To) == 0 {
		return ErrNoRecipient
	}
	if req.Subject == "" {
		return ErrNoSubject
	}
	if req.HTML == "" && req.Text == "" {
		return ErrNoBody
	}
	return nil
}

// NewSender returns a Resend-backed sender when apiKey is set, otherwise a NoopSender.
func NewSender(apiKey, from, replyTo string) Sender {
	if apiKey == "" {
		return NewNoopSender()
	}
	return NewResendSender(apiKey, from, replyTo)
}
