package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// resendBatchLimit is the maximum number of messages per Resend batch call.
const resendBatchLimit = 100

// ResendSender delivers e-mail through the Resend API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

// NewResendSender creates a sender with default from and reply-to addresses.
// PRE: apiKey is a Resend API key; from is a verified sender address
func NewResendSender(apiKey, from, replyTo string) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
	}
}

func (s *ResendSender) params(req SendRequest) *resend.SendEmailRequest {
	p := &resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
	}
	if p.From == "" {
		p.From = s.from
	}
	if p.ReplyTo == "" {
		p.ReplyTo = s.replyTo
	}
	return p
}

// Send delivers one message.
// PRE: req passes Validate
// POST: Returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(req))
	if err != nil {
		slog.Error("email_event", "event", "resend_failed", "to", req.To, "error", err)
		return SendResult{}, fmt.Errorf("resend send: %w", err)
	}
	slog.Info("email_event", "event", "resend_sent", "message_id", sent.Id, "to", req.To)
	return SendResult{MessageID: sent.Id, SentAt: time.Now()}, nil
}

// SendBatch delivers reqs in chunks of resendBatchLimit.
// POST: On error, results cover the chunks accepted before the failing one
func (s *ResendSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	var results []SendResult
	for start := 0; start < len(reqs); start += resendBatchLimit {
		chunk := reqs[start:min(start+resendBatchLimit, len(reqs))]

		batch := make([]*resend.SendEmailRequest, 0, len(chunk))
		for _, req := range chunk {
			if err := req.Validate(); err != nil {
				return results, err
			}
			batch = append(batch, s.params(req))
		}

		resp, err := s.client.Batch.SendWithContext(ctx, batch)
		if err != nil {
			slog.Error("email_event", "event", "resend_batch_failed", "batch_size", len(chunk), "error", err)
			return results, fmt.Errorf("resend batch send: %w", err)
		}
		now := time.Now()
		for _, item := range resp.Data {
			results = append(results, SendResult{MessageID: item.Id, SentAt: now})
		}
		slog.Info("email_event", "event", "resend_batch_sent", "count", len(chunk), "total_sent", len(results))
	}
	return results, nil
}
