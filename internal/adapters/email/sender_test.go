package email

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSendRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  SendRequest
		want error
	}{
		{"valid html", SendRequest{To: []string{"a@example.com"}, Subject: "s", HTML: "<p>x</p>"}, nil},
		{"valid text", SendRequest{To: []string{"a@example.com"}, Subject: "s", Text: "x"}, nil},
		{"no recipient", SendRequest{Subject: "s", HTML: "x"}, ErrNoRecipient},
		{"no subject", SendRequest{To: []string{"a@example.com"}, HTML: "x"}, ErrNoSubject},
		{"no body", SendRequest{To: []string{"a@example.com"}, Subject: "s"}, ErrNoBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewSender(t *testing.T) {
	if _, ok := NewSender("", "from@example.com", "").(*NoopSender); !ok {
		t.Error("NewSender without key should return *NoopSender")
	}
	s, ok := NewSender("re_test", "Gym <from@example.com>", "desk@example.com").(*ResendSender)
	if !ok {
		t.Fatal("NewSender with key should return *ResendSender")
	}
	p := s.params(SendRequest{To: []string{"a@example.com"}, Subject: "s", Text: "x"})
	if p.From != "Gym <from@example.com>" || p.ReplyTo != "desk@example.com" {
		t.Errorf("defaults not applied: from=%q reply_to=%q", p.From, p.ReplyTo)
	}
	p = s.params(SendRequest{From: "other@example.com", ReplyTo: "r@example.com"})
	if p.From != "other@example.com" || p.ReplyTo != "r@example.com" {
		t.Errorf("overrides lost: from=%q reply_to=%q", p.From, p.ReplyTo)
	}
}

func TestNoopSender(t *testing.T) {
	s := NewNoopSender()
	ctx := context.Background()
	ok := SendRequest{To: []string{"a@example.com"}, Subject: "s", HTML: "x"}

	res, err := s.Send(ctx, ok)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.HasPrefix(res.MessageID, "noop-") {
		t.Errorf("MessageID = %q, want noop- prefix", res.MessageID)
	}

	results, err := s.SendBatch(ctx, []SendRequest{ok, ok, {}, ok})
	if !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("SendBatch() error = %v, want ErrNoRecipient", err)
	}
	if len(results) != 2 {
		t.Errorf("SendBatch() accepted %d, want 2", len(results))
	}
}
