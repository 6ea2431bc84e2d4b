package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"gymadmin/internal/adapters/email"
	"gymadmin/internal/adapters/metrics"
	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
	"gymadmin/internal/domain/outbox"
)

// DefaultReminderDays is how far ahead renewal reminders look when no window is configured.
const DefaultReminderDays = 7

// mdRenderer renders reminder bodies; raw HTML in the markdown is escaped.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// ExpiringMemberStore finds members whose membership ends inside a window.
type ExpiringMemberStore interface {
	ExpiringBetween(ctx context.Context, after, through time.Time) ([]member.Member, error)
}

// OutboxWriter queues undelivered messages for retry.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// SendRenewalRemindersInput carries options for one reminder run.
type SendRenewalRemindersInput struct {
	Days   int // window length in days; DefaultReminderDays when <= 0
	DryRun bool
}

// SendRenewalRemindersResult summarises one reminder run.
type SendRenewalRemindersResult struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Queued     int `json:"queued"`
	Failed     int `json:"failed"`
}

// SendRenewalRemindersDeps holds dependencies for renewal reminders.
type SendRenewalRemindersDeps struct {
	MemberStore ExpiringMemberStore
	OutboxStore OutboxWriter
	Sender      email.Sender
	Metrics     *metrics.Collector
	GymName     string
	GenerateID  func() string // defaults to uuid.NewString
}

// ExecuteSendRenewalReminders e-mails every member whose membership expires in (today, today+Days].
// Messages the provider does not accept are queued in the outbox as renewal_email entries.
// PRE: now is the current time
// POST: Sent + Queued + Failed == Candidates unless DryRun
func ExecuteSendRenewalReminders(ctx context.Context, input SendRenewalRemindersInput, deps SendRenewalRemindersDeps, now time.Time) (SendRenewalRemindersResult, error) {
	days := input.Days
	if days <= 0 {
		days = DefaultReminderDays
	}
	today := membership.Truncate(now)
	expiring, err := deps.MemberStore.ExpiringBetween(ctx, today, today.AddDate(0, 0, days))
	if err != nil {
		return SendRenewalRemindersResult{}, fmt.Errorf("list expiring members: %w", err)
	}

	result := SendRenewalRemindersResult{Candidates: len(expiring)}
	if input.DryRun || len(expiring) == 0 {
		slog.Info("reminder_event", "event", "reminders_planned", "candidates", result.Candidates, "dry_run", input.DryRun)
		return result, nil
	}

	reqs := make([]email.SendRequest, 0, len(expiring))
	for _, m := range expiring {
		req, err := renewalEmail(m, deps.GymName, today)
		if err != nil {
			return result, err
		}
		reqs = append(reqs, req)
	}

	sent, sendErr := deps.Sender.SendBatch(ctx, reqs)
	for range sent {
		result.Sent++
		deps.Metrics.Reminder(metrics.OutcomeSent)
	}
	if sendErr == nil {
		slog.Info("reminder_event", "event", "reminders_sent", "sent", result.Sent)
		return result, nil
	}

	slog.Warn("reminder_event", "event", "reminder_batch_failed", "accepted", len(sent), "error", sendErr)
	generateID := deps.GenerateID
	if generateID == nil {
		generateID = uuid.NewString
	}
	var saveErrs []error
	for i := len(sent); i < len(reqs); i++ {
		m := expiring[i]
		entry, err := outbox.NewRenewalEmail(generateID(), outbox.RenewalEmailPayload{
			MemberID: m.ID,
			To:       m.Email,
			Subject:  reqs[i].Subject,
			HTML:     reqs[i].HTML,
			Text:     reqs[i].Text,
		}, sendErr, now)
		if err == nil {
			err = deps.OutboxStore.Save(ctx, entry)
		}
		if err != nil {
			result.Failed++
			deps.Metrics.Reminder(metrics.OutcomeFailed)
			saveErrs = append(saveErrs, fmt.Errorf("queue reminder for member %d: %w", m.ID, err))
			continue
		}
		result.Queued++
		deps.Metrics.Reminder(metrics.OutcomeQueued)
	}
	slog.Info("reminder_event", "event", "reminders_sent", "sent", result.Sent, "queued", result.Queued, "failed", result.Failed)
	return result, errors.Join(saveErrs...)
}

// renewalEmail builds the reminder for m, written in markdown and rendered to HTML.
// Member and gym names are escaped in the markdown so they render as literal text.
func renewalEmail(m member.Member, gymName string, today time.Time) (email.SendRequest, error) {
	if gymName == "" {
		gymName = "the gym"
	}
	text := reminderBody(m, m.Name, gymName, today)
	md := reminderBody(m, escapeMarkdown(m.Name), escapeMarkdown(gymName), today)

	var html bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &html); err != nil {
		return email.SendRequest{}, fmt.Errorf("render reminder for member %d: %w", m.ID, err)
	}
	return email.SendRequest{
		To:      []string{m.Email},
		Subject: fmt.Sprintf("Your %s membership expires on %s", gymName, m.ExpiryDate.Format("2 Jan")),
		HTML:    html.String(),
		Text:    text,
	}, nil
}

func reminderBody(m member.Member, name, gymName string, today time.Time) string {
	expiry := m.ExpiryDate.Format("Monday, 2 January 2006")
	left := int(m.ExpiryDate.Sub(today).Hours() / 24)
	dayWord := "days"
	if left == 1 {
		dayWord = "day"
	}

	var md strings.Builder
	fmt.Fprintf(&md, "Hi %s,\n\n", name)
	fmt.Fprintf(&md, "Your **%s** membership at %s ends on **%s**, %d %s from today.\n\n",
		membership.TypeLabel(m.MembershipType), gymName, expiry, left, dayWord)
	if !m.IsPaid() {
		fmt.Fprintf(&md, "Our records show the current membership as *%s*. Please settle it when you renew.\n\n", m.PaymentStatus)
	}
	md.WriteString("Renew at the front desk to keep training without a break.\n\n")
	fmt.Fprintf(&md, "See you soon,\n%s", gymName)
	return md.String()
}

// markdownPunct is the ASCII punctuation CommonMark allows to be backslash-escaped.
const markdownPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// escapeMarkdown backslash-escapes every ASCII punctuation character, which CommonMark
// always treats as a literal when escaped.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownPunct, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
