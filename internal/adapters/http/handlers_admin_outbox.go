package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"gymadmin/internal/application/orchestrators"
	"gymadmin/internal/domain/outbox"
)

// outboxEntryView is the admin representation of an outbox entry.
// Renewal e-mails expose their recipient and subject, never the rendered body.
type outboxEntryView struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"action_type"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExternalID      string     `json:"external_id,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	MemberID        int64      `json:"member_id,omitempty"`
	To              string     `json:"to,omitempty"`
	Subject         string     `json:"subject,omitempty"`
}

func newOutboxEntryView(e outbox.Entry) outboxEntryView {
	v := outboxEntryView{
		ID:           e.ID,
		ActionType:   e.ActionType,
		Status:       e.Status,
		Attempts:     e.Attempts,
		MaxAttempts:  e.MaxAttempts,
		CreatedAt:    e.CreatedAt,
		ExternalID:   e.ExternalID,
		ErrorMessage: e.ErrorMessage,
	}
	if !e.LastAttemptedAt.IsZero() {
		at := e.LastAttemptedAt
		v.LastAttemptedAt = &at
	}
	if e.ActionType == outbox.ActionTypeRenewalEmail {
		if p, err := e.DecodeRenewalEmail(); err == nil {
			v.MemberID, v.To, v.Subject = p.MemberID, p.To, p.Subject
		}
	}
	return v
}

// handleAdminOutboxList serves GET /admin/outbox.
// Query: status=failed (default) lists given-up entries; status=pending lists queued ones; limit 1..100.
func (s *server) handleAdminOutboxList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	var (
		entries []outbox.Entry
		err     error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "", outbox.StatusFailed:
		entries, err = s.stores.OutboxStore.ListFailed(r.Context(), limit)
	case outbox.StatusPending:
		entries, err = s.stores.OutboxStore.ListPending(r.Context(), limit)
	default:
		badRequest(w, "status must be failed or pending")
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}

	views := make([]outboxEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newOutboxEntryView(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

func (s *server) handleAdminOutboxStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.stores.OutboxStore.CountByStatus(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

// handleAdminOutboxRetry attempts one entry now, reopening it if it had failed.
func (s *server) handleAdminOutboxRetry(w http.ResponseWriter, r *http.Request) {
	s.outboxAction(w, r, s.outbox.ProcessSingle)
}

func (s *server) handleAdminOutboxAbandon(w http.ResponseWriter, r *http.Request) {
	s.outboxAction(w, r, s.outbox.AbandonEntry)
}

func (s *server) outboxAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id string) error) {
	id := r.PathValue("id")
	if err := action(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.stores.OutboxStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutboxEntryView(entry))
}

// handleSendReminders serves POST /admin/reminders: one renewal reminder run.
// Query: days overrides the configured window; dry_run counts candidates without sending.
func (s *server) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	input := orchestrators.SendRenewalRemindersInput{
		Days:   s.opts.ReminderDays,
		DryRun: queryBool(r, "dry_run"),
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 || days > 366 {
			badRequest(w, "days must be between 1 and 366")
			return
		}
		input.Days = days
	}
	deps := orchestrators.SendRenewalRemindersDeps{
		MemberStore: s.stores.MemberStore,
		OutboxStore: s.stores.OutboxStore,
		Sender:      s.opts.Sender,
		Metrics:     s.opts.Metrics,
		GymName:     s.opts.GymName,
	}
	result, err := orchestrators.ExecuteSendRenewalReminders(r.Context(), input, deps, s.opts.Now())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
