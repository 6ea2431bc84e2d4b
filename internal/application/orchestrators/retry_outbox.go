package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gymadmin/internal/adapters/email"
	"gymadmin/internal/adapters/metrics"
	domain "gymadmin/internal/domain/outbox"
)

// OutboxStore defines the outbox persistence used by the processor.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// ActionExecutor executes one type of outbound action.
type ActionExecutor interface {
	// Execute runs the action for payload and returns the provider's reference.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor retries queued outbound actions with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	metrics   *metrics.Collector
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// NewOutboxProcessor creates a processor with 30s base and 1h maximum backoff.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor, collector *metrics.Collector) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		metrics:   collector,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 20,
		now:       time.Now,
	}
}

// ProcessPending attempts every pending entry whose backoff has elapsed.
// POST: Each attempted entry is saved as done, retrying or failed
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}
	now := p.now()
	for _, entry := range entries {
		if !entry.DueForRetry(now, p.baseDelay, p.maxDelay) {
			continue
		}
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_event", "event", "process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err)
		}
	}
	return nil
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAbandoned()
		entry.ErrorMessage = "no executor registered for action type " + entry.ActionType
		p.metrics.Outbox(entry.ActionType, metrics.OutcomeAbandoned)
		return p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry.Payload)
	switch {
	case err == nil:
		entry.MarkSuccess(externalID)
		p.metrics.Outbox(entry.ActionType, metrics.OutcomeSent)
		slog.Info("outbox_event", "event", "action_succeeded", "entry_id", entry.ID, "external_id", externalID)
	default:
		entry.MarkFailed(err)
		outcome := metrics.OutcomeRetrying
		if entry.Status == domain.StatusFailed {
			outcome = metrics.OutcomeFailed
		}
		p.metrics.Outbox(entry.ActionType, outcome)
		slog.Warn("outbox_event", "event", "action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err)
	}
	return p.store.Save(ctx, entry)
}

// ProcessSingle attempts one entry immediately, ignoring its backoff.
// A failed entry is reopened for one extra attempt.
// POST: Returns domain.ErrEntryClosed for done and abandoned entries
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	switch entry.Status {
	case domain.StatusDone, domain.StatusAbandoned:
		return fmt.Errorf("outbox entry %s is %s: %w", entryID, entry.Status, domain.ErrEntryClosed)
	case domain.StatusFailed:
		entry.Reopen()
	}
	return p.attempt(ctx, entry)
}

// AbandonEntry stops all further attempts for an entry.
// POST: Returns domain.ErrEntryClosed when the entry was already delivered
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status == domain.StatusDone {
		return fmt.Errorf("outbox entry %s is %s: %w", entryID, entry.Status, domain.ErrEntryClosed)
	}
	entry.MarkAbandoned()
	p.metrics.Outbox(entry.ActionType, metrics.OutcomeAbandoned)
	return p.store.Save(ctx, entry)
}

// RenewalEmailExecutor delivers renewal_email entries.
type RenewalEmailExecutor struct {
	Sender email.Sender
}

// Execute sends the e-mail described by payload.
// PRE: payload is a JSON outbox.RenewalEmailPayload
// POST: Returns the provider message ID
func (e RenewalEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p domain.RenewalEmailPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal renewal payload: %w", err)
	}
	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    p.HTML,
		Text:    p.Text,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// StartBackgroundWorker runs ProcessPending every interval until stopCh is closed.
// POST: Returns immediately; the worker goroutine exits when stopCh closes
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_event", "event", "background_process_failed", "error", err)
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_event", "event", "background_worker_stopped")
				return
			}
		}
	}()
}
