package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymadmin/internal/domain/outbox"
)

func queuedEntry(t *testing.T, store *fakeOutboxStore, id, to string) outbox.Entry {
	t.Helper()
	e, err := outbox.NewRenewalEmail(id, outbox.RenewalEmailPayload{
		MemberID: 1, To: to, Subject: "Renew", HTML: "<p>Renew</p>", Text: "Renew",
	}, errors.New("timeout"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	return e
}

func newTestProcessor(store *fakeOutboxStore, sender *fakeSender, now *time.Time) *OutboxProcessor {
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeRenewalEmail: RenewalEmailExecutor{Sender: sender},
	}, nil)
	p.now = func() time.Time { return *now }
	return p
}

// TestOutboxProcessor_DeliversPending verifies queued e-mails are sent and marked done.
func TestOutboxProcessor_DeliversPending(t *testing.T) {
	store := newFakeOutboxStore()
	sender := &fakeSender{}
	now := testNow
	queuedEntry(t, store, "a", "a@example.com")

	if err := newTestProcessor(store, sender, &now).ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	e := store.entries["a"]
	if e.Status != outbox.StatusDone || e.Attempts != 1 || e.ExternalID == "" {
		t.Errorf("entry = %+v", e)
	}
	if len(sender.sent) != 1 || sender.sent[0].To[0] != "a@example.com" {
		t.Errorf("sent = %+v", sender.sent)
	}
}

// TestOutboxProcessor_Backoff verifies retries wait for the backoff and stop at MaxAttempts.
func TestOutboxProcessor_Backoff(t *testing.T) {
	store := newFakeOutboxStore()
	sender := &fakeSender{failAll: errors.New("provider down")}
	now := testNow
	p := newTestProcessor(store, sender, &now)
	queuedEntry(t, store, "a", "a@example.com")
	ctx := context.Background()

	if err := p.ProcessPending(ctx); err != nil {
		t.Fatal(err)
	}
	if e := store.entries["a"]; e.Status != outbox.StatusRetrying || e.Attempts != 1 {
		t.Fatalf("after first attempt: %+v", e)
	}

	// Backoff after one attempt is 60s.
	now = now.Add(59 * time.Second)
	p.ProcessPending(ctx)
	if store.entries["a"].Attempts != 1 {
		t.Fatal("retried before backoff elapsed")
	}

	for i := 0; i < 10; i++ {
		now = now.Add(time.Hour)
		p.ProcessPending(ctx)
	}
	e := store.entries["a"]
	if e.Status != outbox.StatusFailed || e.Attempts != outbox.DefaultMaxAttempts {
		t.Errorf("after exhausting attempts: %+v", e)
	}
	if e.ErrorMessage != "provider down" {
		t.Errorf("ErrorMessage = %q", e.ErrorMessage)
	}
}

// TestOutboxProcessor_UnknownAction verifies entries without an executor are abandoned.
func TestOutboxProcessor_UnknownAction(t *testing.T) {
	store := newFakeOutboxStore()
	now := testNow
	e := queuedEntry(t, store, "a", "a@example.com")
	e.ActionType = "sms"
	store.Save(context.Background(), e)

	newTestProcessor(store, &fakeSender{}, &now).ProcessPending(context.Background())
	if got := store.entries["a"]; got.Status != outbox.StatusAbandoned {
		t.Errorf("status = %s, want abandoned", got.Status)
	}
}

// TestOutboxProcessor_ManualActions verifies ProcessSingle and AbandonEntry.
func TestOutboxProcessor_ManualActions(t *testing.T) {
	store := newFakeOutboxStore()
	now := testNow
	p := newTestProcessor(store, &fakeSender{}, &now)
	ctx := context.Background()
	queuedEntry(t, store, "a", "a@example.com")
	queuedEntry(t, store, "b", "b@example.com")

	if err := p.AbandonEntry(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessSingle(ctx, "b"); !errors.Is(err, outbox.ErrEntryClosed) {
		t.Errorf("ProcessSingle on an abandoned entry error = %v, want ErrEntryClosed", err)
	}
	if err := p.ProcessSingle(ctx, "a"); err != nil {
		t.Fatalf("ProcessSingle() error = %v", err)
	}
	if store.entries["a"].Status != outbox.StatusDone {
		t.Errorf("status = %s, want done", store.entries["a"].Status)
	}
	if err := p.ProcessSingle(ctx, "missing"); err == nil {
		t.Error("ProcessSingle on a missing entry should fail")
	}
}

// TestStartBackgroundWorker verifies the worker processes entries and stops on close.
func TestStartBackgroundWorker(t *testing.T) {
	store := &lockedOutbox{inner: newFakeOutboxStore()}
	queuedEntry(t, store.inner, "a", "a@example.com")
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeRenewalEmail: RenewalEmailExecutor{Sender: &fakeSender{}},
	}, nil)

	stop := make(chan struct{})
	StartBackgroundWorker(p, 10*time.Millisecond, stop)
	defer close(stop)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e, _ := store.GetByID(context.Background(), "a"); e.Status == outbox.StatusDone {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("background worker did not deliver the entry")
}

// TestOutboxProcessor_ProcessSingleReopensFailed verifies a manual retry gets past the attempt limit.
func TestOutboxProcessor_ProcessSingleReopensFailed(t *testing.T) {
	store := newFakeOutboxStore()
	now := testNow
	p := newTestProcessor(store, &fakeSender{}, &now)
	e := queuedEntry(t, store, "a", "a@example.com")
	e.Status = outbox.StatusFailed
	e.Attempts = e.MaxAttempts
	store.entries["a"] = e

	if err := p.ProcessSingle(context.Background(), "a"); err != nil {
		t.Fatalf("ProcessSingle() error = %v", err)
	}
	got := store.entries["a"]
	if got.Status != outbox.StatusDone || got.Attempts != e.MaxAttempts+1 {
		t.Errorf("entry = %s after %d attempts, want done after %d", got.Status, got.Attempts, e.MaxAttempts+1)
	}
	if err := p.AbandonEntry(context.Background(), "a"); !errors.Is(err, outbox.ErrEntryClosed) {
		t.Errorf("AbandonEntry on a delivered entry error = %v, want ErrEntryClosed", err)
	}
}
