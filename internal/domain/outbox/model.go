package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionTypeRenewalEmail delivers a membership renewal reminder.
const ActionTypeRenewalEmail = "renewal_email"

// DefaultMaxAttempts applies when an entry does not set its own limit.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrMissingCreated  = errors.New("created_at must be set")
	ErrEntryClosed     = errors.New("outbox entry is closed")
)

// Entry is one outbound action that is retried until it is delivered or given up on.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON, decoded by the executor for ActionType
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message id once delivered
	ErrorMessage    string
}

// RenewalEmailPayload is the JSON payload of a renewal_email entry.
type RenewalEmailPayload struct {
	MemberID int64  `json:"member_id"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Text     string `json:"text"`
}

// NewRenewalEmail builds a pending renewal_email entry.
// POST: entry passes Validate
func NewRenewalEmail(id string, p RenewalEmailPayload, lastErr error, now time.Time) (Entry, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal renewal payload: %w", err)
	}
	e := Entry{
		ID:          id,
		ActionType:  ActionTypeRenewalEmail,
		Payload:     string(raw),
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
	if lastErr != nil {
		e.ErrorMessage = lastErr.Error()
	}
	return e, nil
}

// DecodeRenewalEmail unpacks the payload of a renewal_email entry.
func (e *Entry) DecodeRenewalEmail() (RenewalEmailPayload, error) {
	var p RenewalEmailPayload
	if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
		return p, fmt.Errorf("decode renewal payload for %s: %w", e.ID, err)
	}
	return p, nil
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise; MaxAttempts defaults when unset
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return ErrMissingCreated
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// CanRetry reports whether another attempt is allowed.
// POST: true for pending/retrying/failed entries below their attempt limit
func (e *Entry) CanRetry() bool {
	switch e.Status {
	case StatusPending, StatusRetrying, StatusFailed:
		return e.Attempts < e.MaxAttempts
	}
	return false
}

// IsTerminal reports whether the entry will never be attempted again.
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDone, StatusAbandoned:
		return true
	case StatusFailed:
		return e.Attempts >= e.MaxAttempts
	}
	return false
}

// MarkAttempt records an attempt at now.
// POST: Attempts incremented, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry delivered.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records the failure; the entry becomes failed once attempts are exhausted.
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// Reopen grants a failed entry one more attempt.
// PRE: Status is failed
// POST: CanRetry() is true
func (e *Entry) Reopen() {
	if e.Attempts >= e.MaxAttempts {
		e.MaxAttempts = e.Attempts + 1
	}
	e.Status = StatusRetrying
}

// MarkAbandoned gives up on the entry.
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay is 2^attempts * base, capped at max.
func (e *Entry) NextRetryDelay(base, max time.Duration) time.Duration {
	delay := base * (1 << e.Attempts)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// DueForRetry reports whether the backoff since the last attempt has elapsed at now.
func (e *Entry) DueForRetry(now time.Time, base, max time.Duration) bool {
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(base, max)))
}
