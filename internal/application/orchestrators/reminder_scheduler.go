package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultReminderRule fires the renewal reminder job every day at 08:00.
const DefaultReminderRule = "FREQ=DAILY;BYHOUR=8;BYMINUTE=0;BYSECOND=0"

// NextReminderRun returns the first occurrence of the RFC 5545 rule strictly after after.
// Occurrences are anchored at midnight of after's day in after's location.
func NextReminderRun(rule string, after time.Time) (time.Time, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse reminder rule %q: %w", rule, err)
	}
	r.DTStart(time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, after.Location()))
	next := r.After(after, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("reminder rule %q has no occurrence after %s", rule, after.Format(time.RFC3339))
	}
	return next, nil
}

// StartReminderScheduler runs job at every occurrence of rule until stopCh is closed.
// PRE: rule is a valid RRULE with future occurrences
// POST: Returns an error without starting anything when rule is invalid
func StartReminderScheduler(rule string, job func(ctx context.Context) error, stopCh <-chan struct{}) error {
	if _, err := NextReminderRun(rule, time.Now()); err != nil {
		return err
	}
	go func() {
		for {
			next, err := NextReminderRun(rule, time.Now())
			if err != nil {
				slog.Error("reminder_event", "event", "scheduler_stopped", "error", err)
				return
			}
			slog.Info("reminder_event", "event", "next_run_scheduled", "at", next.Format(time.RFC3339))
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				if err := job(ctx); err != nil {
					slog.Error("reminder_event", "event", "scheduled_run_failed", "error", err)
				}
				cancel()
			case <-stopCh:
				timer.Stop()
				slog.Info("reminder_event", "event", "scheduler_stopped")
				return
			}
		}
	}()
	return nil
}
