package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	web "gymadmin/internal/adapters/http"
	"gymadmin/internal/adapters/storage"
	"gymadmin/internal/application/orchestrators"
	"gymadmin/internal/domain/outbox"
)

const (
	outboxInterval  = time.Minute
	shutdownTimeout = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the HTTP API together with the outbox retry worker and the
scheduled renewal reminder job. SIGINT or SIGTERM shuts down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := orchestrators.ExecuteSeedTrainers(ctx, orchestrators.SeedTrainersDeps{TrainerStore: a.trainers}, time.Now()); err != nil {
		return err
	} else if n > 0 {
		slog.Info("seed_event", "event", "trainers_seeded", "count", n)
	}

	stopCh := make(chan struct{})
	defer close(stopCh)

	processor := orchestrators.NewOutboxProcessor(a.outbox, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeRenewalEmail: orchestrators.RenewalEmailExecutor{Sender: a.sender},
	}, a.metrics)
	orchestrators.StartBackgroundWorker(processor, outboxInterval, stopCh)

	reminderJob := func(ctx context.Context) error {
		res, err := orchestrators.ExecuteSendRenewalReminders(ctx,
			orchestrators.SendRenewalRemindersInput{Days: a.cfg.ReminderDays}, a.reminderDeps(), time.Now())
		if err != nil {
			return err
		}
		slog.Info("reminder_event", "event", "scheduled_run", "candidates", res.Candidates, "sent", res.Sent, "queued", res.Queued, "failed", res.Failed)
		return nil
	}
	if err := orchestrators.StartReminderScheduler(a.cfg.ReminderRRule, reminderJob, stopCh); err != nil {
		return err
	}

	handler := web.NewMux(&web.Stores{
		MemberStore:  a.members,
		TrainerStore: a.trainers,
		OutboxStore:  a.outbox,
	}, web.Options{
		Calculator:   a.calculator,
		Cache:        a.cache,
		Metrics:      a.metrics,
		Health:       a.timed,
		Sender:       a.sender,
		GymName:      a.cfg.GymName,
		TrendMonths:  a.cfg.TrendMonths,
		DashboardTTL: a.cfg.DashboardTTL,
		ReminderDays: a.cfg.ReminderDays,
		CSRFKey:      a.csrfKey(),
		Secure:       a.cfg.IsProduction(),
		RateLimit:    a.cfg.RateLimit,
		SlowRequest:  a.cfg.SlowRequest,
	}, stopCh)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "listening", "addr", a.cfg.Addr, "version", version,
			"env", a.cfg.Env, "schema", storage.LatestSchemaVersion(), "fee_mode", a.cfg.FeeMode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server_event", "event", "stopped")
	return nil
}
