package main

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"gymadmin/internal/adapters/cache"
	"gymadmin/internal/adapters/email"
	"gymadmin/internal/adapters/metrics"
	"gymadmin/internal/adapters/storage"
	memberStore "gymadmin/internal/adapters/storage/member"
	outboxStore "gymadmin/internal/adapters/storage/outbox"
	trainerStore "gymadmin/internal/adapters/storage/trainer"
	"gymadmin/internal/application/orchestrators"
	"gymadmin/internal/config"
	"gymadmin/internal/domain/membership"
)

// app holds the dependencies shared by every subcommand.
type app struct {
	cfg        config.Config
	db         *sql.DB
	timed      *storage.TimedDB
	metrics    *metrics.Collector
	members    memberStore.Store
	trainers   trainerStore.Store
	outbox     outboxStore.Store
	cache      cache.Cache
	sender     email.Sender
	calculator membership.Calculator
}

// newApp loads configuration, opens and migrates the database and builds the stores.
// POST: the caller must call close
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	collector := metrics.NewCollector()
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	a := &app{
		cfg:        cfg,
		db:         db,
		timed:      timedDB,
		metrics:    collector,
		members:    memberStore.NewSQLiteStore(timedDB),
		trainers:   trainerStore.NewSQLiteStore(timedDB),
		outbox:     outboxStore.NewSQLiteStore(timedDB),
		sender:     email.NewSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo),
		calculator: membership.NewCalculator(cfg.FeeMode),
	}

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.cache = rc
	} else {
		a.cache = cache.NewMemory()
	}

	if cfg.ResendKey == "" {
		if cfg.IsProduction() {
			slog.Warn("email_event", "event", "delivery_disabled", "reason", "GYM_RESEND_KEY is not set")
		} else {
			slog.Info("email_event", "event", "noop_sender", "hint", "set GYM_RESEND_KEY for real delivery")
		}
	}
	return a, nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		slog.Warn("cache_event", "event", "close_failed", "error", err)
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("storage_event", "event", "close_failed", "error", err)
	}
}

func (a *app) writeDeps() orchestrators.MemberWriteDeps {
	return orchestrators.MemberWriteDeps{
		MemberStore:  a.members,
		TrainerStore: a.trainers,
		Calculator:   a.calculator,
		Cache:        a.cache,
		Metrics:      a.metrics,
	}
}

func (a *app) reminderDeps() orchestrators.SendRenewalRemindersDeps {
	return orchestrators.SendRenewalRemindersDeps{
		MemberStore: a.members,
		OutboxStore: a.outbox,
		Sender:      a.sender,
		Metrics:     a.metrics,
		GymName:     a.cfg.GymName,
	}
}

// csrfKey returns the configured key, or a random per-process key outside production.
func (a *app) csrfKey() []byte {
	if len(a.cfg.CSRFKey) > 0 {
		return a.cfg.CSRFKey
	}
	key := make([]byte, 32)
	rand.Read(key)
	slog.Warn("csrf_event", "event", "ephemeral_key", "hint", "set GYM_CSRF_KEY to keep tokens valid across restarts")
	return key
}
