// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"

	"gymadmin/internal/domain/membership"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Defaults applied when a variable is unset.
const (
	DefaultAddr          = ":8080"
	DefaultDBPath        = "gymadmin.db"
	DefaultTrendMonths   = 12
	DefaultReminderDays  = 7
	DefaultReminderRRule = "FREQ=DAILY;BYHOUR=8;BYMINUTE=0;BYSECOND=0"
	DefaultDashboardTTL  = 30 * time.Second
	DefaultRateLimit     = 10
	DefaultSlowQueryMs   = 50
	DefaultSlowRequestMs = 200
	DefaultEmailFrom     = "Gym Admin <noreply@example.com>"
	DefaultGymName       = "Our Gym"
)

// Config holds every runtime setting.
type Config struct {
	Env           string
	Addr          string
	DBPath        string
	FeeMode       membership.FeeMode
	TrendMonths   int
	ReminderDays  int
	ReminderRRule string
	RedisURL      string
	DashboardTTL  time.Duration
	ResendKey     string
	EmailFrom     string
	ReplyTo       string
	GymName       string
	CSRFKey       []byte
	RateLimit     int
	LogLevel      slog.Level
	SlowQuery     time.Duration
	SlowRequest   time.Duration
}

// Load reads .env when present, then the GYM_* environment variables.
// POST: unset variables take their defaults; malformed values are returned as errors
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, e.g. os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}
	cfg := Config{
		Env:           p.str("GYM_ENV", EnvDevelopment),
		Addr:          p.str("GYM_ADDR", DefaultAddr),
		DBPath:        p.str("GYM_DB_PATH", DefaultDBPath),
		TrendMonths:   p.int("GYM_TREND_MONTHS", DefaultTrendMonths),
		ReminderDays:  p.int("GYM_REMINDER_DAYS", DefaultReminderDays),
		ReminderRRule: p.str("GYM_REMINDER_RRULE", DefaultReminderRRule),
		RedisURL:      p.str("GYM_REDIS_URL", ""),
		DashboardTTL:  p.duration("GYM_DASHBOARD_TTL", DefaultDashboardTTL),
		ResendKey:     p.str("GYM_RESEND_KEY", ""),
		EmailFrom:     p.str("GYM_EMAIL_FROM", DefaultEmailFrom),
		ReplyTo:       p.str("GYM_REPLY_TO", ""),
		GymName:       p.str("GYM_NAME", DefaultGymName),
		RateLimit:     p.int("GYM_RATE_LIMIT", DefaultRateLimit),
		SlowQuery:     time.Duration(p.int("GYM_SLOW_QUERY_MS", DefaultSlowQueryMs)) * time.Millisecond,
		SlowRequest:   time.Duration(p.int("GYM_SLOW_REQUEST_MS", DefaultSlowRequestMs)) * time.Millisecond,
	}

	mode, err := membership.ParseFeeMode(p.str("GYM_FEE_MODE", string(membership.FeeModeDerived)))
	if err != nil {
		p.fail("GYM_FEE_MODE", err)
	}
	cfg.FeeMode = mode

	if raw := p.str("GYM_LOG_LEVEL", "info"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			p.fail("GYM_LOG_LEVEL", err)
		}
	}

	if raw := p.str("GYM_CSRF_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			p.fail("GYM_CSRF_KEY", errors.New("must be 64 hex characters (32 bytes)"))
		}
		cfg.CSRFKey = key
	}

	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate checks value ranges and production requirements.
func (c Config) Validate() error {
	var errs []error
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("GYM_ENV: unknown environment %q", c.Env))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("GYM_ADDR: must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("GYM_DB_PATH: must not be empty"))
	}
	if c.TrendMonths < 6 || c.TrendMonths > 12 {
		errs = append(errs, fmt.Errorf("GYM_TREND_MONTHS: %d is outside 6..12", c.TrendMonths))
	}
	if c.ReminderDays < 1 {
		errs = append(errs, fmt.Errorf("GYM_REMINDER_DAYS: %d must be positive", c.ReminderDays))
	}
	if _, err := rrule.StrToRRule(c.ReminderRRule); err != nil {
		errs = append(errs, fmt.Errorf("GYM_REMINDER_RRULE: %w", err))
	}
	if c.DashboardTTL < 0 {
		errs = append(errs, errors.New("GYM_DASHBOARD_TTL: must not be negative"))
	}
	if c.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("GYM_RATE_LIMIT: %d must be positive", c.RateLimit))
	}
	if c.IsProduction() && len(c.CSRFKey) == 0 {
		errs = append(errs, errors.New("GYM_CSRF_KEY: required in production"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// NewLogger returns a JSON logger in production and a text logger otherwise.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) str(key, fallback string) string {
	if v, ok := p.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (p *parser) int(key string, fallback int) int {
	raw := p.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return n
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return d
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
}
