// Package web exposes the gym administration API over HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"gymadmin/internal/adapters/cache"
	"gymadmin/internal/adapters/email"
	"gymadmin/internal/adapters/http/middleware"
	"gymadmin/internal/adapters/metrics"
	memberStore "gymadmin/internal/adapters/storage/member"
	outboxStore "gymadmin/internal/adapters/storage/outbox"
	trainerStore "gymadmin/internal/adapters/storage/trainer"
	"gymadmin/internal/application/orchestrators"
	"gymadmin/internal/domain/membership"
	"gymadmin/internal/domain/outbox"
)

// Stores holds all storage dependencies.
type Stores struct {
	MemberStore  memberStore.Store
	TrainerStore trainerStore.Store
	OutboxStore  outboxStore.Store
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures behaviour shared by the handlers.
type Options struct {
	Calculator     membership.Calculator
	Cache          cache.Cache        // nil disables dashboard caching
	Metrics        *metrics.Collector // nil records nothing
	Health         Pinger             // nil reports healthy without checking
	Sender         email.Sender       // nil uses email.NoopSender
	GymName        string
	TrendMonths    int
	DashboardTTL   time.Duration
	ReminderDays   int
	CSRFKey        []byte // 32 bytes
	Secure         bool   // production: Secure cookies over HTTPS
	TrustedOrigins []string
	RateLimit      int // requests per second per client IP
	SlowRequest    time.Duration
	Now            func() time.Time
}

// RateLimitPerSecond is used when Options.RateLimit is unset.
const RateLimitPerSecond = 10

// maxImportBytes bounds CSV uploads.
const maxImportBytes = 10 << 20

type server struct {
	stores *Stores
	opts   Options
	outbox *orchestrators.OutboxProcessor
}

// NewMux wires HTTP handlers and middleware for the app.
// PRE: s holds non-nil stores; opts.CSRFKey is 32 bytes
// POST: stopCh closing stops the rate limiter's cleanup goroutine
func NewMux(s *Stores, opts Options, stopCh <-chan struct{}) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sender == nil {
		opts.Sender = email.NewNoopSender()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = RateLimitPerSecond
	}
	srv := &server{
		stores: s,
		opts:   opts,
		outbox: orchestrators.NewOutboxProcessor(s.OutboxStore, map[string]orchestrators.ActionExecutor{
			outbox.ActionTypeRenewalEmail: orchestrators.RenewalEmailExecutor{Sender: opts.Sender},
		}, opts.Metrics),
	}

	mux := http.NewServeMux()
	srv.registerRoutes(mux)

	limiter := middleware.NewRateLimiter(opts.RateLimit, time.Second)
	limiter.StartCleanup(stopCh)

	// Request order: Timing -> RateLimit -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.Secure, opts.TrustedOrigins),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Metrics, opts.SlowRequest),
	)
}

func (s *server) registerRoutes(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			middleware.Route(r)
			h(w, r)
		})
	}

	handle("GET /api/members", s.handleListMembers)
	handle("POST /api/members", s.handleCreateMember)
	handle("POST /api/members/import", s.handleImportMembers)
	handle("GET /api/members/{id}", s.handleGetMember)
	handle("PUT /api/members/{id}", s.handleUpdateMember)
	handle("DELETE /api/members/{id}", s.handleDeleteMember)
	handle("GET /api/trainers", s.handleListTrainers)
	handle("GET /api/dashboard", s.handleDashboard)
	handle("GET /api/csrf", s.handleCSRFToken)

	handle("GET /admin/outbox", s.handleAdminOutboxList)
	handle("GET /admin/outbox/stats", s.handleAdminOutboxStats)
	handle("POST /admin/outbox/{id}/retry", s.handleAdminOutboxRetry)
	handle("POST /admin/outbox/{id}/abandon", s.handleAdminOutboxAbandon)
	handle("POST /admin/reminders", s.handleSendReminders)

	handle("GET /healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		handle("GET /metrics", s.opts.Metrics.Handler().ServeHTTP)
	}
}
