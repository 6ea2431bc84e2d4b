package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gymadmin"

// Outcome labels shared by reminder and outbox counters.
const (
	OutcomeSent      = "sent"
	OutcomeQueued    = "queued"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeAbandoned = "abandoned"
	OutcomeRetrying  = "retrying"
)

// Collector owns a private Prometheus registry and the service's instruments.
// All methods are safe on a nil *Collector, which records nothing.
type Collector struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queryDuration   *prometheus.HistogramVec
	queryErrors     *prometheus.CounterVec
	memberEvents    *prometheus.CounterVec
	reminders       *prometheus.CounterVec
	outbox          *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewCollector registers every instrument on a fresh registry.
// POST: Returns a collector whose Handler exposes Go runtime and process metrics too
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database statement latency, by statement kind.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"statement"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_query_errors_total",
			Help:      "Database statements that returned an error, by statement kind.",
		}, []string{"statement"}),
		memberEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "member_events_total",
			Help:      "Member writes, by event.",
		}, []string{"event"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewal_reminders_total",
			Help:      "Renewal reminder deliveries, by outcome.",
		}, []string{"outcome"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_entries_processed_total",
			Help:      "Outbox retry results, by action type and outcome.",
		}, []string{"action_type", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Dashboard cache lookups, by result.",
		}, []string{"result"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests,
		c.requestDuration,
		c.queryDuration,
		c.queryErrors,
		c.memberEvents,
		c.reminders,
		c.outbox,
		c.cacheLookups,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the Prometheus exposition format for this collector.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one finished HTTP request.
// route should be the matched mux pattern, never the raw path.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveQuery records one database statement; a non-nil err also counts as a failure.
func (c *Collector) ObserveQuery(statement string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.queryDuration.WithLabelValues(statement).Observe(d.Seconds())
	if err != nil {
		c.queryErrors.WithLabelValues(statement).Inc()
	}
}

// MemberEvent counts a member write such as member_created.
func (c *Collector) MemberEvent(event string) {
	if c == nil {
		return
	}
	c.memberEvents.WithLabelValues(event).Inc()
}

// Reminder counts one renewal reminder outcome.
func (c *Collector) Reminder(outcome string) {
	if c == nil {
		return
	}
	c.reminders.WithLabelValues(outcome).Inc()
}

// Outbox counts one outbox retry outcome.
func (c *Collector) Outbox(actionType, outcome string) {
	if c == nil {
		return
	}
	c.outbox.WithLabelValues(actionType, outcome).Inc()
}

// CacheLookup counts a cache hit or miss.
func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}
