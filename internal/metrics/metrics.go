package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the TaskHub server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Rate limiting metrics.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Activity collector metrics.
	CollectorBufferSize   prometheus.Gauge
	CollectorFlushesTotal *prometheus.CounterVec
	CollectorEventsTotal  prometheus.Counter

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Domain counters.
	TasksCreatedTotal prometheus.Counter
	TeamsCreatedTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		CollectorBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskhub_collector_buffer_size",
			Help: "Current number of buffered activity events.",
		}),

		CollectorFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_collector_flushes_total",
			Help: "Total number of activity collector flushes.",
		}, []string{"status"}),

		CollectorEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_collector_events_total",
			Help: "Total number of activity events recorded.",
		}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"reason"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"kind"}),

		TasksCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_tasks_created_total",
			Help: "Total number of tasks created.",
		}),

		TeamsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_teams_created_total",
			Help: "Total number of teams created.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskhub_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	// Register all metrics.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.RateLimitRejectionsTotal,
		m.CollectorBufferSize,
		m.CollectorFlushesTotal,
		m.CollectorEventsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.TasksCreatedTotal,
		m.TeamsCreatedTotal,
		m.ServerStartTime,
	)

	// Set server start time.
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// IncAuthFailure increments the auth failure counter for the given reason.
func (m *Metrics) IncAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// IncAuthSuccess increments the auth success counter for the given kind.
func (m *Metrics) IncAuthSuccess(kind string) {
	m.AuthSuccessesTotal.WithLabelValues(kind).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// IncTaskCreated increments the created-tasks counter.
func (m *Metrics) IncTaskCreated() {
	m.TasksCreatedTotal.Inc()
}

// IncTeamCreated increments the created-teams counter.
func (m *Metrics) IncTeamCreated() {
	m.TeamsCreatedTotal.Inc()
}

// SetCollectorBufferSize records the activity collector's buffered event count.
func (m *Metrics) SetCollectorBufferSize(n int) {
	m.CollectorBufferSize.Set(float64(n))
}

// IncCollectorFlush increments the collector flush counter for the outcome.
func (m *Metrics) IncCollectorFlush(status string) {
	m.CollectorFlushesTotal.WithLabelValues(status).Inc()
}

// AddCollectorEvents counts recorded activity events.
func (m *Metrics) AddCollectorEvents(n int) {
	m.CollectorEventsTotal.Add(float64(n))
}
