// Package metrics provides Prometheus metrics for the card ledger service.
//
// A Manager owns its own registry so tests can build isolated instances and
// the /metrics endpoint exposes only ledger metrics. Every method is safe on
// a nil *Manager, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets latency buckets in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered on and gathered from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager holds every metric the service records.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	mutations        *prometheus.CounterVec
	trades           *prometheus.CounterVec
	tradeRejections  *prometheus.CounterVec
	milestones       *prometheus.CounterVec
	valueSnapshots   prometheus.Counter
	priceRequests    *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	eventErrors      prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	storeTxDurations prometheus.Histogram
}

// NewManager creates a Manager on a fresh registry unless WithRegistry is
// given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "cardledger",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.mutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collection",
		Name:      "mutations_total",
		Help:      "Collection mutations by operation",
	}, []string{"op"})

	m.trades = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "trade",
		Name:      "trades_total",
		Help:      "Trade executions by result (executed, rejected)",
	}, []string{"result"})

	m.tradeRejections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "trade",
		Name:      "validation_errors_total",
		Help:      "Trade validation errors by code",
	}, []string{"code"})

	m.milestones = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "milestone",
		Name:      "reached_total",
		Help:      "Milestones reached by key",
	}, []string{"key"})

	m.valueSnapshots = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "valuation",
		Name:      "snapshots_total",
		Help:      "Collection value snapshots recorded",
	})

	m.priceRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "catalog",
		Name:      "requests_total",
		Help:      "Price source requests by outcome",
	}, []string{"outcome"})

	m.eventsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Activity events published by type",
	}, []string{"type"})

	m.eventErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "events",
		Name:      "upstream_errors_total",
		Help:      "Failures forwarding events upstream",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   m.buckets,
	}, []string{"route", "method"})

	m.storeTxDurations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "transaction_duration_seconds",
		Help:      "Duration of ledger read-modify-write transactions",
		Buckets:   m.buckets,
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// =============================================================================
// RECORDERS
// =============================================================================

func (m *Manager) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

func (m *Manager) RecordTradeExecuted() {
	if m == nil {
		return
	}
	m.trades.WithLabelValues("executed").Inc()
}

// RecordTradeRejected counts one rejected trade and each of its error codes.
func (m *Manager) RecordTradeRejected(codes ...string) {
	if m == nil {
		return
	}
	m.trades.WithLabelValues("rejected").Inc()
	for _, c := range codes {
		m.tradeRejections.WithLabelValues(c).Inc()
	}
}

func (m *Manager) RecordMilestone(key string) {
	if m == nil {
		return
	}
	m.milestones.WithLabelValues(key).Inc()
}

func (m *Manager) RecordValueSnapshot() {
	if m == nil {
		return
	}
	m.valueSnapshots.Inc()
}

// RecordPriceRequest counts a catalog call; outcome is ok, retry or error.
func (m *Manager) RecordPriceRequest(outcome string) {
	if m == nil {
		return
	}
	m.priceRequests.WithLabelValues(outcome).Inc()
}

func (m *Manager) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Manager) RecordEventError() {
	if m == nil {
		return
	}
	m.eventErrors.Inc()
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveTx records how long a store transaction took.
func (m *Manager) ObserveTx(d time.Duration) {
	if m == nil {
		return
	}
	m.storeTxDurations.Observe(d.Seconds())
}
