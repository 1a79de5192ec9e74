// Package metrics provides the Prometheus instruments shared by the client
// core. A nil *Metrics is valid and records nothing, so instrumentation is
// opt-in for every store.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the metrics bundle.
type Config struct {
	// Namespace is the metrics namespace (default: "campuseats").
	Namespace string

	// Subsystem is the metrics subsystem (default: "client").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the metrics bundle.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics aggregates the client core's instruments.
type Metrics struct {
	apiRequests    *prometheus.CounterVec
	apiDuration    *prometheus.HistogramVec
	forcedLogouts  prometheus.Counter
	cartMutations  *prometheus.CounterVec
	socketMessages prometheus.Counter
}

// New creates the metrics bundle and registers its instruments.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "campuseats",
		Subsystem: "client",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "api_requests_total",
			Help:        "API requests by method and response status.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "status"}),
		apiDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "api_request_duration_seconds",
			Help:        "API request duration by method.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: cfg.ConstLabels,
		}, []string{"method"}),
		forcedLogouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "forced_logouts_total",
			Help:        "Sessions cleared by an ambient authorization failure.",
			ConstLabels: cfg.ConstLabels,
		}),
		cartMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "cart_mutations_total",
			Help:        "Cart mutations by operation.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op"}),
		socketMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "socket_messages_total",
			Help:        "Notification messages received on the realtime channel.",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// ObserveAPIRequest records one completed API request.
func (m *Metrics) ObserveAPIRequest(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method).Observe(seconds)
}

// IncForcedLogout records one ambient-401 session teardown.
func (m *Metrics) IncForcedLogout() {
	if m == nil {
		return
	}
	m.forcedLogouts.Inc()
}

// IncCartMutation records one cart mutation.
func (m *Metrics) IncCartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

// IncSocketMessage records one inbound realtime message.
func (m *Metrics) IncSocketMessage() {
	if m == nil {
		return
	}
	m.socketMessages.Inc()
}
