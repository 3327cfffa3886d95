package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultNamespace = "swap"

// Metrics owns the prometheus registry and the tracer of the service.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry
	tracer   trace.Tracer

	requests      *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	quotesCreated *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	priceFetches  *prometheus.CounterVec
	subscribers   prometheus.Gauge
}

// Option configures a Metrics.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
}

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// New creates a Metrics with its own registry.
func New(namespace, serviceName string, opts ...Option) *Metrics {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	if serviceName == "" {
		serviceName = "swap-backend"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tracer:   o.tracerProvider.Tracer(serviceName),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		quotesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_created_total",
			Help:      "Quotes created, by pair.",
		}, []string{"base", "quote"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_transitions_total",
			Help:      "Quote status transitions, by target status and trigger.",
		}, []string{"to", "trigger"}),
		priceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fetches_total",
			Help:      "Upstream price fetches, by source and result.",
		}, []string{"source", "result"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quote_subscribers",
			Help:      "Active quote change subscriptions.",
		}),
	}
	m.registry.MustRegister(m.requests, m.durations, m.quotesCreated, m.transitions, m.priceFetches, m.subscribers)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Tracer returns the service tracer, or one from the global provider when m is nil.
func (m *Metrics) Tracer() trace.Tracer {
	if m == nil {
		return otel.Tracer(defaultNamespace)
	}
	return m.tracer
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, http.StatusText(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) QuoteCreated(base, quote string) {
	if m == nil {
		return
	}
	m.quotesCreated.WithLabelValues(base, quote).Inc()
}

func (m *Metrics) QuoteTransition(to, trigger string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, trigger).Inc()
}

func (m *Metrics) PriceFetch(source, result string) {
	if m == nil {
		return
	}
	m.priceFetches.WithLabelValues(source, result).Inc()
}

func (m *Metrics) AddSubscribers(delta int) {
	if m == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}
