package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "site").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request and render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "site",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rendersTotal    *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	renderErrors    *prometheus.CounterVec
	prefetchTotal   *prometheus.CounterVec
	leadsTotal      *prometheus.CounterVec
	prerenderPages  *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total HTTP requests by route pattern, method and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total page responses by rendering strategy and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"strategy", "outcome"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Server render duration in seconds, prefetch included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"strategy"}),

		renderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_errors_total",
			Help:        "Total render failures by error category",
			ConstLabels: config.ConstLabels,
		}, []string{"error_type"}),

		prefetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "prefetch_total",
			Help:        "Route data prefetches by route kind and result",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "result"}),

		leadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "leads_total",
			Help:        "Lead form submissions by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		prerenderPages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "prerender_pages_total",
			Help:        "Pages written by the prerender step",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),
	}
}

// Prometheus creates middleware that counts and times HTTP requests.
//
// Requests are labelled with the chi route pattern when one matched, so
// /blog/{slug} is a single series no matter how many posts exist. Requests
// that matched no pattern are labelled "other".
//
// Metrics collected:
//   - site_http_requests_total: Counter by route, method and status code
//   - site_http_request_duration_seconds: Histogram by route
//   - site_renders_total: Counter by strategy and outcome (RecordRender)
//   - site_render_duration_seconds: Histogram by strategy (RecordRender)
//   - site_render_errors_total: Counter by error category (RecordRenderError)
//   - site_prefetch_total: Counter by route kind and result (RecordPrefetch)
//   - site_leads_total: Counter by result (RecordLead)
//   - site_prerender_pages_total: Counter by result (RecordPrerender)
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus(middleware.WithNamespace("marketing")))
//	r.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) func(http.Handler) http.Handler {
	m := ensureMetrics(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routeLabel(r)
			m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		})
	}
}

// ensureMetrics registers the collectors on first use. Later calls reuse the
// same instance and ignore their options.
func ensureMetrics(opts ...MetricsOption) *metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	return globalMetrics
}

func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "other"
	}
	pattern := rctx.RoutePattern()
	if pattern == "" {
		return "other"
	}
	return pattern
}

// categorizeError returns a category for the error type.
// This prevents high-cardinality labels from error messages.
func categorizeError(err error) string {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "canceled"):
		return "canceled"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "backend"):
		return "backend"
	case strings.Contains(errStr, "template"):
		return "template"
	default:
		return "internal"
	}
}

func current() *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordRender records one page response. strategy is the route strategy
// name (static, ssr, client) and outcome is what was actually served,
// for example "ssr", "static", "shell" or "error".
func RecordRender(strategy, outcome string, d time.Duration) {
	if m := current(); m != nil {
		m.rendersTotal.WithLabelValues(strategy, outcome).Inc()
		if d > 0 {
			m.renderDuration.WithLabelValues(strategy).Observe(d.Seconds())
		}
	}
}

// RecordRenderError records a failed server render.
func RecordRenderError(err error) {
	if err == nil {
		return
	}
	if m := current(); m != nil {
		m.renderErrors.WithLabelValues(categorizeError(err)).Inc()
	}
}

// RecordPrefetch records a route data prefetch. kind is "list" or "item";
// result is "hit", "not_found" or "error".
func RecordPrefetch(kind, result string) {
	if m := current(); m != nil {
		m.prefetchTotal.WithLabelValues(kind, result).Inc()
	}
}

// RecordLead records a lead form submission result.
func RecordLead(result string) {
	if m := current(); m != nil {
		m.leadsTotal.WithLabelValues(result).Inc()
	}
}

// RecordPrerender records one page written (or failed) by the prerender step.
func RecordPrerender(result string) {
	if m := current(); m != nil {
		m.prerenderPages.WithLabelValues(result).Inc()
	}
}

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector exposes the registered metrics for custom registrations and tests.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rendersTotal    *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	renderErrors    *prometheus.CounterVec
	prefetchTotal   *prometheus.CounterVec
	leadsTotal      *prometheus.CounterVec
	prerenderPages  *prometheus.CounterVec
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	m := current()
	if m == nil {
		return nil
	}
	return &Collector{
		requestsTotal:   m.requestsTotal,
		requestDuration: m.requestDuration,
		rendersTotal:    m.rendersTotal,
		renderDuration:  m.renderDuration,
		renderErrors:    m.renderErrors,
		prefetchTotal:   m.prefetchTotal,
		leadsTotal:      m.leadsTotal,
		prerenderPages:  m.prerenderPages,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, col := range c.collectors() {
		col.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, col := range c.collectors() {
		col.Collect(ch)
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.requestsTotal, c.requestDuration, c.rendersTotal, c.renderDuration,
		c.renderErrors, c.prefetchTotal, c.leadsTotal, c.prerenderPages,
	}
}
