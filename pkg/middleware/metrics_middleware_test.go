package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func newMetricsRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(Prometheus(WithRegistry(reg)))
	r.Get("/blog/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "slug") == "missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestPrometheusMiddleware_LabelsByRoutePattern(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()
	h := newMetricsRouter(reg)

	for _, path := range []string{"/blog/a", "/blog/b", "/blog/missing"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	c := GetMetrics()
	if c == nil {
		t.Fatal("expected GetMetrics to return collector after initialization")
	}
	if got := metricCounterValue(t, c.requestsTotal.WithLabelValues("/blog/{slug}", "GET", "200")); got != 2 {
		t.Fatalf("http_requests_total(200)=%v, want 2", got)
	}
	if got := metricCounterValue(t, c.requestsTotal.WithLabelValues("/blog/{slug}", "GET", "404")); got != 1 {
		t.Fatalf("http_requests_total(404)=%v, want 1", got)
	}
	if got := metricHistogramCount(t, c.requestDuration.WithLabelValues("/blog/{slug}")); got != 3 {
		t.Fatalf("http_request_duration_seconds count=%v, want 3", got)
	}
}

func TestPrometheusMiddleware_UnmatchedRouteIsOther(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()
	h := newMetricsRouter(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere/at/all", nil))

	c := GetMetrics()
	if got := metricCounterValue(t, c.requestsTotal.WithLabelValues("other", "GET", "404")); got != 1 {
		t.Fatalf("http_requests_total(other)=%v, want 1", got)
	}
}

func TestMetricsRecordFunctions_WithInitializedMetrics(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	_ = Prometheus(WithRegistry(reg))
	c := GetMetrics()
	if c == nil {
		t.Fatal("expected GetMetrics to return collector after initialization")
	}

	RecordRender("ssr", "ssr", 15*time.Millisecond)
	RecordRender("ssr", "shell", 0)
	RecordRenderError(errors.New("ssr: backend unavailable"))
	RecordRenderError(nil)
	RecordPrefetch("item", "not_found")
	RecordLead("accepted")
	RecordPrerender("written")

	if got := metricCounterValue(t, c.rendersTotal.WithLabelValues("ssr", "ssr")); got != 1 {
		t.Fatalf("renders_total(ssr,ssr)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.rendersTotal.WithLabelValues("ssr", "shell")); got != 1 {
		t.Fatalf("renders_total(ssr,shell)=%v, want 1", got)
	}
	if got := metricHistogramCount(t, c.renderDuration.WithLabelValues("ssr")); got != 1 {
		t.Fatalf("render_duration_seconds count=%v, want 1 (zero durations are not observed)", got)
	}
	if got := metricCounterValue(t, c.renderErrors.WithLabelValues("backend")); got != 1 {
		t.Fatalf("render_errors_total(backend)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.prefetchTotal.WithLabelValues("item", "not_found")); got != 1 {
		t.Fatalf("prefetch_total=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.leadsTotal.WithLabelValues("accepted")); got != 1 {
		t.Fatalf("leads_total=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.prerenderPages.WithLabelValues("written")); got != 1 {
		t.Fatalf("prerender_pages_total=%v, want 1", got)
	}
}

func TestMetricsRecordFunctions_NoopBeforeInit(t *testing.T) {
	resetGlobalMetricsForTest()

	RecordRender("static", "static", time.Millisecond)
	RecordRenderError(errors.New("boom"))
	RecordPrefetch("list", "hit")
	RecordLead("rejected")
	RecordPrerender("failed")

	if GetMetrics() != nil {
		t.Fatal("GetMetrics() should be nil before Prometheus() is called")
	}
}

func TestCollector_RegistersOnFreshRegistry(t *testing.T) {
	resetGlobalMetricsForTest()
	_ = Prometheus(WithRegistry(prometheus.NewRegistry()))
	RecordLead("accepted")

	other := prometheus.NewRegistry()
	if err := other.Register(GetMetrics()); err != nil {
		t.Fatalf("Register(Collector) error: %v", err)
	}
	families, err := other.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "site_leads_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected site_leads_total in gathered families")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("request Timeout"), "timeout"},
		{errors.New("context canceled"), "canceled"},
		{errors.New("post not found"), "not_found"},
		{errors.New("ssr: backend: connection refused"), "backend"},
		{errors.New("template: missing marker"), "template"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%q) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
