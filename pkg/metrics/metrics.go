package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtnitsch/web-audit/models"
)

const namespace = "web_audit"

// Collector holds the service's Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	auditsTotal          *prometheus.CounterVec
	auditDuration        *prometheus.HistogramVec
	collaboratorFailures *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec
}

// New builds a Collector with Go runtime and process collectors attached.
func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "endpoint"},
	)

	c.auditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Completed audits by requested mode and analysis path",
		},
		[]string{"mode", "analysis_mode"},
	)

	c.auditDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "End-to-end audit duration in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"mode"},
	)

	c.collaboratorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "Failed or degraded pipeline collaborators",
		},
		[]string{"collaborator"},
	)

	c.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "homepage_cache_lookups_total",
			Help:      "Homepage cache lookups by result",
		},
		[]string{"result"},
	)

	c.registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.auditsTotal,
		c.auditDuration,
		c.collaboratorFailures,
		c.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveAudit records a finished audit and every collaborator that did not succeed.
func (c *Collector) ObserveAudit(report *models.AuditReport, elapsed time.Duration) {
	if c == nil || report == nil {
		return
	}
	c.auditsTotal.WithLabelValues(string(report.Type), string(report.AnalysisMode)).Inc()
	c.auditDuration.WithLabelValues(string(report.Type)).Observe(elapsed.Seconds())

	sources := report.Meta.DataSources
	for name, stage := range map[string]models.StageResult{
		"psi":    sources.PSI,
		"crux":   sources.Crux,
		"onpage": sources.OnPage,
		"llm":    sources.LLM,
	} {
		if stage.Status == models.StageFailed || stage.Status == models.StageDegraded {
			c.collaboratorFailures.WithLabelValues(name).Inc()
		}
	}
}

// CollaboratorFailed counts a failure outside a finished report, e.g. a
// homepage that could not be scanned.
func (c *Collector) CollaboratorFailed(name string) {
	if c == nil {
		return
	}
	c.collaboratorFailures.WithLabelValues(name).Inc()
}

// CacheLookup counts a homepage cache hit or miss.
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

// Middleware records request counts and latency keyed by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
