package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "number_console"

// Metrics stores Prometheus collectors used by the API and the audit worker.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	batchJobsTotal        *prometheus.CounterVec
	batchItemsTotal       *prometheus.CounterVec
	batchItemCallDuration *prometheus.HistogramVec
	batchJobsInflight     *prometheus.GaugeVec
	auditEventsTotal      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		batchJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "batch_jobs_total",
				Help:      "Total number of finished batch jobs by action and final status.",
			},
			[]string{"action", "status"},
		),
		batchItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "batch_items_total",
				Help:      "Total number of batch items processed by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		batchItemCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "batch_item_call_duration_seconds",
				Help:      "Carrier call duration in seconds grouped by action.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"action"},
		),
		batchJobsInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "batch_jobs_inflight",
				Help:      "Current number of running batch jobs grouped by action.",
			},
			[]string{"action"},
		),
		auditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "audit_events_total",
				Help:      "Total number of batch lifecycle events written to the audit trail.",
			},
			[]string{"event"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.batchJobsTotal,
		m.batchItemsTotal,
		m.batchItemCallDuration,
		m.batchJobsInflight,
		m.auditEventsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncBatchJob(action string, status string) {
	if m == nil {
		return
	}
	m.batchJobsTotal.WithLabelValues(normalizeLabel(action), normalizeLabel(status)).Inc()
}

// IncBatchItem counts one processed item. outcome is "success" or a failure reason.
func (m *Metrics) IncBatchItem(action string, outcome string) {
	if m == nil {
		return
	}
	m.batchItemsTotal.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveBatchItemCallDuration(action string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchItemCallDuration.WithLabelValues(normalizeLabel(action)).Observe(max(duration.Seconds(), 0))
}

func (m *Metrics) IncBatchJobsInFlight(action string) {
	if m == nil {
		return
	}
	m.batchJobsInflight.WithLabelValues(normalizeLabel(action)).Inc()
}

func (m *Metrics) DecBatchJobsInFlight(action string) {
	if m == nil {
		return
	}
	m.batchJobsInflight.WithLabelValues(normalizeLabel(action)).Dec()
}

func (m *Metrics) IncAuditEvent(event string) {
	if m == nil {
		return
	}
	m.auditEventsTotal.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
