// Package metrics exposes the Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalog_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	codesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog_service",
			Subsystem: "codes",
			Name:      "issued_total",
			Help:      "Total number of verification codes issued.",
		},
		[]string{"kind"},
	)

	codesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog_service",
			Subsystem: "codes",
			Name:      "consumed_total",
			Help:      "Total number of verification codes consumed.",
		},
		[]string{"kind"},
	)

	catalogSaves = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "catalog_service",
			Subsystem: "catalog",
			Name:      "saves_total",
			Help:      "Total number of catalog app saves.",
		},
	)

	mailDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog_service",
			Subsystem: "mail",
			Name:      "deliveries_total",
			Help:      "Total number of mail delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)

	mailQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "catalog_service",
			Subsystem: "mail",
			Name:      "queue_depth",
			Help:      "Current number of messages waiting in the mail queue.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		codesIssued,
		codesConsumed,
		catalogSaves,
		mailDeliveries,
		mailQueueDepth,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordCodeIssued counts an issued registration or reset code.
func RecordCodeIssued(kind string) {
	codesIssued.WithLabelValues(kind).Inc()
}

// RecordCodeConsumed counts a successfully consumed code.
func RecordCodeConsumed(kind string) {
	codesConsumed.WithLabelValues(kind).Inc()
}

// RecordCatalogSave counts a catalog app save.
func RecordCatalogSave() {
	catalogSaves.Inc()
}

// RecordMailDelivery counts a mail delivery attempt.
func RecordMailDelivery(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	mailDeliveries.WithLabelValues(outcome).Inc()
}

// SetMailQueueDepth publishes the current mail queue backlog.
func SetMailQueueDepth(n int) {
	mailQueueDepth.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so the path label stays low-cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "apps", "users", "feedback":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		if len(parts) == 2 {
			return "/" + parts[0] + "/:id"
		}
		return "/" + parts[0] + "/:id/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
