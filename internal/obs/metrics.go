// Package obs exposes Prometheus metrics for the HTTP surface and the
// authorization gate.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "municipia_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "municipia_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "municipia_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	gateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "municipia_gate_decisions_total",
			Help: "Authorization gate outcomes.",
		},
		[]string{"outcome", "reason"},
	)

	auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "municipia_audit_events_dropped_total",
		Help: "Audit events dropped because the recorder buffer was full.",
	})
)

// Init registers the metrics in the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, gateDecisions, auditDropped)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GateAllowed counts a granted authorization decision.
func GateAllowed() {
	gateDecisions.WithLabelValues("allowed", "").Inc()
}

// GateDenied counts a denied decision with its reason.
func GateDenied(reason string) {
	gateDecisions.WithLabelValues("denied", reason).Inc()
}

// AuditDropped counts a dropped audit event.
func AuditDropped() {
	auditDropped.Inc()
}

// Instrument records RPS, latency and in-flight counts for every request.
// Paths carry tenant slugs and IDs, so they are left out of the label set.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
