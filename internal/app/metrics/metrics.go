// Package metrics exposes the application's Prometheus collectors and HTTP
// instrumentation.
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
			Namespace: "investestate",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "investestate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "investestate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	investmentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "investestate",
			Subsystem: "investments",
			Name:      "created_total",
			Help:      "Total number of investments accepted.",
		},
		[]string{"model_id"},
	)

	slotsReserved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "investestate",
			Subsystem: "investments",
			Name:      "slots_reserved_total",
			Help:      "Total number of slots sold across all models.",
		},
		[]string{"model_id"},
	)

	otpIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "investestate",
			Subsystem: "auth",
			Name:      "otp_issued_total",
			Help:      "Total number of OTP codes issued.",
		},
	)

	otpVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "investestate",
			Subsystem: "auth",
			Name:      "otp_verifications_total",
			Help:      "Total number of OTP verification attempts.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		investmentsCreated,
		slotsReserved,
		otpIssued,
		otpVerifications,
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

// RecordInvestment records an accepted investment and the slots it consumed.
func RecordInvestment(modelID string, slots int) {
	if modelID == "" {
		modelID = "unknown"
	}
	investmentsCreated.WithLabelValues(modelID).Inc()
	slotsReserved.WithLabelValues(modelID).Add(float64(slots))
}

// RecordOTPIssued records an issued verification code.
func RecordOTPIssued() {
	otpIssued.Inc()
}

// RecordOTPVerification records a verification attempt outcome
// (accepted|rejected|expired).
func RecordOTPVerification(outcome string) {
	otpVerifications.WithLabelValues(outcome).Inc()
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

// canonicalPath collapses resource identifiers so metric cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	switch parts[1] {
	case "auth":
		if len(parts) > 2 {
			return "/api/auth/" + parts[2]
		}
		return "/api/auth"
	case "projects":
		if len(parts) == 2 {
			return "/api/projects"
		}
		if len(parts) == 3 {
			return "/api/projects/:project"
		}
		return "/api/projects/:project/" + parts[3]
	default:
		return "/api/" + parts[1]
	}
}
