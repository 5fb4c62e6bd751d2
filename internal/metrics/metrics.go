package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Store metrics
	storeForwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_forwards_total",
			Help: "Total number of requests sent to the spreadsheet store",
		},
		[]string{"action", "outcome"}, // ok, timeout, unreachable, status, decode
	)

	storeForwardDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_forward_duration_seconds",
			Help:    "Spreadsheet store request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10, 15},
		},
		[]string{"action"},
	)

	// Business metrics
	listingFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guest_listing_fallbacks_total",
			Help: "Total number of guest listings answered with the fallback record",
		},
	)

	guestSubmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guest_submissions_total",
			Help: "Total number of guest intake submissions",
		},
	)

	followUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guest_follow_ups_total",
			Help: "Total number of minister follow-up submissions",
		},
	)

	outboxEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbox_entries",
			Help: "Number of outbox entries by state",
		},
		[]string{"state"},
	)
)

// PrometheusMiddleware records request count and latency per chi route pattern.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordStoreForward records one Store call. outcome is "ok" or a failure kind.
func RecordStoreForward(action, outcome string, duration time.Duration) {
	storeForwardsTotal.WithLabelValues(action, outcome).Inc()
	storeForwardDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordListingFallback records a listing answered with the placeholder guest
func RecordListingFallback() {
	listingFallbacksTotal.Inc()
}

// RecordSubmission records a new guest intake
func RecordSubmission() {
	guestSubmissionsTotal.Inc()
}

// RecordFollowUp records a minister follow-up
func RecordFollowUp() {
	followUpsTotal.Inc()
}

// SetOutboxEntries updates the outbox gauge for one state
func SetOutboxEntries(state string, n int64) {
	outboxEntries.WithLabelValues(state).Set(float64(n))
}
