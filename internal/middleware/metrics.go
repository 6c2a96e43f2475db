// Package middleware holds the HTTP middleware shared by the admin UI and
// the client registry service.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)

	clientsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_clients_created_total",
			Help: "Clients created, by where the record was persisted",
		},
		[]string{"origin"},
	)

	registryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnel_registry_errors_total",
			Help: "Failed calls to the client registry",
		},
	)

	previewsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_cms_previews_total",
			Help: "CMS preview attempts by outcome",
		},
		[]string{"outcome"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics records request counts and latencies labelled with the matched
// route pattern, so path parameters do not explode cardinality.
func Metrics(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(rw.statusCode)
		httpRequestsTotal.WithLabelValues(service, r.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(service, r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordClientCreated counts a created client. origin is "local" or "registry".
func RecordClientCreated(origin string) {
	clientsCreated.WithLabelValues(origin).Inc()
}

// RecordRegistryError counts a failed registry call.
func RecordRegistryError() {
	registryErrors.Inc()
}

// RecordPreview counts a preview attempt. outcome is "opened" or "blocked".
func RecordPreview(outcome string) {
	previewsOpened.WithLabelValues(outcome).Inc()
}
