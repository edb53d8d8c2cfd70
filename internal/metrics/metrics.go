package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gunaso_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "code"},
	)

	ComplaintsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gunaso_complaints_submitted_total",
			Help: "Complaints submitted, by category and submission type",
		},
		[]string{"category", "submission_type"},
	)

	ComplaintsForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gunaso_complaints_forwarded_total",
			Help: "Forwarding decisions, by how specific the office match was",
		},
		[]string{"match_level"},
	)

	StatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gunaso_complaint_status_changes_total",
			Help: "Complaint status transitions",
		},
		[]string{"to_status"},
	)

	EvidenceUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gunaso_evidence_uploaded_total",
			Help: "Evidence files stored, by media type",
		},
		[]string{"media_type"},
	)
)

func init() {
	prometheus.MustRegister(RequestDuration, ComplaintsSubmitted, ComplaintsForwarded, StatusChanges, EvidenceUploaded)
}

// Instrument records request latency labelled with the matched chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
