package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and model",
		},
		[]string{"provider", "model"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	ReEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "re_evaluations_total",
			Help: "Total number of section re-evaluations by outcome",
		},
		[]string{"status"},
	)
	ReEvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "re_evaluation_duration_seconds",
			Help:    "End-to-end re-evaluation duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
	AuditLogFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "re_evaluation_audit_log_failures_total",
			Help: "Audit-log inserts that failed after scores were persisted",
		},
	)

	// ScoreDeltaHistogram tracks how far re-evaluated totals move from the
	// original grading, in marks. Large sustained drift is a rubric smell.
	ScoreDeltaHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "re_evaluation_score_delta",
			Help:    "Distribution of total-score change per re-evaluation (new - previous)",
			Buckets: []float64{-20, -10, -5, -2, -1, 0, 1, 2, 5, 10, 20},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(ReEvaluationsTotal)
	prometheus.MustRegister(ReEvaluationDuration)
	prometheus.MustRegister(AuditLogFailuresTotal)
	prometheus.MustRegister(ScoreDeltaHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveScoreDelta records the total-score movement of one re-evaluation.
func ObserveScoreDelta(previous, next float64) {
	ScoreDeltaHistogram.Observe(next - previous)
}
