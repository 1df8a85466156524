package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMetricsMiddleware_Basic(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(204) }))
	mw.ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
}

func TestMetricsHelpers(t *testing.T) {
	InitMetrics()
	ReEvaluationsTotal.WithLabelValues("success").Inc()
	ReEvaluationDuration.Observe(1.2)
	AuditLogFailuresTotal.Inc()
	AIRequestsTotal.WithLabelValues("gemini", "gemini-2.0-flash").Inc()
	ObserveScoreDelta(70, 72)
}
