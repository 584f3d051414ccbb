package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	JobsSubmitted.Inc()
	ItemsCompleted.WithLabelValues("mp3").Inc()

	// Calling twice must not panic on duplicate registration.
	Handler()
	h := Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"mediafetch_jobs_submitted_total", "mediafetch_items_completed_total", "mediafetch_jobs_running"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
