package http

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServerRecordsRequestMetrics(t *testing.T) {
	s := NewServer(nil)

	// any request populates the counters the middleware registers
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(MethodGet, "/nope", nil))

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(MethodGet, "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("request counters not exposed on /metrics")
	}
	if !strings.Contains(body, "http_request_duration_seconds") {
		t.Fatalf("request duration histogram not exposed on /metrics")
	}
}
