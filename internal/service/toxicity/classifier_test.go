package toxicity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StreamPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestPredictParsesScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]float64{
			"toxic": 0.91, "severe_toxic": 0.2, "obscene": 0.3,
			"threat": 0.1, "insult": 0.4, "identity_hate": 0.05,
		})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, time.Second, testLogger(t))
	scores := c.Predict(context.Background(), "bad words")
	if scores.Toxic != 0.91 {
		t.Fatalf("toxic = %v, want 0.91", scores.Toxic)
	}
	if scores.Error != "" {
		t.Fatalf("unexpected error marker %q", scores.Error)
	}
}

func TestPredictDegradesToZero(t *testing.T) {
	c := NewHTTPClassifier("http://127.0.0.1:1", 200*time.Millisecond, testLogger(t))
	scores := c.Predict(context.Background(), "anything")
	if scores.Toxic != 0 || scores.Insult != 0 {
		t.Fatalf("expected all-zero scores, got %+v", scores)
	}
	if scores.Error == "" {
		t.Fatalf("expected error marker on degraded prediction")
	}
}

func TestDisabledClassifier(t *testing.T) {
	scores := Disabled{}.Predict(context.Background(), "text")
	if scores.Toxic != 0 || scores.Error == "" {
		t.Fatalf("disabled classifier must return zero scores with marker, got %+v", scores)
	}
}
