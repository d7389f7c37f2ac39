package analytics

import (
	"math"
	"testing"

	"StreamPulse/internal/domain/models"
)

func TestMarketDetectorInsufficientData(t *testing.T) {
	d := NewMarketAnomalyDetector(50, 3.0)

	for i, price := range []float64{100.0, 5000.0} {
		res := d.Detect(price)
		if res.IsAnomaly {
			t.Fatalf("call %d: expected no anomaly with insufficient data", i+1)
		}
		if res.Reason != "insufficient data" {
			t.Fatalf("call %d: unexpected reason %q", i+1, res.Reason)
		}
	}

	// third call has two prior observations and must compute statistics
	res := d.Detect(100.0)
	if res.Reason != "" {
		t.Fatalf("expected statistics on third call, got reason %q", res.Reason)
	}
}

func TestMarketDetectorFlagsOutlier(t *testing.T) {
	d := NewMarketAnomalyDetector(50, 3.0)

	for i := 0; i < 50; i++ {
		d.Detect(100.0)
	}
	// small jitter so the window std is non-zero
	d.Detect(101.0)
	d.Detect(99.0)

	res := d.Detect(1000.0)
	if !res.IsAnomaly {
		t.Fatalf("expected anomaly for 1000.0 against a ~100.0 baseline")
	}
	if res.Type != models.AnomalyZScoreOutlier {
		t.Fatalf("unexpected type %q", res.Type)
	}
	if res.Severity <= 3.0 {
		t.Fatalf("severity %v should exceed threshold", res.Severity)
	}
}

func TestMarketDetectorZeroStd(t *testing.T) {
	d := NewMarketAnomalyDetector(50, 3.0)

	// identical values give std == 0; a differing price must not divide by zero
	for i := 0; i < 50; i++ {
		d.Detect(100.0)
	}
	res := d.Detect(1000.0)
	if res.IsAnomaly {
		t.Fatalf("std == 0 must yield no anomaly")
	}
	details, ok := res.Details.(models.MarketAnomalyDetails)
	if !ok {
		t.Fatalf("unexpected details type %T", res.Details)
	}
	if details.ZScore != 0 {
		t.Fatalf("z_score should be 0 when std == 0, got %v", details.ZScore)
	}
	if details.Std != 0 {
		t.Fatalf("std should be 0, got %v", details.Std)
	}
	if details.Mean != 100.0 {
		t.Fatalf("mean should be 100.0, got %v", details.Mean)
	}
}

func TestMarketDetectorBaselineExcludesCurrent(t *testing.T) {
	d := NewMarketAnomalyDetector(50, 3.0)
	d.Detect(100.0)
	d.Detect(102.0)

	// baseline is {100, 102}: mean 101, population std 1
	res := d.Detect(104.0)
	details := res.Details.(models.MarketAnomalyDetails)
	if details.Mean != 101.0 {
		t.Fatalf("mean = %v, want 101.0", details.Mean)
	}
	if math.Abs(details.ZScore-3.0) > 1e-9 {
		t.Fatalf("z_score = %v, want 3.0", details.ZScore)
	}
	if res.IsAnomaly {
		t.Fatalf("|z| == threshold must not flag (strict comparison)")
	}
}

func TestMarketDetectorWindowEviction(t *testing.T) {
	d := NewMarketAnomalyDetector(5, 3.0)
	for i := 0; i < 12; i++ {
		d.Detect(float64(100 + i))
	}
	if d.WindowLen() != 5 {
		t.Fatalf("window length = %d, want 5", d.WindowLen())
	}
}
