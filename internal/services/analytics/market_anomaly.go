package analytics

import (
	"math"

	"StreamPulse/internal/domain/models"
)

// MarketAnomalyDetector scores each price against a rolling window of prior
// prices using a Z-score. It is owned by a single adapter and is not safe for
// concurrent use.
type MarketAnomalyDetector struct {
	windowSize int
	zThreshold float64
	prices     []float64
}

// NewMarketAnomalyDetector creates a detector with defaults applied for
// zero-valued arguments (window 50, threshold 3.0).
func NewMarketAnomalyDetector(windowSize int, zScoreThreshold float64) *MarketAnomalyDetector {
	if windowSize <= 0 {
		windowSize = 50
	}
	if zScoreThreshold <= 0 {
		zScoreThreshold = 3.0
	}
	return &MarketAnomalyDetector{
		windowSize: windowSize,
		zThreshold: zScoreThreshold,
		prices:     make([]float64, 0, windowSize),
	}
}

// Detect scores currentPrice against the window as it was before insertion,
// then appends it (FIFO eviction at capacity). With fewer than two prior
// observations no statistics are computed.
func (d *MarketAnomalyDetector) Detect(currentPrice float64) *models.AnomalyResult {
	if len(d.prices) < 2 {
		d.push(currentPrice)
		return &models.AnomalyResult{IsAnomaly: false, Reason: "insufficient data"}
	}

	mean, std := d.stats()
	zScore := 0.0
	if std != 0 {
		zScore = (currentPrice - mean) / std
	}

	isAnomaly := math.Abs(zScore) > d.zThreshold
	d.push(currentPrice)

	typ := models.AnomalyNormal
	if isAnomaly {
		typ = models.AnomalyZScoreOutlier
	}
	return &models.AnomalyResult{
		IsAnomaly: isAnomaly,
		Type:      typ,
		Severity:  math.Abs(zScore),
		Details:   models.MarketAnomalyDetails{Mean: mean, Std: std, ZScore: zScore},
	}
}

// stats returns mean and population standard deviation of the window.
func (d *MarketAnomalyDetector) stats() (mean, std float64) {
	n := float64(len(d.prices))
	sum := 0.0
	for _, p := range d.prices {
		sum += p
	}
	mean = sum / n

	variance := 0.0
	for _, p := range d.prices {
		diff := p - mean
		variance += diff * diff
	}
	variance /= n
	return mean, math.Sqrt(variance)
}

func (d *MarketAnomalyDetector) push(price float64) {
	if len(d.prices) == d.windowSize {
		copy(d.prices, d.prices[1:])
		d.prices = d.prices[:d.windowSize-1]
	}
	d.prices = append(d.prices, price)
}

// WindowLen returns the number of prices currently in the rolling window.
func (d *MarketAnomalyDetector) WindowLen() int {
	return len(d.prices)
}
