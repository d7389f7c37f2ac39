package analytics

import (
	"StreamPulse/internal/domain/models"
)

// ChatAnomalyConfig holds detector thresholds, fixed at construction.
type ChatAnomalyConfig struct {
	TimeWindowSeconds float64
	ToxicityThreshold float64
	FreqThreshold     int
	MaxAuthors        int
}

// ChatAnomalyDetector flags toxicity spikes and per-author message-frequency
// spam over a sliding time window. It is owned by a single adapter and is not
// safe for concurrent use.
type ChatAnomalyDetector struct {
	cfg ChatAnomalyConfig

	// per-author ordered timestamps, pruned on each Detect call
	windows map[string][]float64
	// last activity per author, used for least-recently-active eviction
	lastActive map[string]float64
}

// NewChatAnomalyDetector creates a detector with defaults applied for any
// zero-valued config field (60s window, 0.8 toxicity, 10 messages, 10k authors).
func NewChatAnomalyDetector(cfg ChatAnomalyConfig) *ChatAnomalyDetector {
	if cfg.TimeWindowSeconds <= 0 {
		cfg.TimeWindowSeconds = 60
	}
	if cfg.ToxicityThreshold <= 0 {
		cfg.ToxicityThreshold = 0.8
	}
	if cfg.FreqThreshold <= 0 {
		cfg.FreqThreshold = 10
	}
	if cfg.MaxAuthors <= 0 {
		cfg.MaxAuthors = 10000
	}
	return &ChatAnomalyDetector{
		cfg:        cfg,
		windows:    make(map[string][]float64),
		lastActive: make(map[string]float64),
	}
}

// Detect evaluates the toxicity rule, then the frequency rule. The frequency
// rule is evaluated unconditionally and overwrites a toxicity verdict when
// both fire; the Type field tells callers which rule won. All inputs are
// defaulted defensively, so Detect never fails.
func (d *ChatAnomalyDetector) Detect(ev *models.NormalizedEvent) *models.AnomalyResult {
	result := &models.AnomalyResult{IsAnomaly: false}

	author := "system"
	if p, ok := ev.Payload.(models.ChatPayload); ok && p.Author != "" {
		author = p.Author
	}

	var toxic float64
	if ev.Enrichments.Toxicity != nil {
		toxic = ev.Enrichments.Toxicity.Toxic
	}
	if toxic > d.cfg.ToxicityThreshold {
		result = &models.AnomalyResult{
			IsAnomaly: true,
			Type:      models.AnomalyToxicitySpike,
			Severity:  toxic,
			Details:   models.ChatAnomalyDetails{User: author, Score: toxic},
		}
	}

	count := d.observe(author, ev.Timestamp)
	if count > d.cfg.FreqThreshold {
		result = &models.AnomalyResult{
			IsAnomaly: true,
			Type:      models.AnomalyFrequencySpam,
			Severity:  float64(count),
			Details:   models.ChatAnomalyDetails{User: author, CountInWindow: count},
		}
	}

	return result
}

// observe appends ts to the author's window, evicts entries older than the
// time window, and returns the resulting in-window count.
func (d *ChatAnomalyDetector) observe(author string, ts float64) int {
	if _, exists := d.windows[author]; !exists && len(d.windows) >= d.cfg.MaxAuthors {
		d.evictIdlest()
	}

	w := append(d.windows[author], ts)
	cutoff := ts - d.cfg.TimeWindowSeconds
	i := 0
	for i < len(w) && w[i] < cutoff {
		i++
	}
	w = w[i:]
	d.windows[author] = w
	d.lastActive[author] = ts
	return len(w)
}

// evictIdlest drops the least-recently-active author's window.
func (d *ChatAnomalyDetector) evictIdlest() {
	var idlest string
	var oldest float64
	first := true
	for author, ts := range d.lastActive {
		if first || ts < oldest {
			idlest = author
			oldest = ts
			first = false
		}
	}
	if !first {
		delete(d.windows, idlest)
		delete(d.lastActive, idlest)
	}
}

// Authors returns the number of tracked author windows.
func (d *ChatAnomalyDetector) Authors() int {
	return len(d.windows)
}
