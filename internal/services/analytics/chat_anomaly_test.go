package analytics

import (
	"testing"

	"StreamPulse/internal/domain/models"
)

func chatEvent(author string, ts, toxic float64) *models.NormalizedEvent {
	return &models.NormalizedEvent{
		Source:    models.SourceChat,
		Kind:      "chat",
		Timestamp: ts,
		Payload:   models.ChatPayload{Author: author, Text: "hello", Channel: "general"},
		Enrichments: models.Enrichments{
			Toxicity: &models.ToxicityScores{Toxic: toxic},
		},
	}
}

func TestChatDetectorNormal(t *testing.T) {
	d := NewChatAnomalyDetector(ChatAnomalyConfig{})
	res := d.Detect(chatEvent("user1", 1000, 0.1))
	if res.IsAnomaly {
		t.Fatalf("expected no anomaly, got %+v", res)
	}
	if res.Type != "" {
		t.Fatalf("unexpected type %q", res.Type)
	}
}

func TestChatDetectorToxicitySpike(t *testing.T) {
	d := NewChatAnomalyDetector(ChatAnomalyConfig{ToxicityThreshold: 0.5})
	res := d.Detect(chatEvent("user2", 1001, 0.9))
	if !res.IsAnomaly {
		t.Fatalf("expected toxicity anomaly")
	}
	if res.Type != models.AnomalyToxicitySpike {
		t.Fatalf("type = %q, want %q", res.Type, models.AnomalyToxicitySpike)
	}
	details := res.Details.(models.ChatAnomalyDetails)
	if details.User != "user2" || details.Score != 0.9 {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestChatDetectorFrequencySpam(t *testing.T) {
	d := NewChatAnomalyDetector(ChatAnomalyConfig{FreqThreshold: 10, TimeWindowSeconds: 60})

	var res *models.AnomalyResult
	for i := 0; i < 11; i++ {
		res = d.Detect(chatEvent("spammer", 1000+float64(i)*0.05, 0.0))
	}
	if !res.IsAnomaly {
		t.Fatalf("11 messages in one second must flag frequency_spam")
	}
	if res.Type != models.AnomalyFrequencySpam {
		t.Fatalf("type = %q, want %q", res.Type, models.AnomalyFrequencySpam)
	}
	details := res.Details.(models.ChatAnomalyDetails)
	if details.CountInWindow != 11 {
		t.Fatalf("count_in_window = %d, want 11", details.CountInWindow)
	}
}

func TestChatDetectorFrequencyOverwritesToxicity(t *testing.T) {
	// Known overwrite ordering: when both rules fire on the same event the
	// frequency verdict wins and the toxicity verdict is discarded.
	d := NewChatAnomalyDetector(ChatAnomalyConfig{FreqThreshold: 2, ToxicityThreshold: 0.5})
	d.Detect(chatEvent("loud", 1000, 0.0))
	d.Detect(chatEvent("loud", 1000.1, 0.0))
	res := d.Detect(chatEvent("loud", 1000.2, 0.95))
	if !res.IsAnomaly || res.Type != models.AnomalyFrequencySpam {
		t.Fatalf("expected frequency_spam to overwrite toxicity_spike, got %+v", res)
	}
}

func TestChatDetectorWindowEviction(t *testing.T) {
	d := NewChatAnomalyDetector(ChatAnomalyConfig{FreqThreshold: 10, TimeWindowSeconds: 60})

	for i := 0; i < 9; i++ {
		d.Detect(chatEvent("user3", 1000+float64(i)*0.1, 0.0))
	}
	// 61 seconds after the first message: everything earlier is evicted
	res := d.Detect(chatEvent("user3", 1000+61, 0.0))
	details := res.Details
	if res.IsAnomaly {
		t.Fatalf("expected no anomaly after gap, got %+v with details %+v", res, details)
	}

	// window count reset to 1: ten more messages are needed to trip again
	var last *models.AnomalyResult
	for i := 0; i < 10; i++ {
		last = d.Detect(chatEvent("user3", 1062+float64(i)*0.01, 0.0))
	}
	if !last.IsAnomaly || last.Type != models.AnomalyFrequencySpam {
		t.Fatalf("expected frequency_spam after refill, got %+v", last)
	}
	if c := last.Details.(models.ChatAnomalyDetails).CountInWindow; c != 11 {
		t.Fatalf("count_in_window = %d, want 11", c)
	}
}

func TestChatDetectorMissingFieldsDefaulted(t *testing.T) {
	d := NewChatAnomalyDetector(ChatAnomalyConfig{})
	ev := &models.NormalizedEvent{Source: models.SourceChat, Kind: "chat", Timestamp: 5}
	res := d.Detect(ev)
	if res.IsAnomaly {
		t.Fatalf("no payload and no toxicity must not flag")
	}
}

func TestChatDetectorAuthorEviction(t *testing.T) {
	d := NewChatAnomalyDetector(ChatAnomalyConfig{MaxAuthors: 3})
	d.Detect(chatEvent("a", 1, 0))
	d.Detect(chatEvent("b", 2, 0))
	d.Detect(chatEvent("c", 3, 0))
	d.Detect(chatEvent("d", 4, 0))
	if d.Authors() != 3 {
		t.Fatalf("tracked authors = %d, want 3", d.Authors())
	}
}
