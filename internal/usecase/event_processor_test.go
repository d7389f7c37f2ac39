package usecase

import (
	"context"
	"sync"
	"testing"

	"StreamPulse/internal/domain/models"
)

type fakeAlertSink struct {
	mu    sync.Mutex
	types []string
}

func (s *fakeAlertSink) PublishMessage(_ context.Context, msgType string, _ interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, msgType)
	return nil
}

func (s *fakeAlertSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.types)
}

func chatEvent(id, author string, anomalous bool) *models.NormalizedEvent {
	result := &models.AnomalyResult{IsAnomaly: false, Type: models.AnomalyNormal}
	if anomalous {
		result = &models.AnomalyResult{IsAnomaly: true, Type: models.AnomalyFrequencySpam, Severity: 0.5}
	}
	return &models.NormalizedEvent{
		Source:    models.SourceChat,
		Kind:      "chat",
		EventID:   id,
		Timestamp: 1000,
		Payload:   models.ChatPayload{Author: author, Text: "hi", Channel: "#general"},
		Enrichments: models.Enrichments{
			Anomaly: result,
		},
	}
}

func marketEvent(id string, anomalous bool) *models.NormalizedEvent {
	result := &models.AnomalyResult{IsAnomaly: anomalous, Type: models.AnomalyNormal}
	if anomalous {
		result.Type = models.AnomalyZScoreOutlier
	}
	return &models.NormalizedEvent{
		Source:    models.SourceMarket,
		Kind:      "trade",
		EventID:   id,
		Timestamp: 1000,
		Payload:   models.TradePayload{Symbol: "BTCUSDT", Price: 65000, Quantity: 0.5},
		Enrichments: models.Enrichments{
			Anomaly: result,
		},
	}
}

func TestProcessorRoutesBySource(t *testing.T) {
	pub := &fakePublisher{}
	proc := newTestProcessor(t, pub)

	if err := proc.Process(context.Background(), chatEvent("c1", "alice", false)); err != nil {
		t.Fatalf("process chat: %v", err)
	}
	if err := proc.Process(context.Background(), marketEvent("t1", false)); err != nil {
		t.Fatalf("process trade: %v", err)
	}

	if pub.count() != 2 {
		t.Fatalf("published %d messages, want 2", pub.count())
	}
	if pub.messages[0].topic != "chat-events" {
		t.Fatalf("chat topic = %q", pub.messages[0].topic)
	}
	if string(pub.messages[0].key) != "alice" {
		t.Fatalf("chat key = %q, want author", pub.messages[0].key)
	}
	if pub.messages[1].topic != "market-events" {
		t.Fatalf("market topic = %q", pub.messages[1].topic)
	}
	if string(pub.messages[1].key) != "BTCUSDT" {
		t.Fatalf("market key = %q, want symbol", pub.messages[1].key)
	}
}

func TestProcessorRemembersAnomalies(t *testing.T) {
	pub := &fakePublisher{}
	proc := newTestProcessor(t, pub)
	ctx := context.Background()

	_ = proc.Process(ctx, chatEvent("c1", "alice", false))
	_ = proc.Process(ctx, chatEvent("c2", "bob", true))
	_ = proc.Process(ctx, marketEvent("t1", true))

	all := proc.Recent(10, "")
	if len(all) != 2 {
		t.Fatalf("recent = %d events, want 2", len(all))
	}
	if all[0].EventID != "t1" {
		t.Fatalf("newest first: got %q", all[0].EventID)
	}

	chatOnly := proc.Recent(10, "chat")
	if len(chatOnly) != 1 || chatOnly[0].EventID != "c2" {
		t.Fatalf("chat filter returned %v", chatOnly)
	}
}

func TestProcessorRecentRingBounded(t *testing.T) {
	pub := &fakePublisher{}
	proc := newTestProcessor(t, pub)
	proc.recentCap = 3
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_ = proc.Process(ctx, chatEvent(id, "alice", true))
	}

	got := proc.Recent(10, "")
	if len(got) != 3 {
		t.Fatalf("ring holds %d, want 3", len(got))
	}
	if got[0].EventID != "e" || got[2].EventID != "c" {
		t.Fatalf("ring contents wrong: %q .. %q", got[0].EventID, got[2].EventID)
	}
}

func TestProcessorAlertsThrottled(t *testing.T) {
	pub := &fakePublisher{}
	sink := &fakeAlertSink{}
	proc := NewEventProcessor(pub, noopMetrics{}, testLogger(t), "chat-events", "market-events", WithAlertSink(sink))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_ = proc.Process(ctx, chatEvent("c", "alice", true))
	}

	// burst capacity is 5; the remaining 15 bursts inside the same instant
	// must be dropped by the limiter
	if sink.count() > 6 {
		t.Fatalf("alert sink got %d alerts, want throttled burst", sink.count())
	}
	if sink.count() < 5 {
		t.Fatalf("alert sink got %d alerts, want at least the burst", sink.count())
	}
}

func TestProcessorNilEvent(t *testing.T) {
	proc := newTestProcessor(t, &fakePublisher{})
	if err := proc.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil event")
	}
}
