package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"StreamPulse/internal/domain/models"
	"StreamPulse/internal/services/analytics"
	"StreamPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	fail     bool
}

type publishedMessage struct {
	topic string
	key   []byte
	value []byte
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("broker down")
	}
	p.messages = append(p.messages, publishedMessage{topic: topic, key: key, value: value})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func (p *fakePublisher) last() publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[len(p.messages)-1]
}

type noopMetrics struct{}

func (noopMetrics) RecordEvent(string, string)      {}
func (noopMetrics) RecordAnomaly(string, string)    {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordLatency(string, float64)   {}

type zeroClassifier struct{}

func (zeroClassifier) Predict(context.Context, string) models.ToxicityScores {
	return models.ToxicityScores{}
}

// fakeChatStream fails its first failConnects Connect calls, then delivers
// the configured messages and blocks until cancelled.
type fakeChatStream struct {
	mu           sync.Mutex
	failConnects int
	connects     int
	joined       bool
	connected    bool
	msgs         []*models.ChatMessage
}

func (s *fakeChatStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connects <= s.failConnects {
		return fmt.Errorf("dial refused")
	}
	s.connected = true
	return nil
}

func (s *fakeChatStream) Join(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return fmt.Errorf("not connected")
	}
	s.joined = true
	return nil
}

func (s *fakeChatStream) Read(ctx context.Context) (<-chan *models.ChatMessage, <-chan error) {
	out := make(chan *models.ChatMessage)
	errs := make(chan error, 1)
	go func() {
		for _, m := range s.msgs {
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, errs
}

func (s *fakeChatStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *fakeChatStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeChatStream) connectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

type fakeMarketStream struct {
	mu           sync.Mutex
	failConnects int
	connects     int
	connected    bool
	trades       []*models.Trade
}

func (s *fakeMarketStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connects <= s.failConnects {
		return fmt.Errorf("dial refused")
	}
	s.connected = true
	return nil
}

func (s *fakeMarketStream) Subscribe(context.Context) error { return nil }

func (s *fakeMarketStream) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	out := make(chan *models.Trade)
	errs := make(chan error, 1)
	go func() {
		for _, tr := range s.trades {
			select {
			case out <- tr:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, errs
}

func (s *fakeMarketStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *fakeMarketStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func newTestProcessor(t *testing.T, pub *fakePublisher) *EventProcessor {
	t.Helper()
	return NewEventProcessor(pub, noopMetrics{}, testLogger(t), "chat-events", "market-events")
}

func TestChatAdapterRecoversFromFirstConnectFailure(t *testing.T) {
	stream := &fakeChatStream{
		failConnects: 1,
		msgs: []*models.ChatMessage{
			{ID: "m1", Author: "alice", Channel: "#general", Text: "hello"},
		},
	}
	sim := &fakeChatStream{}
	pub := &fakePublisher{}
	detector := analytics.NewChatAnomalyDetector(analytics.ChatAnomalyConfig{})

	adapter := NewChatAdapter(stream, sim, zeroClassifier{}, detector, newTestProcessor(t, pub), noopMetrics{}, testLogger(t),
		ChatAdapterConfig{ConnectAttempts: 3, ReconnectDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Run(ctx)

	waitFor(t, time.Second, func() bool { return pub.count() >= 1 })

	if got := adapter.State(); got != StateConsuming {
		t.Fatalf("state = %s, want consuming", got)
	}
	if stream.connectCount() != 2 {
		t.Fatalf("connect count = %d, want 2", stream.connectCount())
	}
	if sim.connectCount() != 0 {
		t.Fatalf("simulator should not have been started")
	}
}

func TestChatAdapterFallsBackToSimulator(t *testing.T) {
	stream := &fakeChatStream{failConnects: 100}
	sim := &fakeChatStream{
		msgs: []*models.ChatMessage{
			{ID: "s1", Author: "sim_user", Channel: "#general", Text: "generated"},
		},
	}
	pub := &fakePublisher{}
	detector := analytics.NewChatAnomalyDetector(analytics.ChatAnomalyConfig{})

	adapter := NewChatAdapter(stream, sim, zeroClassifier{}, detector, newTestProcessor(t, pub), noopMetrics{}, testLogger(t),
		ChatAdapterConfig{ConnectAttempts: 2, ReconnectDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Run(ctx)

	waitFor(t, time.Second, func() bool { return pub.count() >= 1 })

	if got := adapter.State(); got != StateSimulating {
		t.Fatalf("state = %s, want fallback_simulating", got)
	}
	if stream.connectCount() != 2 {
		t.Fatalf("connect count = %d, want 2", stream.connectCount())
	}

	var ev models.NormalizedEvent
	if err := json.Unmarshal(pub.last().value, &ev); err != nil {
		t.Fatalf("unmarshal published event: %v", err)
	}
	if ev.Source != models.SourceChat || ev.Kind != "chat" {
		t.Fatalf("unexpected envelope: source=%s kind=%s", ev.Source, ev.Kind)
	}
	if ev.Enrichments.Anomaly == nil {
		t.Fatalf("published event missing anomaly enrichment")
	}
}

func TestChatAdapterSurvivesPublishFailure(t *testing.T) {
	stream := &fakeChatStream{
		msgs: []*models.ChatMessage{
			{ID: "m1", Author: "alice", Channel: "#general", Text: "one"},
			{ID: "m2", Author: "bob", Channel: "#general", Text: "two"},
		},
	}
	pub := &fakePublisher{fail: true}
	detector := analytics.NewChatAnomalyDetector(analytics.ChatAnomalyConfig{})

	adapter := NewChatAdapter(stream, &fakeChatStream{}, zeroClassifier{}, detector, newTestProcessor(t, pub), noopMetrics{}, testLogger(t),
		ChatAdapterConfig{ConnectAttempts: 1, ReconnectDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Run(ctx)

	// both messages are attempted even though every publish fails
	waitFor(t, time.Second, func() bool { return adapter.State() == StateConsuming })
	time.Sleep(50 * time.Millisecond)

	if got := adapter.State(); got != StateConsuming {
		t.Fatalf("state = %s, want consuming after publish failures", got)
	}
	if adapter.Status().EventsOut != 0 {
		t.Fatalf("failed publishes must not count as events out")
	}
}

func TestMarketAdapterNormalizesTrades(t *testing.T) {
	stream := &fakeMarketStream{
		trades: []*models.Trade{
			{Symbol: "BTCUSDT", Price: 65000.0, Quantity: 0.5, TradeTime: 1700000000000},
		},
	}
	pub := &fakePublisher{}
	detector := analytics.NewMarketAnomalyDetector(0, 0)

	adapter := NewMarketAdapter(stream, &fakeMarketStream{}, detector, newTestProcessor(t, pub), noopMetrics{}, testLogger(t),
		MarketAdapterConfig{ConnectAttempts: 1, ReconnectDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Run(ctx)

	waitFor(t, time.Second, func() bool { return pub.count() >= 1 })

	msg := pub.last()
	if msg.topic != "market-events" {
		t.Fatalf("topic = %q, want market-events", msg.topic)
	}
	if string(msg.key) != "BTCUSDT" {
		t.Fatalf("partition key = %q, want symbol", msg.key)
	}

	var ev models.NormalizedEvent
	if err := json.Unmarshal(msg.value, &ev); err != nil {
		t.Fatalf("unmarshal published event: %v", err)
	}
	if ev.Source != models.SourceMarket || ev.Kind != "trade" {
		t.Fatalf("unexpected envelope: source=%s kind=%s", ev.Source, ev.Kind)
	}
	if ev.EventID != "1700000000000" {
		t.Fatalf("event id = %q, want trade time", ev.EventID)
	}
	if ev.Timestamp <= 0 {
		t.Fatalf("ingestion timestamp not assigned")
	}
	if ev.Enrichments.Anomaly == nil || ev.Enrichments.Anomaly.IsAnomaly {
		t.Fatalf("first trade should carry a non-anomalous result")
	}

	payload, ok := ev.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("payload type %T", ev.Payload)
	}
	if payload["symbol"] != "BTCUSDT" || payload["price"] != 65000.0 {
		t.Fatalf("payload = %v", payload)
	}
}

func TestMarketAdapterFallsBackAfterExhaustedRetries(t *testing.T) {
	stream := &fakeMarketStream{failConnects: 100}
	sim := &fakeMarketStream{
		trades: []*models.Trade{
			{Symbol: "BTCUSDT", Price: 64900.0, Quantity: 0.1, TradeTime: 1700000000001},
		},
	}
	pub := &fakePublisher{}

	adapter := NewMarketAdapter(stream, sim, analytics.NewMarketAnomalyDetector(0, 0), newTestProcessor(t, pub), noopMetrics{}, testLogger(t),
		MarketAdapterConfig{ConnectAttempts: 2, ReconnectDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Run(ctx)

	waitFor(t, time.Second, func() bool { return pub.count() >= 1 })

	if got := adapter.State(); got != StateSimulating {
		t.Fatalf("state = %s, want fallback_simulating", got)
	}
}
