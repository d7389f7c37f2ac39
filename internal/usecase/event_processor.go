package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/internal/service/ratelimit"
	"StreamPulse/pkg/logger"
)

const defaultRecentAnomalies = 256

// alert throttle: burst of 5, refill 1/s per (source, anomaly type) pair.
const (
	alertBurst  = 5.0
	alertRefill = 1.0
)

// EventProcessor is the single egress point for normalized events. It
// serializes each event, routes it to the configured backend and keeps a
// small in-memory ring of recent anomalies for the status API.
type EventProcessor struct {
	publisher drepo.Publisher
	store     drepo.EventStore
	alerts    drepo.AlertSink
	limiter   *ratelimit.Limiter
	metrics   drepo.Metrics
	lgr       *logger.Logger

	backend     string
	chatTopic   string
	marketTopic string

	mu        sync.Mutex
	recent    []*models.NormalizedEvent
	recentCap int
}

type ProcessorOption func(*EventProcessor)

// WithAlertSink enables anomaly alert publishing through sink, throttled
// per source and anomaly type.
func WithAlertSink(sink drepo.AlertSink) ProcessorOption {
	return func(p *EventProcessor) {
		p.alerts = sink
		p.limiter = ratelimit.New()
	}
}

// WithEventStore switches the backend from Kafka to direct storage writes.
func WithEventStore(store drepo.EventStore) ProcessorOption {
	return func(p *EventProcessor) {
		p.store = store
		p.backend = "clickhouse"
	}
}

func NewEventProcessor(publisher drepo.Publisher, metrics drepo.Metrics, lgr *logger.Logger, chatTopic, marketTopic string, opts ...ProcessorOption) *EventProcessor {
	p := &EventProcessor{
		publisher:   publisher,
		metrics:     metrics,
		lgr:         lgr,
		backend:     "kafka",
		chatTopic:   chatTopic,
		marketTopic: marketTopic,
		recentCap:   defaultRecentAnomalies,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process serializes ev and hands it to the configured backend. Anomalous
// events are additionally remembered and, when an alert sink is configured,
// pushed as alerts.
func (p *EventProcessor) Process(ctx context.Context, ev *models.NormalizedEvent) error {
	if ev == nil {
		return fmt.Errorf("process: nil event")
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.metrics.RecordError("serialize")
		return fmt.Errorf("serialize event %s: %w", ev.EventID, err)
	}

	start := time.Now()
	switch p.backend {
	case "clickhouse":
		err = p.store.Store(ctx, ev)
	default:
		err = p.publisher.Publish(ctx, p.topicFor(ev.Source), partitionKey(ev), body)
	}
	p.metrics.RecordLatency("publish", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordError("publish")
		return fmt.Errorf("publish event %s: %w", ev.EventID, err)
	}

	p.metrics.RecordEvent(string(ev.Source), ev.Kind)
	if ev.IsAnomaly() {
		p.metrics.RecordAnomaly(string(ev.Source), ev.Enrichments.Anomaly.Type)
		p.remember(ev)
		p.alert(ctx, ev)
	}
	return nil
}

func (p *EventProcessor) topicFor(src models.Source) string {
	if src == models.SourceMarket {
		return p.marketTopic
	}
	return p.chatTopic
}

// partitionKey keeps events for one author or symbol in order on the bus.
func partitionKey(ev *models.NormalizedEvent) []byte {
	switch payload := ev.Payload.(type) {
	case models.ChatPayload:
		return []byte(payload.Author)
	case *models.ChatPayload:
		return []byte(payload.Author)
	case models.TradePayload:
		return []byte(payload.Symbol)
	case *models.TradePayload:
		return []byte(payload.Symbol)
	}
	return []byte(ev.EventID)
}

func (p *EventProcessor) remember(ev *models.NormalizedEvent) {
	p.mu.Lock()
	p.recent = append(p.recent, ev)
	if len(p.recent) > p.recentCap {
		p.recent = p.recent[len(p.recent)-p.recentCap:]
	}
	p.mu.Unlock()
}

// Recent returns up to limit most recent anomalous events, newest first.
// An empty source matches both feeds.
func (p *EventProcessor) Recent(limit int, source string) []*models.NormalizedEvent {
	if limit <= 0 {
		limit = defaultRecentAnomalies
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*models.NormalizedEvent, 0, limit)
	for i := len(p.recent) - 1; i >= 0 && len(out) < limit; i-- {
		ev := p.recent[i]
		if source != "" && string(ev.Source) != source {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (p *EventProcessor) alert(ctx context.Context, ev *models.NormalizedEvent) {
	if p.alerts == nil {
		return
	}
	anomaly := ev.Enrichments.Anomaly
	key := "alerts:" + string(ev.Source) + ":" + anomaly.Type
	if !p.limiter.Allow(key, alertBurst, alertRefill) {
		p.lgr.Debug("alert throttled",
			logger.String("source", string(ev.Source)),
			logger.String("type", anomaly.Type))
		return
	}

	payload := map[string]interface{}{
		"event_id":  ev.EventID,
		"source":    ev.Source,
		"type":      anomaly.Type,
		"severity":  anomaly.Severity,
		"reason":    anomaly.Reason,
		"timestamp": ev.Timestamp,
		"details":   anomaly.Details,
	}
	if err := p.alerts.PublishMessage(ctx, "anomaly.alert", payload); err != nil {
		p.metrics.RecordError("alert")
		p.lgr.Warn("alert publish failed", logger.Error(err))
	}
}

func (p *EventProcessor) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	if p.publisher != nil {
		return p.publisher.Close()
	}
	return nil
}
