package repository

import (
	"context"

	"StreamPulse/internal/domain/models"
)

// ChatStream is a connection to a chat source. Read delivers parsed messages
// until the connection drops; the adapter owns reconnect policy.
type ChatStream interface {
	Connect(ctx context.Context) error
	Join(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.ChatMessage, <-chan error)
	Close() error
	IsConnected() bool
}

// MarketStream is a connection to a market trade source.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Close() error
	IsConnected() bool
}

// Publisher sends enriched event bytes to a message-bus topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

// EventStore persists enriched events directly, bypassing the bus.
type EventStore interface {
	Store(ctx context.Context, ev *models.NormalizedEvent) error
	Health(ctx context.Context) error
	Close() error
}

// ToxicityClassifier scores a text on the six fixed labels. It never fails
// outward; internal failure degrades to the all-zero default.
type ToxicityClassifier interface {
	Predict(ctx context.Context, text string) models.ToxicityScores
}

// AlertSink receives out-of-band notifications for detected anomalies.
type AlertSink interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Metrics records operational counters.
type Metrics interface {
	RecordEvent(source, kind string)
	RecordAnomaly(source, anomalyType string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
