package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/pkg/clickhouse"
)

// EventStoreSchema creates the enriched events table. Applied once at startup
// when the clickhouse backend is selected.
var EventStoreSchema = []string{
	`CREATE TABLE IF NOT EXISTS stream_events (
		ts           Float64,
		source       LowCardinality(String),
		kind         LowCardinality(String),
		event_id     String,
		payload      String,
		is_anomaly   UInt8,
		anomaly_type LowCardinality(String),
		severity     Float64
	) ENGINE = MergeTree()
	ORDER BY (source, ts)`,
}

// ClickHouseEventStore writes enriched events straight to ClickHouse,
// used when the deployment runs without a Kafka cluster.
type ClickHouseEventStore struct {
	client *clickhouse.Client
}

var _ drepo.EventStore = (*ClickHouseEventStore)(nil)

func NewClickHouseEventStore(client *clickhouse.Client) *ClickHouseEventStore {
	return &ClickHouseEventStore{client: client}
}

func (s *ClickHouseEventStore) Store(ctx context.Context, ev *models.NormalizedEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var isAnomaly uint8
	var anomalyType string
	var severity float64
	if a := ev.Enrichments.Anomaly; a != nil {
		if a.IsAnomaly {
			isAnomaly = 1
		}
		anomalyType = a.Type
		severity = a.Severity
	}

	const stmt = `INSERT INTO stream_events
		(ts, source, kind, event_id, payload, is_anomaly, anomaly_type, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.client.DB().ExecContext(ctx, stmt,
		ev.Timestamp, string(ev.Source), ev.Kind, ev.EventID,
		string(payload), isAnomaly, anomalyType, severity); err != nil {
		return fmt.Errorf("insert event %s: %w", ev.EventID, err)
	}
	return nil
}

func (s *ClickHouseEventStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseEventStore) Close() error {
	return s.client.Close()
}
