package repository

import (
	"context"

	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/pkg/kafka"
)

// KafkaPublisher adapts the shared Kafka producer to the Publisher port.
type KafkaPublisher struct {
	producer *kafka.Producer
}

var _ drepo.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.producer.Publish(ctx, topic, key, value)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
