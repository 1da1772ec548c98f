package repository

import (
	"context"

	"github.com/segmentio/kafka-go"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	pkgkafka "MarketRegime/pkg/kafka"
)

// batchWriter is the part of pkg/kafka.Producer the publisher needs.
type batchWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher emits signal events keyed by symbol, so every event for a
// stock lands on the same partition in order.
type KafkaPublisher struct {
	producer batchWriter
	topic    string
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSignal(ctx context.Context, ev models.SignalEvent) error {
	return p.PublishSignals(ctx, []models.SignalEvent{ev})
}

func (p *KafkaPublisher) PublishSignals(ctx context.Context, evs []models.SignalEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i, ev := range evs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(ev.Symbol),
			Value: ev,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(ev.RunID)},
				{Key: "type", Value: []byte("signal")},
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
