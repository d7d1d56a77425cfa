package eventbus

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisherConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
}

// KafkaPublisher delivers outbox envelopes to one topic. The message key is
// the aggregate id, so all events of one aggregate land on one partition and
// keep their relative order downstream.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg KafkaPublisherConfig) *KafkaPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: int(kafka.RequireAll),
		Async:        false,
	})
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
