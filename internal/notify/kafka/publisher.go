// Package kafka ships notification events to a Kafka topic. Events are keyed
// by claim/transaction id so every transition of one claim lands in order on
// one partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"velvet/internal/notify"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "claim-events"

// Publisher implements notify.Emitter on top of a franz-go producer.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects a producer to the given brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Emit produces the event synchronously. Callers that must not block ride
// behind notify.Worker.
func (p *Publisher) Emit(ctx context.Context, event notify.Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}
	key := event.ClaimID
	if key == "" {
		key = event.TransactionID
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notification event: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (p *Publisher) Close() {
	p.client.Close()
}
