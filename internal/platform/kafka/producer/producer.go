// Package producer wraps franz-go for the audit pipeline's publishing side.
package producer

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes records synchronously. The outbox worker needs the ack
// before it can mark entries published, so async batching buys nothing here.
type Producer struct {
	client *kgo.Client
}

// New connects to the brokers and ensures the given topics exist.
func New(ctx context.Context, brokers []string, topics ...string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if len(topics) > 0 {
		adm := kadm.NewClient(client)
		resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("ensure topics: %w", err)
		}
		for _, res := range resp.Sorted() {
			if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
				client.Close()
				return nil, fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
			}
		}
	}

	return &Producer{client: client}, nil
}

// Produce publishes one record and waits for the broker ack.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}
