// Package worker drains the audit outbox to the audit topic.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	audit "legado/pkg/platform/audit"
)

// Producer is the publishing side the worker needs; satisfied by the kafka
// producer.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// Outbox combines reading staged entries with marking them published.
type Outbox interface {
	ListUnpublished(ctx context.Context, limit int) ([]audit.Entry, error)
	MarkPublished(ctx context.Context, seqs []uint64) error
}

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Worker polls the outbox and publishes entries in sequence order. Keyed by
// entity so a partition preserves per-entity ordering; consumers dedupe on
// seq since publishing is at-least-once.
type Worker struct {
	outbox   Outbox
	producer Producer
	topic    string
	logger   *slog.Logger

	batchSize    int
	pollInterval time.Duration
}

// Option configures the Worker.
type Option func(*Worker)

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

func New(outbox Outbox, producer Producer, topic string, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		outbox:       outbox,
		producer:     producer,
		topic:        topic,
		logger:       logger,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the outbox until ctx is cancelled. Publish failures are logged
// and retried on the next tick rather than crashing the process.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err.Error())
			}
		}
	}
}

// Drain publishes one batch of unpublished entries. Exported so tests and the
// shutdown path can flush without the ticker.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		entries, err := w.outbox.ListUnpublished(ctx, w.batchSize)
		if err != nil {
			return fmt.Errorf("list unpublished: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		seqs := make([]uint64, 0, len(entries))
		for _, entry := range entries {
			value, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal entry %d: %w", entry.Seq, err)
			}
			if err := w.producer.Produce(ctx, w.topic, []byte(entry.EntityKey), value); err != nil {
				// Mark what made it out; the rest retries next tick.
				if markErr := w.outbox.MarkPublished(ctx, seqs); markErr != nil {
					return fmt.Errorf("mark published after partial batch: %w", markErr)
				}
				return fmt.Errorf("produce entry %d: %w", entry.Seq, err)
			}
			seqs = append(seqs, entry.Seq)
		}

		if err := w.outbox.MarkPublished(ctx, seqs); err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		if len(entries) < w.batchSize {
			return nil
		}
	}
}
