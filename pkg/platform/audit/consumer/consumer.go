// Package consumer decodes audit entries for external observers
// (reconciliation jobs, SIEM forwarders).
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"legado/internal/platform/kafka/consumer"
	audit "legado/pkg/platform/audit"
)

// EntryHandler receives decoded audit entries.
type EntryHandler interface {
	HandleEntry(ctx context.Context, entry audit.Entry) error
}

// EntryHandlerFunc adapts a function to EntryHandler.
type EntryHandlerFunc func(ctx context.Context, entry audit.Entry) error

func (f EntryHandlerFunc) HandleEntry(ctx context.Context, entry audit.Entry) error {
	return f(ctx, entry)
}

// Decoder turns raw topic messages into audit entries and dispatches them,
// deduplicating on sequence number since the outbox publishes at-least-once.
type Decoder struct {
	handler EntryHandler
	logger  *slog.Logger
	lastSeq uint64
}

func NewDecoder(handler EntryHandler, logger *slog.Logger) *Decoder {
	return &Decoder{handler: handler, logger: logger}
}

// Handle implements consumer.Handler.
func (d *Decoder) Handle(ctx context.Context, msg *consumer.Message) error {
	var entry audit.Entry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		// Poison messages are logged and skipped; blocking the partition on
		// one bad record would stall every observer behind it.
		d.logger.Error("undecodable audit entry, skipping",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err.Error(),
		)
		return nil
	}
	if entry.Seq != 0 && entry.Seq <= d.lastSeq {
		return nil
	}
	if err := d.handler.HandleEntry(ctx, entry); err != nil {
		return fmt.Errorf("handle audit entry %d: %w", entry.Seq, err)
	}
	if entry.Seq > d.lastSeq {
		d.lastSeq = entry.Seq
	}
	return nil
}
