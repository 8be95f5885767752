// Package publisher provides the fail-closed recorder services use to write
// audit entries.
//
// Recording is synchronous: the caller blocks until the entry is persisted,
// and if persistence fails the calling operation MUST fail. A mutation that
// cannot be audited is not accepted — this is what lets the trail stand in
// for an immutable transaction history.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "legado/pkg/platform/audit"
)

// Recorder writes entries through an audit.Store with fail-closed semantics.
type Recorder struct {
	store  audit.Store
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock sets the time source for entries, for testability.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New creates a Recorder. The store should be outbox-backed in production so
// entries reach the audit topic exactly as committed.
func New(store audit.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists the entry, stamping the timestamp if unset. Returns an
// error when persistence fails; the caller must abort its operation.
func (r *Recorder) Record(ctx context.Context, entry audit.Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.clock().UTC()
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	if err := r.store.Append(ctx, entry); err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "audit append failed, failing operation",
				"operation", string(entry.Operation),
				"entity_key", entry.EntityKey,
				"error", err.Error(),
			)
		}
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}
