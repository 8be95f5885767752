package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "legado/pkg/domain-errors"
)

// Runner scopes a mutation so its reads, writes, and audit append commit as
// one unit. Services validate and mutate entirely inside RunInTx.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Exclusive serializes every mutation behind one mutex. It backs the
// in-memory deployment, where it reproduces the reference platform's strict
// total order over state-mutating calls. Memory store mutations after
// validation are infallible, so no rollback is needed.
type Exclusive struct {
	mu sync.Mutex
}

func NewExclusive() *Exclusive { return &Exclusive{} }

func (e *Exclusive) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(ctx)
}

const defaultTxTimeout = 5 * time.Second

// SQL runs mutations inside a database transaction carried in context, so
// every store touched by fn joins the same commit. Row locks on the entities
// read with FOR UPDATE provide per-entity exclusivity.
type SQL struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func (r *SQL) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbtx.Rollback()
	}()

	if err := fn(WithTx(ctx, dbtx)); err != nil {
		return err
	}

	return dbtx.Commit()
}
