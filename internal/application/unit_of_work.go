package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/wayfarerhq/impact/internal/domain"
)

// UnitOfWork defines a transaction boundary for use cases.
// implementations live in infrastructure, application only sees this interface.
// this keeps database transaction details out of domain and application logic.
type UnitOfWork interface {
	// Begin starts a new transaction and returns a context scoped to it.
	// all repository operations using this context will participate in the transaction.
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the current transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the current transaction.
	// safe to call multiple times or after commit (will be a no-op).
	Rollback(ctx context.Context) error
}

// RunInTransaction executes a function within a transaction.
// automatically commits on success, rolls back on error.
func RunInTransaction(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) error {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	// always try to rollback on exit - it's a no-op if already committed
	defer uow.Rollback(txCtx)

	if err := fn(txCtx); err != nil {
		return err
	}

	return uow.Commit(txCtx)
}

// ErrRetriesExhausted is returned when an optimistically-retried
// transaction keeps losing the race. surfaced to callers as an internal
// failure, never as a partial write.
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// RunWithConflictRetry re-runs the whole transaction body against fresh
// state while it loses optimistic-concurrency races. every attempt is a
// full read-compute-write; there is never a partial merge.
func RunWithConflictRetry(ctx context.Context, uow UnitOfWork, attempts int, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = RunInTransaction(ctx, uow, fn)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempts, err)
}
