package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"

	maxTxAttempts = 3
	retryBackoff  = 25 * time.Millisecond
)

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
// Callers that read-then-write aggregate totals lock the parent row with SELECT ... FOR UPDATE
// inside fn. Serialization failures and deadlocks roll back and rerun fn, so fn must only
// assign captured state, never accumulate it.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return retryTx(ctx, maxTxAttempts, retryBackoff, func(ctx context.Context) error {
		return runTx(ctx, pool, fn)
	})
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// IsRetryable reports whether err is a transient conflict that a fresh
// transaction can resolve.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
	}
	return false
}

func retryTx(ctx context.Context, attempts int, backoff time.Duration, attempt func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = attempt(ctx); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff * time.Duration(i)):
		}
	}
	return fmt.Errorf("platform/db: gave up after %d attempts: %w", attempts, err)
}
