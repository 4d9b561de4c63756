package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/logging"
)

// ErrRetry may be returned (or wrapped) by a transaction body to request that the
// whole transaction is re-run, e.g. after losing an insert race on a unique key.
var ErrRetry = errors.New("retry transaction")

const (
	txMaxAttempts = 5
	txBaseBackoff = 20 * time.Millisecond
	txMaxBackoff  = time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// TxOptions controls RunInTx.
type TxOptions struct {
	IsoLevel    pgx.TxIsoLevel
	MaxAttempts int
}

// RunInTx executes fn inside a transaction on a single pooled connection,
// retrying the whole body on transient conflicts with exponential backoff.
func RunInTx(ctx context.Context, pool Pool, opts TxOptions, fn func(tx pgx.Tx) error) error {
	if opts.IsoLevel == "" {
		opts.IsoLevel = pgx.Serializable
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = txMaxAttempts
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
			logging.FromContext(ctx).Debug("retrying transaction", "attempt", attempt+1, "maxAttempts", opts.MaxAttempts, "error", lastErr)
		}

		tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: opts.IsoLevel})
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback(ctx)
			if ShouldRetry(err) {
				lastErr = err
				continue
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			_ = tx.Rollback(ctx)
			if ShouldRetry(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("commit transaction: %w", err)
		}

		return nil
	}

	return fmt.Errorf("transaction exceeded max attempts (%d): %w", opts.MaxAttempts, lastErr)
}

// ShouldRetry reports whether err is a transient transaction failure.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRetry) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := retryablePgErrorCodes[pgErr.Code]; ok {
			return true
		}
	}

	return false
}

func backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * txBaseBackoff
	if d > txMaxBackoff {
		d = txMaxBackoff
	}
	return d
}

func sleepBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
