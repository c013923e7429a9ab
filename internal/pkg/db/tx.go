package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/apperr"
)

// SQLSTATE codes inspected by the transaction runner and repositories.
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeUniqueViolation      = "23505"
	CodeCheckViolation       = "23514"
	CodeForeignKeyViolation  = "23503"
)

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Tx.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Retry controls how transactions are retried after serialization or deadlock failures.
type Retry struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
}

// DefaultRetry retries up to 8 times starting at 75ms and doubling up to 1.2s.
var DefaultRetry = Retry{MaxAttempts: 8, Delay: 75 * time.Millisecond, MaxDelay: 1200 * time.Millisecond}

// Runner executes functions inside database transactions.
type Runner struct {
	db    TxBeginner
	opts  pgx.TxOptions
	retry Retry
}

// NewRunner creates a Runner using read-committed isolation.
func NewRunner(db TxBeginner, retry Retry) *Runner {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = DefaultRetry.MaxDelay
	}
	return &Runner{
		db:    db,
		opts:  pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		retry: retry,
	}
}

// InTx runs fn in a transaction and commits it if fn returns nil.
// The transaction is rolled back on error, panic or context cancellation, so a
// failed call never leaves partial effects. Serialization failures and
// deadlocks are retried with backoff; when attempts run out a Conflict
// domain error is returned. fn must be safe to run more than once.
func (r *Runner) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	delay := r.retry.Delay
	var lastErr error

	for attempt := 0; attempt < r.retry.MaxAttempts; attempt++ {
		err := r.once(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Msg("Transaction conflict, retrying")

		if attempt == r.retry.MaxAttempts-1 {
			break
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
		delay = min(delay*2, r.retry.MaxDelay)
	}

	return apperr.Wrap(lastErr, apperr.KindConflict, apperr.ReasonConcurrentUpdate,
		"transaction kept conflicting with concurrent updates")
}

func (r *Runner) once(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// IsRetryable reports whether err is a serialization failure or deadlock.
func IsRetryable(err error) bool {
	code := SQLState(err)
	return code == CodeSerializationFailure || code == CodeDeadlockDetected
}

// SQLState returns the PostgreSQL error code carried by err, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
