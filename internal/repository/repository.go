// Package repository provides data access layer implementations.
//
// Every repository runs against a DBTX, so the same statements serve the
// connection pool and an open transaction. Services that need several
// statements to commit together bind repositories to a pgx.Tx with WithTx.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Common errors for repository operations.
var (
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrHoldingNotFound   = errors.New("holding not found")
	ErrMagicNotFound     = errors.New("magic not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrSubmissionMissing = errors.New("submission not found")

	// ErrNoCombatStats is returned for principals whose role carries no heart or attack power.
	ErrNoCombatStats = errors.New("principal has no combat stats")
	// ErrNoWallet is returned for principals whose role carries no money.
	ErrNoWallet = errors.New("principal has no wallet")
	// ErrConditionFailed is returned when a guarded update matched no row.
	ErrConditionFailed = errors.New("update precondition not met")
)
