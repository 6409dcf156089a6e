package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tx is an explicit unit of work. Every Begin must be paired with Commit or
// Rollback; Rollback after a successful Commit is a no-op, so
// `defer tx.Rollback()` is always safe.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a unit of work.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit makes every write in the unit visible.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback discards every write in the unit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return fmt.Errorf("rolling back transaction: %w", err)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Tx)(nil)
)
