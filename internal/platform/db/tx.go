package db

import (
	"context"
	"database/sql"
	"fmt"
)

// WithReadOnlyTx runs fn inside a read-only transaction. Each statement in setup runs
// first, typically a SET LOCAL that must not outlive the transaction. The transaction is
// always rolled back since nothing is written.
func WithReadOnlyTx(ctx context.Context, conn *sql.DB, setup []string, fn func(*sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range setup {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: tx setup: %w", err)
		}
	}

	return fn(tx)
}
