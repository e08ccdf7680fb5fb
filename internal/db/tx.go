package db

import (
	"context"
	"database/sql"
)

// WithTx runs fn inside a transaction, committing when fn succeeds and
// rolling back otherwise. The callback must only use tx: the catalog holds
// a single connection.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
