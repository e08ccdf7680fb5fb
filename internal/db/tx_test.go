package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countSources(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM library_sources`).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count
}

func insertSource(tx *sql.Tx, name string) error {
	_, err := tx.Exec(`
		INSERT INTO library_sources (name, path, auto_advance, added_at) VALUES (?, ?, 1, 0)
	`, name, "/music/"+name)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := setupTestDB(t)

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return insertSource(tx, "crates")
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if got := countSources(t, db); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	testErr := errors.New("test error")

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if err := insertSource(tx, "crates"); err != nil {
			return err
		}
		return testErr
	})
	if !errors.Is(err, testErr) {
		t.Fatalf("WithTx should return the error: got %v, want %v", err, testErr)
	}
	if got := countSources(t, db); got != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", got)
	}
}

func TestWithTx_ConstraintRollsBackEarlierStatements(t *testing.T) {
	db := setupTestDB(t)

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		if err := insertSource(tx, "crates"); err != nil {
			return err
		}
		return insertSource(tx, "crates")
	})
	if err == nil {
		t.Fatal("duplicate source name should fail")
	}
	if got := countSources(t, db); got != 0 {
		t.Errorf("count = %d, want 0 (rolled back)", got)
	}
}

func TestWithTx_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTx(ctx, db, func(*sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("WithTx should fail with a canceled context")
	}
	if called {
		t.Error("callback should not run without a transaction")
	}
}
