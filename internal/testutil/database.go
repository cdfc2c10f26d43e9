// Package testutil provides test helpers for spice-ops: an isolated,
// migrated database per test and fluent builders for contracts and expenses.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/Veraticus/spice-ops/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	acme := db.Seed(testutil.Contract(t, "Acme", 5000).Build())[0]
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// Seed persists each obligation, filling in its ID, and returns them.
func (db *TestDB) Seed(obligations ...*model.Obligation) []*model.Obligation {
	db.t.Helper()

	ctx := context.Background()
	for _, o := range obligations {
		if err := db.Storage.CreateObligation(ctx, o); err != nil {
			db.t.Fatalf("failed to seed obligation %q: %v", o.Name, err)
		}
	}
	return obligations
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
