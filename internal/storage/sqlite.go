package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

var _ service.Storage = (*SQLiteStorage)(nil)

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	// Open database
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) CreateObligation(ctx context.Context, obligation *model.Obligation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateObligation(obligation); err != nil {
		return err
	}
	return t.storage.createObligationTx(ctx, t.tx, obligation)
}

func (t *sqliteTransaction) UpdateObligation(ctx context.Context, obligation *model.Obligation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateObligation(obligation); err != nil {
		return err
	}
	return t.storage.updateObligationTx(ctx, t.tx, obligation)
}

func (t *sqliteTransaction) UpdateObligationStatus(ctx context.Context, id int64, status model.ContractStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.updateObligationStatusTx(ctx, t.tx, id, status)
}

func (t *sqliteTransaction) GetObligation(ctx context.Context, id int64) (*model.Obligation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getObligationTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) ListObligations(ctx context.Context, filter service.ObligationFilter) ([]model.Obligation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listObligationsTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) DeleteObligation(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteObligationTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetUserIDs(ctx context.Context) ([]int64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getUserIDsTx(ctx, t.tx)
}

func (t *sqliteTransaction) InsertAlert(ctx context.Context, alert *model.AlertRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}
	return t.storage.insertAlertTx(ctx, t.tx, alert)
}

func (t *sqliteTransaction) FindAlerts(ctx context.Context, userID int64, alertType model.AlertType, since time.Time) ([]model.AlertRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.findAlertsTx(ctx, t.tx, userID, alertType, since)
}

func (t *sqliteTransaction) LatestAlert(ctx context.Context, userID int64, types ...model.AlertType) (*model.AlertRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.latestAlertTx(ctx, t.tx, userID, types)
}

func (t *sqliteTransaction) RecordAlert(ctx context.Context, alert *model.AlertRecord, event *model.BusinessEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	if err := t.storage.insertAlertTx(ctx, t.tx, alert); err != nil {
		return err
	}
	return t.storage.saveEventTx(ctx, t.tx, event)
}

func (t *sqliteTransaction) SaveEvent(ctx context.Context, event *model.BusinessEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	return t.storage.saveEventTx(ctx, t.tx, event)
}

func (t *sqliteTransaction) ListEvents(ctx context.Context, filter service.EventFilter) ([]model.BusinessEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listEventsTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetSetting(ctx context.Context, key string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(key, "key"); err != nil {
		return "", err
	}
	return t.storage.getSettingTx(ctx, t.tx, key)
}

func (t *sqliteTransaction) SetSetting(ctx context.Context, key, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}
	return t.storage.setSettingTx(ctx, t.tx, key, value)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
