// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
)

// ObligationFilter narrows obligation queries.
type ObligationFilter struct {
	Kind       model.ObligationKind
	UserID     int64
	ActiveOnly bool
}

// EventFilter narrows business event queries.
type EventFilter struct {
	Since   *time.Time
	MinTier model.Tier
	UserID  int64
	Limit   int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Obligation operations
	CreateObligation(ctx context.Context, obligation *model.Obligation) error
	UpdateObligation(ctx context.Context, obligation *model.Obligation) error
	UpdateObligationStatus(ctx context.Context, id int64, status model.ContractStatus) error
	GetObligation(ctx context.Context, id int64) (*model.Obligation, error)
	ListObligations(ctx context.Context, filter ObligationFilter) ([]model.Obligation, error)
	DeleteObligation(ctx context.Context, id int64) error
	GetUserIDs(ctx context.Context) ([]int64, error)

	// Alert history
	InsertAlert(ctx context.Context, alert *model.AlertRecord) error
	FindAlerts(ctx context.Context, userID int64, alertType model.AlertType, since time.Time) ([]model.AlertRecord, error)
	LatestAlert(ctx context.Context, userID int64, types ...model.AlertType) (*model.AlertRecord, error)
	RecordAlert(ctx context.Context, alert *model.AlertRecord, event *model.BusinessEvent) error

	// Business events
	SaveEvent(ctx context.Context, event *model.BusinessEvent) error
	ListEvents(ctx context.Context, filter EventFilter) ([]model.BusinessEvent, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// Backoff selects how retry delays grow between attempts.
type Backoff int

const (
	// BackoffExponential multiplies the delay by Multiplier after each attempt.
	BackoffExponential Backoff = iota
	// BackoffLinear grows the delay by InitialDelay after each attempt.
	BackoffLinear
)

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Backoff      Backoff
}
