// Package storage provides the SQLite persistence layer for obligations,
// alert history, business events and settings.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ops/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidAlert  = errors.New("invalid alert")
	ErrInvalidEvent  = errors.New("invalid business event")
	ErrInvalidStatus = errors.New("invalid contract status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateObligation validates a single obligation.
func validateObligation(o *model.Obligation) error {
	if o == nil {
		return fmt.Errorf("%w: obligation", ErrNilParameter)
	}
	return o.Validate()
}

func validateStatus(status model.ContractStatus) error {
	switch status {
	case model.StatusConfirmed, model.StatusPipeline, model.StatusCompleted, model.StatusCancelled:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}

// validateAlert validates an alert record before insert.
func validateAlert(a *model.AlertRecord) error {
	if a == nil {
		return fmt.Errorf("%w: alert", ErrNilParameter)
	}
	if a.UserID <= 0 {
		return fmt.Errorf("%w: missing user ID", ErrInvalidAlert)
	}
	if a.AlertType == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidAlert)
	}
	if a.AlertKey == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidAlert)
	}
	return nil
}

// validateEvent validates a business event.
func validateEvent(e *model.BusinessEvent) error {
	if e == nil {
		return fmt.Errorf("%w: event", ErrNilParameter)
	}
	if e.UserID <= 0 {
		return fmt.Errorf("%w: missing user ID", ErrInvalidEvent)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	if e.Tier == "" || e.Category == "" {
		return fmt.Errorf("%w: event must be classified before saving", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidEvent)
	}
	return nil
}
