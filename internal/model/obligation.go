// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ObligationKind distinguishes income contracts from expenses.
type ObligationKind string

const (
	// KindContract is a contract that brings income in.
	KindContract ObligationKind = "contract"
	// KindExpense is money going out.
	KindExpense ObligationKind = "expense"
)

// ContractStatus tracks where a contract is in its lifecycle.
type ContractStatus string

// Contract status constants.
const (
	StatusConfirmed ContractStatus = "confirmed"
	StatusPipeline  ContractStatus = "pipeline"
	StatusCompleted ContractStatus = "completed"
	StatusCancelled ContractStatus = "cancelled"
)

// DefaultProbability is the win probability assumed for contracts that don't set one.
const DefaultProbability = 100

// ErrInvalidObligation is returned when an obligation fails validation.
var ErrInvalidObligation = errors.New("invalid obligation")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Obligation is the unified shape of a contract (income) or an expense.
// It is a read-only snapshot as far as the cashflow engine is concerned.
type Obligation struct {
	StartDate   time.Time       `validate:"required"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	EndDate     *time.Time
	Amount      decimal.Decimal
	Name        string         `validate:"required,max=255"`
	Kind        ObligationKind `validate:"required,oneof=contract expense"`
	Frequency   Frequency      `validate:"required,oneof=one_time monthly quarterly annual"`
	Status      ContractStatus `validate:"omitempty,oneof=confirmed pipeline completed cancelled"`
	ID          int64
	UserID      int64 `validate:"gt=0"`
	Probability int   `validate:"gte=0,lte=100"`
	Active      bool
}

// NewContract builds a validated income contract.
func NewContract(userID int64, name string, amount decimal.Decimal, freq Frequency, status ContractStatus, start time.Time, end *time.Time) (*Obligation, error) {
	o := &Obligation{
		UserID:      userID,
		Kind:        KindContract,
		Name:        strings.TrimSpace(name),
		Amount:      amount,
		Frequency:   freq,
		Status:      status,
		StartDate:   start,
		EndDate:     end,
		Probability: DefaultProbability,
		Active:      true,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// NewExpense builds a validated expense.
func NewExpense(userID int64, name string, amount decimal.Decimal, freq Frequency, start time.Time, end *time.Time) (*Obligation, error) {
	o := &Obligation{
		UserID:      userID,
		Kind:        KindExpense,
		Name:        strings.TrimSpace(name),
		Amount:      amount,
		Frequency:   freq,
		StartDate:   start,
		EndDate:     end,
		Probability: DefaultProbability,
		Active:      true,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate rejects malformed obligations at the boundary so the cashflow
// math never has to handle them.
func (o *Obligation) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidObligation, err)
	}
	if o.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative, got %s", ErrInvalidObligation, o.Amount)
	}
	if o.EndDate != nil && o.EndDate.Before(o.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidObligation, o.EndDate.Format(time.DateOnly), o.StartDate.Format(time.DateOnly))
	}
	switch o.Kind {
	case KindContract:
		if o.Status == "" {
			return fmt.Errorf("%w: contract status is required", ErrInvalidObligation)
		}
	case KindExpense:
		if o.Status != "" {
			return fmt.Errorf("%w: expenses have no status", ErrInvalidObligation)
		}
	}
	return nil
}

// IsContract reports whether the obligation is an income contract.
func (o *Obligation) IsContract() bool {
	return o.Kind == KindContract
}

// Covers reports whether the obligation's [start, end] window contains t.
// Dates are compared at day granularity.
func (o *Obligation) Covers(t time.Time) bool {
	day := truncateDay(t)
	if truncateDay(o.StartDate).After(day) {
		return false
	}
	return o.EndDate == nil || !truncateDay(*o.EndDate).Before(day)
}

// Overlaps reports whether the obligation's window intersects [from, to].
func (o *Obligation) Overlaps(from, to time.Time) bool {
	if truncateDay(o.StartDate).After(truncateDay(to)) {
		return false
	}
	return o.EndDate == nil || !truncateDay(*o.EndDate).Before(truncateDay(from))
}

// DaysUntilEnd returns whole calendar days from now until the end date.
// The second return is false for open-ended obligations.
func (o *Obligation) DaysUntilEnd(now time.Time) (int, bool) {
	if o.EndDate == nil {
		return 0, false
	}
	return DaysBetween(now, *o.EndDate), true
}

// DaysBetween counts calendar days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
