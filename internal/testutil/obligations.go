package testutil

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultUserID owns every obligation a builder creates unless ForUser is called.
const DefaultUserID int64 = 1

// DefaultStart is the start date builders use unless StartingOn is called.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ObligationBuilder builds a valid contract or expense with test defaults:
// monthly, active, owned by DefaultUserID and starting on DefaultStart.
type ObligationBuilder struct {
	t *testing.T
	o model.Obligation
}

// Contract starts a confirmed monthly contract.
func Contract(t *testing.T, name string, amount int64) *ObligationBuilder {
	t.Helper()
	return &ObligationBuilder{t: t, o: model.Obligation{
		UserID:      DefaultUserID,
		Kind:        model.KindContract,
		Name:        name,
		Amount:      decimal.NewFromInt(amount),
		Frequency:   model.FrequencyMonthly,
		Status:      model.StatusConfirmed,
		StartDate:   DefaultStart,
		Probability: model.DefaultProbability,
		Active:      true,
	}}
}

// Expense starts a monthly expense.
func Expense(t *testing.T, name string, amount int64) *ObligationBuilder {
	t.Helper()
	return &ObligationBuilder{t: t, o: model.Obligation{
		UserID:      DefaultUserID,
		Kind:        model.KindExpense,
		Name:        name,
		Amount:      decimal.NewFromInt(amount),
		Frequency:   model.FrequencyMonthly,
		StartDate:   DefaultStart,
		Probability: model.DefaultProbability,
		Active:      true,
	}}
}

// ForUser sets the owner.
func (b *ObligationBuilder) ForUser(userID int64) *ObligationBuilder {
	b.o.UserID = userID
	return b
}

// Every sets the billing frequency.
func (b *ObligationBuilder) Every(freq model.Frequency) *ObligationBuilder {
	b.o.Frequency = freq
	return b
}

// WithStatus sets the contract status.
func (b *ObligationBuilder) WithStatus(status model.ContractStatus) *ObligationBuilder {
	b.o.Status = status
	return b
}

// WithProbability sets the pipeline win probability.
func (b *ObligationBuilder) WithProbability(p int) *ObligationBuilder {
	b.o.Probability = p
	return b
}

// StartingOn sets the start date.
func (b *ObligationBuilder) StartingOn(start time.Time) *ObligationBuilder {
	b.o.StartDate = start
	return b
}

// EndingOn sets the end date.
func (b *ObligationBuilder) EndingOn(end time.Time) *ObligationBuilder {
	b.o.EndDate = &end
	return b
}

// Inactive marks the obligation inactive.
func (b *ObligationBuilder) Inactive() *ObligationBuilder {
	b.o.Active = false
	return b
}

// Build validates and returns a fresh copy of the obligation.
func (b *ObligationBuilder) Build() *model.Obligation {
	b.t.Helper()

	o := b.o
	if o.EndDate != nil {
		end := *o.EndDate
		o.EndDate = &end
	}
	if err := o.Validate(); err != nil {
		b.t.Fatalf("invalid test obligation %q: %v", o.Name, err)
	}
	return &o
}
