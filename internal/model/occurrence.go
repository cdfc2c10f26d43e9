package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// OccurrenceType names something that happened to the business.
type OccurrenceType string

// Occurrence types.
const (
	OccurrenceContractSigned   OccurrenceType = "contract_signed"
	OccurrenceContractRenewed  OccurrenceType = "contract_renewed"
	OccurrenceContractEnding   OccurrenceType = "contract_ending"
	OccurrenceContractExpired  OccurrenceType = "contract_expired"
	OccurrenceExpenseCreated   OccurrenceType = "expense_created"
	OccurrenceExpenseDeleted   OccurrenceType = "expense_deleted"
	OccurrenceExpenseIncreased OccurrenceType = "expense_increased"
	OccurrenceExpenseDecreased OccurrenceType = "expense_decreased"
	OccurrenceRunwayBreach     OccurrenceType = "runway_breach"
	OccurrenceRunwayRecovery   OccurrenceType = "runway_recovery"
	OccurrenceNews             OccurrenceType = "news"
	OccurrenceAIInsight        OccurrenceType = "ai_insight"
	OccurrenceMilestone        OccurrenceType = "milestone"
)

// InsightPriority is the priority attached to an AI insight.
type InsightPriority string

// Insight priorities.
const (
	PriorityLow    InsightPriority = "low"
	PriorityMedium InsightPriority = "medium"
	PriorityHigh   InsightPriority = "high"
	PriorityUrgent InsightPriority = "urgent"
)

// ErrInvalidOccurrence is returned when a BusinessOccurrence is malformed.
var ErrInvalidOccurrence = errors.New("invalid occurrence")

// BusinessOccurrence is the input to the significance classifier.
type BusinessOccurrence struct {
	MonetaryValue  *decimal.Decimal
	ChangePercent  *decimal.Decimal
	DaysUntilEvent *int
	PriorState     map[string]any
	Type           OccurrenceType  `validate:"required"`
	Priority       InsightPriority `validate:"omitempty,oneof=low medium high urgent"`
}

// Validate checks the occurrence has the fields its type needs.
func (o *BusinessOccurrence) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOccurrence, err)
	}

	switch o.Type {
	case OccurrenceContractSigned, OccurrenceContractRenewed,
		OccurrenceExpenseCreated, OccurrenceExpenseDeleted:
		if o.MonetaryValue == nil {
			return fmt.Errorf("%w: %s requires a monetary value", ErrInvalidOccurrence, o.Type)
		}
		if o.MonetaryValue.IsNegative() {
			return fmt.Errorf("%w: monetary value must not be negative", ErrInvalidOccurrence)
		}
	case OccurrenceContractEnding:
		if o.DaysUntilEvent == nil {
			return fmt.Errorf("%w: %s requires days until event", ErrInvalidOccurrence, o.Type)
		}
	case OccurrenceExpenseIncreased, OccurrenceExpenseDecreased:
		if o.ChangePercent == nil {
			return fmt.Errorf("%w: %s requires a change percent", ErrInvalidOccurrence, o.Type)
		}
	case OccurrenceAIInsight:
		if o.Priority == "" {
			return fmt.Errorf("%w: %s requires a priority", ErrInvalidOccurrence, o.Type)
		}
	case OccurrenceContractExpired, OccurrenceRunwayBreach, OccurrenceRunwayRecovery,
		OccurrenceNews, OccurrenceMilestone:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOccurrence, string(o.Type))
	}
	return nil
}

// Decimal is a small helper for building optional decimal fields.
func Decimal(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Int is a small helper for building optional int fields.
func Int(i int) *int {
	return &i
}
