package significance

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownOccurrence is returned for occurrence types with no rules.
	ErrUnknownOccurrence = errors.New("unknown occurrence type")
	// ErrMissingField is returned when an occurrence lacks the input its rules read.
	ErrMissingField = errors.New("occurrence is missing a required field")
)

var hundred = decimal.NewFromInt(100)

// Classify assigns a category and tier to an occurrence. It is deterministic
// and holds no state.
func Classify(occ model.BusinessOccurrence) (model.SignificanceResult, error) {
	category, ok := Categories[occ.Type]
	if !ok {
		return model.SignificanceResult{}, fmt.Errorf("%w: %q", ErrUnknownOccurrence, string(occ.Type))
	}

	tier, err := tierFor(occ)
	if err != nil {
		return model.SignificanceResult{}, err
	}

	return model.SignificanceResult{Category: category, Tier: tier}, nil
}

func tierFor(occ model.BusinessOccurrence) (model.Tier, error) {
	if tier, ok := FixedTiers[occ.Type]; ok {
		return tier, nil
	}

	switch occ.Type {
	case model.OccurrenceContractSigned, model.OccurrenceContractRenewed:
		if occ.MonetaryValue == nil {
			return "", missing(occ.Type, "monetary value")
		}
		return matchAmount(ContractValueRules, ContractValueFallback, *occ.MonetaryValue), nil

	case model.OccurrenceContractEnding:
		if occ.DaysUntilEvent == nil {
			return "", missing(occ.Type, "days until event")
		}
		return matchDays(ContractEndingRules, ContractEndingFallback, *occ.DaysUntilEvent), nil

	case model.OccurrenceExpenseCreated:
		if occ.MonetaryValue == nil {
			return "", missing(occ.Type, "monetary value")
		}
		return matchAmount(ExpenseCreatedRules, ExpenseCreatedFallback, *occ.MonetaryValue), nil

	case model.OccurrenceExpenseDeleted:
		if occ.MonetaryValue == nil {
			return "", missing(occ.Type, "monetary value")
		}
		return matchAmount(ExpenseDeletedRules, ExpenseDeletedFallback, *occ.MonetaryValue), nil

	case model.OccurrenceExpenseIncreased, model.OccurrenceExpenseDecreased:
		if occ.ChangePercent == nil {
			return "", missing(occ.Type, "change percent")
		}
		return matchAmount(ExpenseChangeRules, ExpenseChangeFallback, occ.ChangePercent.Abs()), nil

	case model.OccurrenceAIInsight:
		tier, ok := PriorityTiers[occ.Priority]
		if !ok {
			return "", missing(occ.Type, "priority")
		}
		return tier, nil

	case model.OccurrenceNews:
		return priorityOr(occ.Priority, model.TierLow), nil

	case model.OccurrenceMilestone:
		return priorityOr(occ.Priority, model.TierMedium), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownOccurrence, string(occ.Type))
}

func priorityOr(p model.InsightPriority, fallback model.Tier) model.Tier {
	if tier, ok := PriorityTiers[p]; ok {
		return tier
	}
	return fallback
}

func missing(t model.OccurrenceType, field string) error {
	return fmt.Errorf("%w: %s needs %s", ErrMissingField, t, field)
}

// ChangePercent returns the percentage change from previous to current.
// A change from zero is reported as 100%.
func ChangePercent(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

// ShouldAlert reports whether a classified occurrence is worth recording and
// notifying. Expense changes below the medium tier are noise.
func ShouldAlert(t model.OccurrenceType, tier model.Tier) bool {
	switch t {
	case model.OccurrenceExpenseIncreased, model.OccurrenceExpenseDecreased:
		return tier.AtLeast(model.TierMedium)
	default:
		return true
	}
}
