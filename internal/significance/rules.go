// Package significance assigns a category and severity tier to business
// occurrences using ordered rule tables.
package significance

import (
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
)

// AmountRule matches when a value is at or above Min.
type AmountRule struct {
	Min  decimal.Decimal
	Tier model.Tier
}

// DaysRule matches when days-until-event is at or below MaxDays.
type DaysRule struct {
	Tier    model.Tier
	MaxDays int
}

// Rule tables. Each is evaluated top to bottom and the first match wins; the
// paired fallback tier applies when nothing matches.
var (
	ContractValueRules = []AmountRule{
		{Min: decimal.NewFromInt(10000), Tier: model.TierCritical},
		{Min: decimal.NewFromInt(5000), Tier: model.TierHigh},
		{Min: decimal.NewFromInt(1000), Tier: model.TierMedium},
	}
	ContractValueFallback = model.TierLow

	ContractEndingRules = []DaysRule{
		{MaxDays: 7, Tier: model.TierCritical},
		{MaxDays: 14, Tier: model.TierHigh},
	}
	ContractEndingFallback = model.TierMedium

	ExpenseCreatedRules = []AmountRule{
		{Min: decimal.NewFromInt(2000), Tier: model.TierHigh},
	}
	ExpenseCreatedFallback = model.TierMedium

	ExpenseDeletedRules = []AmountRule{
		{Min: decimal.NewFromInt(1000), Tier: model.TierHigh},
	}
	ExpenseDeletedFallback = model.TierMedium

	ExpenseChangeRules = []AmountRule{
		{Min: decimal.NewFromInt(50), Tier: model.TierHigh},
		{Min: decimal.NewFromInt(20), Tier: model.TierMedium},
	}
	ExpenseChangeFallback = model.TierLow

	// FixedTiers holds occurrence types whose tier never varies.
	FixedTiers = map[model.OccurrenceType]model.Tier{
		model.OccurrenceContractExpired: model.TierHigh,
		model.OccurrenceRunwayBreach:    model.TierCritical,
		model.OccurrenceRunwayRecovery:  model.TierHigh,
	}

	// PriorityTiers maps AI insight priorities onto tiers.
	PriorityTiers = map[model.InsightPriority]model.Tier{
		model.PriorityUrgent: model.TierCritical,
		model.PriorityHigh:   model.TierHigh,
		model.PriorityMedium: model.TierMedium,
		model.PriorityLow:    model.TierLow,
	}

	// Categories assigns every occurrence type its category, independent of tier.
	Categories = map[model.OccurrenceType]model.EventCategory{
		model.OccurrenceContractSigned:   model.CategoryFinancial,
		model.OccurrenceContractRenewed:  model.CategoryFinancial,
		model.OccurrenceContractEnding:   model.CategoryFinancial,
		model.OccurrenceContractExpired:  model.CategoryFinancial,
		model.OccurrenceExpenseCreated:   model.CategoryFinancial,
		model.OccurrenceExpenseDeleted:   model.CategoryFinancial,
		model.OccurrenceExpenseIncreased: model.CategoryFinancial,
		model.OccurrenceExpenseDecreased: model.CategoryFinancial,
		model.OccurrenceRunwayBreach:     model.CategoryFinancial,
		model.OccurrenceRunwayRecovery:   model.CategoryFinancial,
		model.OccurrenceNews:             model.CategoryMarket,
		model.OccurrenceAIInsight:        model.CategoryAdvisory,
		model.OccurrenceMilestone:        model.CategoryMilestone,
	}
)

func matchAmount(rules []AmountRule, fallback model.Tier, value decimal.Decimal) model.Tier {
	for _, r := range rules {
		if value.GreaterThanOrEqual(r.Min) {
			return r.Tier
		}
	}
	return fallback
}

func matchDays(rules []DaysRule, fallback model.Tier, days int) model.Tier {
	for _, r := range rules {
		if days <= r.MaxDays {
			return r.Tier
		}
	}
	return fallback
}
