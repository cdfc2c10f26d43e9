package significance

import (
	"testing"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(v int64) *decimal.Decimal {
	return model.Decimal(decimal.NewFromInt(v))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		occ          model.BusinessOccurrence
		wantTier     model.Tier
		wantCategory model.EventCategory
	}{
		{"signed 10k", model.BusinessOccurrence{Type: model.OccurrenceContractSigned, MonetaryValue: money(10000)}, model.TierCritical, model.CategoryFinancial},
		{"signed 5k", model.BusinessOccurrence{Type: model.OccurrenceContractSigned, MonetaryValue: money(5000)}, model.TierHigh, model.CategoryFinancial},
		{"signed 9999", model.BusinessOccurrence{Type: model.OccurrenceContractSigned, MonetaryValue: money(9999)}, model.TierHigh, model.CategoryFinancial},
		{"renewed 1k", model.BusinessOccurrence{Type: model.OccurrenceContractRenewed, MonetaryValue: money(1000)}, model.TierMedium, model.CategoryFinancial},
		{"renewed 999", model.BusinessOccurrence{Type: model.OccurrenceContractRenewed, MonetaryValue: money(999)}, model.TierLow, model.CategoryFinancial},

		{"ending 7 days", model.BusinessOccurrence{Type: model.OccurrenceContractEnding, DaysUntilEvent: model.Int(7)}, model.TierCritical, model.CategoryFinancial},
		{"ending 0 days", model.BusinessOccurrence{Type: model.OccurrenceContractEnding, DaysUntilEvent: model.Int(0)}, model.TierCritical, model.CategoryFinancial},
		{"ending 14 days", model.BusinessOccurrence{Type: model.OccurrenceContractEnding, DaysUntilEvent: model.Int(14)}, model.TierHigh, model.CategoryFinancial},
		{"ending 30 days", model.BusinessOccurrence{Type: model.OccurrenceContractEnding, DaysUntilEvent: model.Int(30)}, model.TierMedium, model.CategoryFinancial},

		{"expired", model.BusinessOccurrence{Type: model.OccurrenceContractExpired}, model.TierHigh, model.CategoryFinancial},

		{"expense created 2k", model.BusinessOccurrence{Type: model.OccurrenceExpenseCreated, MonetaryValue: money(2000)}, model.TierHigh, model.CategoryFinancial},
		{"expense created 1999", model.BusinessOccurrence{Type: model.OccurrenceExpenseCreated, MonetaryValue: money(1999)}, model.TierMedium, model.CategoryFinancial},
		{"expense deleted 1k", model.BusinessOccurrence{Type: model.OccurrenceExpenseDeleted, MonetaryValue: money(1000)}, model.TierHigh, model.CategoryFinancial},
		{"expense deleted 500", model.BusinessOccurrence{Type: model.OccurrenceExpenseDeleted, MonetaryValue: money(500)}, model.TierMedium, model.CategoryFinancial},

		{"increase 60%", model.BusinessOccurrence{Type: model.OccurrenceExpenseIncreased, ChangePercent: money(60)}, model.TierHigh, model.CategoryFinancial},
		{"increase 20%", model.BusinessOccurrence{Type: model.OccurrenceExpenseIncreased, ChangePercent: money(20)}, model.TierMedium, model.CategoryFinancial},
		{"increase 5%", model.BusinessOccurrence{Type: model.OccurrenceExpenseIncreased, ChangePercent: money(5)}, model.TierLow, model.CategoryFinancial},
		{"decrease -50%", model.BusinessOccurrence{Type: model.OccurrenceExpenseDecreased, ChangePercent: money(-50)}, model.TierHigh, model.CategoryFinancial},
		{"decrease -25%", model.BusinessOccurrence{Type: model.OccurrenceExpenseDecreased, ChangePercent: money(-25)}, model.TierMedium, model.CategoryFinancial},

		{"runway breach", model.BusinessOccurrence{Type: model.OccurrenceRunwayBreach}, model.TierCritical, model.CategoryFinancial},
		{"runway recovery", model.BusinessOccurrence{Type: model.OccurrenceRunwayRecovery}, model.TierHigh, model.CategoryFinancial},

		{"insight urgent", model.BusinessOccurrence{Type: model.OccurrenceAIInsight, Priority: model.PriorityUrgent}, model.TierCritical, model.CategoryAdvisory},
		{"insight high", model.BusinessOccurrence{Type: model.OccurrenceAIInsight, Priority: model.PriorityHigh}, model.TierHigh, model.CategoryAdvisory},
		{"insight medium", model.BusinessOccurrence{Type: model.OccurrenceAIInsight, Priority: model.PriorityMedium}, model.TierMedium, model.CategoryAdvisory},
		{"insight low", model.BusinessOccurrence{Type: model.OccurrenceAIInsight, Priority: model.PriorityLow}, model.TierLow, model.CategoryAdvisory},

		{"news default", model.BusinessOccurrence{Type: model.OccurrenceNews}, model.TierLow, model.CategoryMarket},
		{"news with priority", model.BusinessOccurrence{Type: model.OccurrenceNews, Priority: model.PriorityHigh}, model.TierHigh, model.CategoryMarket},
		{"milestone default", model.BusinessOccurrence{Type: model.OccurrenceMilestone}, model.TierMedium, model.CategoryMilestone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.occ)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantCategory, got.Category)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	occ := model.BusinessOccurrence{Type: model.OccurrenceContractSigned, MonetaryValue: money(7500)}
	first, err := Classify(occ)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Classify(occ)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(model.BusinessOccurrence{Type: "acquisition"})
	assert.ErrorIs(t, err, ErrUnknownOccurrence)

	_, err = Classify(model.BusinessOccurrence{Type: model.OccurrenceContractEnding})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = Classify(model.BusinessOccurrence{Type: model.OccurrenceAIInsight})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestEveryOccurrenceHasACategory(t *testing.T) {
	types := []model.OccurrenceType{
		model.OccurrenceContractSigned, model.OccurrenceContractRenewed, model.OccurrenceContractEnding,
		model.OccurrenceContractExpired, model.OccurrenceExpenseCreated, model.OccurrenceExpenseDeleted,
		model.OccurrenceExpenseIncreased, model.OccurrenceExpenseDecreased, model.OccurrenceRunwayBreach,
		model.OccurrenceRunwayRecovery, model.OccurrenceNews, model.OccurrenceAIInsight, model.OccurrenceMilestone,
	}
	for _, typ := range types {
		_, ok := Categories[typ]
		assert.True(t, ok, "missing category for %s", typ)
	}
}

func TestChangePercent(t *testing.T) {
	tests := []struct {
		name     string
		previous int64
		current  int64
		want     int64
	}{
		{"20% increase", 1000, 1200, 20},
		{"60% increase", 1000, 1600, 60},
		{"5% increase", 1000, 1050, 5},
		{"halved", 1000, 500, -50},
		{"from zero", 0, 300, 100},
		{"zero to zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangePercent(decimal.NewFromInt(tt.previous), decimal.NewFromInt(tt.current))
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestExpenseChangeTiersAndAlerting(t *testing.T) {
	tests := []struct {
		name      string
		current   int64
		wantTier  model.Tier
		wantAlert bool
	}{
		{"1000 to 1200", 1200, model.TierMedium, true},
		{"1000 to 1600", 1600, model.TierHigh, true},
		{"1000 to 1050", 1050, model.TierLow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct := ChangePercent(decimal.NewFromInt(1000), decimal.NewFromInt(tt.current))
			got, err := Classify(model.BusinessOccurrence{Type: model.OccurrenceExpenseIncreased, ChangePercent: &pct})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantAlert, ShouldAlert(model.OccurrenceExpenseIncreased, got.Tier))
		})
	}
}

func TestShouldAlert_OtherTypesAlwaysAlert(t *testing.T) {
	assert.True(t, ShouldAlert(model.OccurrenceContractSigned, model.TierLow))
	assert.True(t, ShouldAlert(model.OccurrenceNews, model.TierLow))
}
