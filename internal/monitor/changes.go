package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ops/internal/cashflow"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/significance"
	"github.com/shopspring/decimal"
)

// RecordContractChange raises contract_signed when a contract becomes
// confirmed and contract_renewed when a confirmed contract's end date moves
// later. before is nil for newly created contracts; after is nil for deletes,
// which raise nothing.
func (m *Monitor) RecordContractChange(ctx context.Context, before, after *model.Obligation) (*model.BusinessEvent, error) {
	if after == nil || after.Status != model.StatusConfirmed {
		return nil, nil
	}

	state := map[string]any{"contract_id": after.ID, "contract_name": after.Name}

	if before == nil || before.Status != model.StatusConfirmed {
		if before != nil {
			state["previous_status"] = string(before.Status)
		}
		occ := model.BusinessOccurrence{
			Type:          model.OccurrenceContractSigned,
			MonetaryValue: model.Decimal(MonthlyImpact(after)),
			PriorState:    state,
		}
		alert := &model.AlertRecord{
			AlertType: model.AlertContractChange,
			AlertKey:  fmt.Sprintf("signed:%d", after.ID),
			Payload:   map[string]any{"contract_id": after.ID},
		}
		event, _, err := m.raise(ctx, after.UserID, occ, "Signed "+after.Name, alert)
		return event, err
	}

	if !extended(before.EndDate, after.EndDate) {
		return nil, nil
	}

	newEnd := "open"
	if after.EndDate != nil {
		newEnd = after.EndDate.Format(time.DateOnly)
	}
	state["previous_end_date"] = before.EndDate.Format(time.DateOnly)
	state["end_date"] = newEnd

	occ := model.BusinessOccurrence{
		Type:          model.OccurrenceContractRenewed,
		MonetaryValue: model.Decimal(MonthlyImpact(after)),
		PriorState:    state,
	}
	alert := &model.AlertRecord{
		AlertType: model.AlertContractChange,
		AlertKey:  fmt.Sprintf("renewed:%d:%s", after.ID, newEnd),
		Payload:   map[string]any{"contract_id": after.ID, "end_date": newEnd},
	}
	event, _, err := m.raise(ctx, after.UserID, occ, "Renewed "+after.Name, alert)
	return event, err
}

// extended reports whether an end date moved later or was removed.
func extended(before, after *time.Time) bool {
	if before == nil {
		return false
	}
	return after == nil || after.After(*before)
}

// RecordExpenseChange raises expense_created, expense_deleted, or an
// increase/decrease when the monthly impact of an expense changes. Changes
// that classify below the medium tier raise nothing.
func (m *Monitor) RecordExpenseChange(ctx context.Context, before, after *model.Obligation) (*model.BusinessEvent, error) {
	switch {
	case before == nil && after == nil:
		return nil, nil
	case before == nil:
		return m.expenseLifecycle(ctx, after, model.OccurrenceExpenseCreated, "created", "New expense "+after.Name)
	case after == nil:
		return m.expenseLifecycle(ctx, before, model.OccurrenceExpenseDeleted, "deleted", "Removed expense "+before.Name)
	}

	previous, current := MonthlyImpact(before), MonthlyImpact(after)
	if previous.Equal(current) {
		return nil, nil
	}

	occType := model.OccurrenceExpenseIncreased
	if current.LessThan(previous) {
		occType = model.OccurrenceExpenseDecreased
	}
	pct := significance.ChangePercent(previous, current)

	occ := model.BusinessOccurrence{
		Type:          occType,
		ChangePercent: &pct,
		MonetaryValue: model.Decimal(current.Sub(previous).Abs()),
		PriorState: map[string]any{
			"expense_id":       after.ID,
			"expense_name":     after.Name,
			"previous_monthly": previous.StringFixed(2),
			"current_monthly":  current.StringFixed(2),
		},
	}
	alert := &model.AlertRecord{
		AlertType: model.AlertExpenseChange,
		AlertKey:  fmt.Sprintf("changed:%d:%s:%s", after.ID, previous.StringFixed(2), current.StringFixed(2)),
		Payload:   map[string]any{"expense_id": after.ID, "change_percent": pct.StringFixed(2)},
	}
	title := fmt.Sprintf("%s changed %s%%", after.Name, pct.StringFixed(0))
	event, _, err := m.raise(ctx, after.UserID, occ, title, alert)
	return event, err
}

func (m *Monitor) expenseLifecycle(ctx context.Context, e *model.Obligation, occType model.OccurrenceType, verb, title string) (*model.BusinessEvent, error) {
	occ := model.BusinessOccurrence{
		Type:          occType,
		MonetaryValue: model.Decimal(MonthlyImpact(e)),
		PriorState:    map[string]any{"expense_id": e.ID, "expense_name": e.Name, "frequency": string(e.Frequency)},
	}
	alert := &model.AlertRecord{
		AlertType: model.AlertExpenseChange,
		AlertKey:  fmt.Sprintf("%s:%d", verb, e.ID),
		Payload:   map[string]any{"expense_id": e.ID},
	}
	event, _, err := m.raise(ctx, e.UserID, occ, title, alert)
	return event, err
}

// MonthlyImpact is the amount an obligation change is judged by: the monthly
// equivalent for recurring obligations and the full amount for one-time ones.
func MonthlyImpact(o *model.Obligation) decimal.Decimal {
	if !o.Frequency.IsRecurring() {
		return o.Amount
	}
	return cashflow.MonthlyEquivalent(o.Amount, o.Frequency)
}

// LogEvent classifies and records a manually reported occurrence such as a
// milestone, a news item or an advisory insight. A non-empty dedupKey makes
// repeated logging of the same item a no-op.
func (m *Monitor) LogEvent(ctx context.Context, userID int64, occ model.BusinessOccurrence, title, dedupKey string) (*model.BusinessEvent, error) {
	var alert *model.AlertRecord
	if dedupKey != "" {
		alert = &model.AlertRecord{
			AlertType: model.AlertManual,
			AlertKey:  fmt.Sprintf("%s:%s", occ.Type, dedupKey),
			Payload:   map[string]any{"occurrence": string(occ.Type)},
		}
	}
	event, _, err := m.raise(ctx, userID, occ, title, alert)
	return event, err
}
