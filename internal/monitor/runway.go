package monitor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/spice-ops/internal/alerts"
	"github.com/Veraticus/spice-ops/internal/cashflow"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/Veraticus/spice-ops/internal/settings"
)

// RunwayResult is the outcome of a runway check.
type RunwayResult struct {
	Summary   cashflow.Summary
	Action    cashflow.CrossingAction
	Result    Result
	Threshold int
}

// CheckRunway recomputes the user's runway and raises a breach or recovery
// when it crosses the configured threshold.
func (m *Monitor) CheckRunway(ctx context.Context, userID int64) (RunwayResult, error) {
	out := RunwayResult{Action: cashflow.ActionNone}

	threshold, err := m.settings.Int(ctx, settings.KeyRunwayThreshold)
	if err != nil {
		return out, err
	}
	out.Threshold = threshold

	obligations, err := m.store.ListObligations(ctx, service.ObligationFilter{UserID: userID})
	if err != nil {
		return out, fmt.Errorf("failed to list obligations: %w", err)
	}

	now := m.now()
	contracts, expenses := cashflow.SplitByKind(obligations)
	out.Summary = cashflow.Summarize(contracts, expenses, now)
	recordRunway(userID, out.Summary.Runway)

	latest, err := m.guard.Latest(ctx, userID, model.AlertRunwayBreach, model.AlertRunwayRecovery)
	if err != nil {
		return out, err
	}
	var last *cashflow.CrossingState
	if latest != nil {
		last = &cashflow.CrossingState{
			When:         latest.OccurredAt,
			CrossedBelow: latest.AlertType == model.AlertRunwayBreach,
		}
	}

	var history cashflow.CrossingHistory
	history.BreachRaisedToday, err = m.guard.AlreadyRaised(ctx, userID, model.AlertRunwayBreach,
		alerts.StartOfDay(now), alerts.PayloadTrue("crossed_below"))
	if err != nil {
		return out, err
	}
	if last != nil && last.CrossedBelow {
		history.RecoveryRaisedSinceBreach, err = m.guard.AlreadyRaised(ctx, userID, model.AlertRunwayRecovery,
			last.When, alerts.MatchAny)
		if err != nil {
			return out, err
		}
	}

	out.Action = cashflow.ClassifyCrossing(out.Summary.Runway, threshold, last, history)

	switch out.Action {
	case cashflow.ActionRaiseBreach:
		err = m.raiseRunway(ctx, userID, &out, model.OccurrenceRunwayBreach, model.AlertRunwayBreach,
			now.Format(time.DateOnly), true,
			fmt.Sprintf("Runway is %s months, at or below %d", out.Summary.Runway, threshold))
	case cashflow.ActionRaiseRecovery:
		err = m.raiseRunway(ctx, userID, &out, model.OccurrenceRunwayRecovery, model.AlertRunwayRecovery,
			strconv.FormatInt(latest.ID, 10), false,
			fmt.Sprintf("Runway recovered to %s months, above %d", out.Summary.Runway, threshold))
	default:
		if out.Summary.Runway.AtOrBelow(threshold) {
			m.suppressed(model.AlertRunwayBreach)
			out.Result.Suppressed++
		}
	}

	m.logger.Debug("Checked runway",
		"user_id", userID,
		"runway", out.Summary.Runway.String(),
		"threshold", threshold,
		"action", out.Action)

	return out, err
}

func (m *Monitor) raiseRunway(ctx context.Context, userID int64, out *RunwayResult, occType model.OccurrenceType, alertType model.AlertType, key string, below bool, title string) error {
	s := out.Summary
	occ := model.BusinessOccurrence{
		Type: occType,
		PriorState: map[string]any{
			"monthly_income":   s.MonthlyIncome.StringFixed(2),
			"monthly_expenses": s.MonthlyExpenses.StringFixed(2),
			"monthly_net":      s.MonthlyNet.StringFixed(2),
			"runway":           s.Runway.String(),
			"threshold":        out.Threshold,
		},
	}
	alert := &model.AlertRecord{
		AlertType: alertType,
		AlertKey:  key,
		Payload: map[string]any{
			"crossed_below": below,
			"runway":        s.Runway.String(),
			"threshold":     out.Threshold,
		},
	}

	_, raised, err := m.raise(ctx, userID, occ, title, alert)
	if err != nil {
		return err
	}
	if raised {
		out.Result.Raised++
	} else {
		out.Result.Suppressed++
	}
	return nil
}

func recordRunway(userID int64, r cashflow.Runway) {
	value := -1.0
	if !r.IsInfinite() {
		value = r.Float64()
	}
	runwayMonths.WithLabelValues(strconv.FormatInt(userID, 10)).Set(value)
}
