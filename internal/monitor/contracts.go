package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ops/internal/alerts"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/Veraticus/spice-ops/internal/settings"
)

// ReminderThresholds are the day counts at which an ending contract is
// announced, smallest first.
var ReminderThresholds = []int{7, 14, 30}

// reminderThreshold returns the smallest threshold not below days.
func reminderThreshold(days int) (int, bool) {
	for _, t := range ReminderThresholds {
		if days <= t {
			return t, true
		}
	}
	return 0, false
}

// CheckContractExpirations raises reminders for confirmed contracts ending
// within the reminder window and closes out contracts whose end date passed.
func (m *Monitor) CheckContractExpirations(ctx context.Context, userID int64) (Result, error) {
	var result Result

	window, err := m.settings.Int(ctx, settings.KeyContractReminderDays)
	if err != nil {
		return result, err
	}

	contracts, err := m.store.ListObligations(ctx, service.ObligationFilter{
		UserID:     userID,
		Kind:       model.KindContract,
		ActiveOnly: true,
	})
	if err != nil {
		return result, fmt.Errorf("failed to list contracts: %w", err)
	}

	now := m.now()
	var errs []error
	for i := range contracts {
		c := &contracts[i]
		if c.Status != model.StatusConfirmed {
			continue
		}
		days, ok := c.DaysUntilEnd(now)
		if !ok {
			continue
		}

		var step Result
		if days < 0 {
			step, err = m.expireContract(ctx, c)
		} else {
			step, err = m.remindContract(ctx, c, days, window, now)
		}
		result.add(step)
		if err != nil {
			errs = append(errs, fmt.Errorf("contract %d: %w", c.ID, err))
		}
	}

	m.logger.Debug("Checked contract expirations",
		"user_id", userID,
		"contracts", len(contracts),
		"raised", result.Raised,
		"suppressed", result.Suppressed)

	return result, errors.Join(errs...)
}

func (m *Monitor) remindContract(ctx context.Context, c *model.Obligation, days, window int, now time.Time) (Result, error) {
	var result Result
	if days > window {
		return result, nil
	}
	threshold, ok := reminderThreshold(days)
	if !ok {
		return result, nil
	}

	end := c.EndDate.Format(time.DateOnly)
	seen, err := m.guard.AlreadyRaised(ctx, c.UserID, model.AlertContractEnding, now.AddDate(0, 0, -window),
		alerts.All(
			alerts.PayloadEquals("contract_id", c.ID),
			alerts.PayloadEquals("threshold", threshold),
			alerts.PayloadEquals("end_date", end),
		))
	if err != nil {
		return result, err
	}
	if seen {
		m.suppressed(model.AlertContractEnding)
		result.Suppressed++
		return result, nil
	}

	occ := model.BusinessOccurrence{
		Type:           model.OccurrenceContractEnding,
		DaysUntilEvent: model.Int(days),
		MonetaryValue:  model.Decimal(c.Amount),
		PriorState:     map[string]any{"contract_id": c.ID, "contract_name": c.Name, "end_date": end},
	}
	alert := &model.AlertRecord{
		AlertType: model.AlertContractEnding,
		AlertKey:  fmt.Sprintf("%d:%d:%s", c.ID, threshold, end),
		Payload: map[string]any{
			"contract_id":    c.ID,
			"threshold":      threshold,
			"days_until_end": days,
			"end_date":       end,
		},
	}

	_, raised, err := m.raise(ctx, c.UserID, occ, fmt.Sprintf("%s ends in %d days", c.Name, days), alert)
	if err != nil {
		return result, err
	}
	if raised {
		result.Raised++
	} else {
		result.Suppressed++
	}
	return result, nil
}

func (m *Monitor) expireContract(ctx context.Context, c *model.Obligation) (Result, error) {
	var result Result

	seen, err := m.guard.AlreadyRaised(ctx, c.UserID, model.AlertContractExpired, time.Time{},
		alerts.PayloadEquals("contract_id", c.ID))
	if err != nil {
		return result, err
	}

	if seen {
		m.suppressed(model.AlertContractExpired)
		result.Suppressed++
	} else {
		end := c.EndDate.Format(time.DateOnly)
		occ := model.BusinessOccurrence{
			Type:          model.OccurrenceContractExpired,
			MonetaryValue: model.Decimal(c.Amount),
			PriorState:    map[string]any{"contract_id": c.ID, "contract_name": c.Name, "end_date": end},
		}
		alert := &model.AlertRecord{
			AlertType: model.AlertContractExpired,
			AlertKey:  fmt.Sprintf("%d:%s", c.ID, end),
			Payload:   map[string]any{"contract_id": c.ID, "end_date": end},
		}
		_, raised, err := m.raise(ctx, c.UserID, occ, fmt.Sprintf("%s has ended", c.Name), alert)
		if err != nil {
			return result, err
		}
		if raised {
			result.Raised++
		} else {
			result.Suppressed++
		}
	}

	transition := model.StatusTransition{
		ObligationID: c.ID,
		From:         c.Status,
		To:           model.StatusCompleted,
		Reason:       "end date passed",
	}
	if err := m.store.UpdateObligationStatus(ctx, c.ID, transition.To); err != nil {
		return result, fmt.Errorf("failed to complete contract: %w", err)
	}
	result.Transitions = append(result.Transitions, transition)
	return result, nil
}
