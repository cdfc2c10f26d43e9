// Package alerts answers whether an alert was already raised, so repeated
// scheduler runs never notify twice for the same condition.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
)

// History is the read side of the persisted alert log.
type History interface {
	FindAlerts(ctx context.Context, userID int64, alertType model.AlertType, since time.Time) ([]model.AlertRecord, error)
	LatestAlert(ctx context.Context, userID int64, types ...model.AlertType) (*model.AlertRecord, error)
}

// MatchFunc decides whether a prior alert counts as the same alert.
type MatchFunc func(record model.AlertRecord) bool

// Guard checks persisted alert history. It holds no state of its own; every
// answer comes from the store at call time.
type Guard struct {
	history History
}

// NewGuard creates a guard backed by the given history.
func NewGuard(history History) *Guard {
	return &Guard{history: history}
}

// AlreadyRaised reports whether userID has an alert of alertType at or after
// windowStart that satisfies match. A nil match accepts any record.
func (g *Guard) AlreadyRaised(ctx context.Context, userID int64, alertType model.AlertType, windowStart time.Time, match MatchFunc) (bool, error) {
	records, err := g.history.FindAlerts(ctx, userID, alertType, windowStart)
	if err != nil {
		return false, fmt.Errorf("failed to query %s alerts: %w", alertType, err)
	}

	for _, r := range records {
		if r.OccurredAt.Before(windowStart) {
			continue
		}
		if match == nil || match(r) {
			return true, nil
		}
	}
	return false, nil
}

// Latest returns the most recent alert of any of the given types, or nil.
func (g *Guard) Latest(ctx context.Context, userID int64, types ...model.AlertType) (*model.AlertRecord, error) {
	rec, err := g.history.LatestAlert(ctx, userID, types...)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest alert: %w", err)
	}
	return rec, nil
}

// MatchAny accepts every record.
func MatchAny(model.AlertRecord) bool {
	return true
}

// PayloadEquals matches records whose payload value for key has the same
// string form as want.
func PayloadEquals(key string, want any) MatchFunc {
	expected := fmt.Sprint(want)
	return func(r model.AlertRecord) bool {
		got, ok := r.PayloadString(key)
		return ok && got == expected
	}
}

// PayloadTrue matches records whose payload flag key is true.
func PayloadTrue(key string) MatchFunc {
	return func(r model.AlertRecord) bool {
		return r.PayloadBool(key)
	}
}

// All matches when every predicate matches.
func All(preds ...MatchFunc) MatchFunc {
	return func(r model.AlertRecord) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
