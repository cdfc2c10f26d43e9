// Package monitor runs the periodic contract and runway checks and turns
// obligation edits into classified business events. Every check consults
// persisted alert history first, so running it again never alerts twice.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ops/internal/alerts"
	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/Veraticus/spice-ops/internal/significance"
)

// Store is the persistence the monitor needs.
type Store interface {
	alerts.History
	ListObligations(ctx context.Context, filter service.ObligationFilter) ([]model.Obligation, error)
	UpdateObligationStatus(ctx context.Context, id int64, status model.ContractStatus) error
	RecordAlert(ctx context.Context, alert *model.AlertRecord, event *model.BusinessEvent) error
	SaveEvent(ctx context.Context, event *model.BusinessEvent) error
}

// Settings supplies tunable thresholds.
type Settings interface {
	Int(ctx context.Context, key string) (int, error)
}

// Monitor evaluates obligations for one user at a time.
type Monitor struct {
	store    Store
	settings Settings
	notifier Notifier
	guard    *alerts.Guard
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// New creates a monitor. A nil notifier logs notifications.
func New(store Store, settings Settings, notifier Notifier, opts ...Option) *Monitor {
	m := &Monitor{
		store:    store,
		settings: settings,
		notifier: notifier,
		guard:    alerts.NewGuard(store),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = NewLogNotifier(m.logger)
	}
	return m
}

// Result summarizes what a check did.
type Result struct {
	Transitions []model.StatusTransition
	Raised      int
	Suppressed  int
}

func (r *Result) add(other Result) {
	r.Raised += other.Raised
	r.Suppressed += other.Suppressed
	r.Transitions = append(r.Transitions, other.Transitions...)
}

// CheckAll runs the contract and runway checks for userID. Both checks run
// even if the first fails.
func (m *Monitor) CheckAll(ctx context.Context, userID int64) (Result, error) {
	var total Result

	contracts, contractErr := m.CheckContractExpirations(ctx, userID)
	total.add(contracts)

	runway, runwayErr := m.CheckRunway(ctx, userID)
	total.add(runway.Result)

	return total, errors.Join(contractErr, runwayErr)
}

// raise classifies occ, persists the event (and alert when given) and
// notifies. It reports whether anything was raised.
func (m *Monitor) raise(ctx context.Context, userID int64, occ model.BusinessOccurrence, title string, alert *model.AlertRecord) (*model.BusinessEvent, bool, error) {
	if err := occ.Validate(); err != nil {
		return nil, false, err
	}
	result, err := significance.Classify(occ)
	if err != nil {
		return nil, false, fmt.Errorf("failed to classify %s: %w", occ.Type, err)
	}
	if !significance.ShouldAlert(occ.Type, result.Tier) {
		m.logger.Debug("Occurrence below alert tier",
			"user_id", userID,
			"type", occ.Type,
			"tier", result.Tier)
		return nil, false, nil
	}

	now := m.now()
	event := model.NewBusinessEvent(userID, occ, result, title, now)
	if occ.MonetaryValue != nil {
		event.Description = fmt.Sprintf("%s (%s)", title, occ.MonetaryValue.StringFixed(2))
	}

	if alert != nil {
		alert.UserID = userID
		alert.OccurredAt = now
		event.SourceID = fmt.Sprintf("%s:%s", alert.AlertType, alert.AlertKey)
		if err := m.store.RecordAlert(ctx, alert, &event); err != nil {
			if errors.Is(err, common.ErrDuplicateEntry) {
				alertsSuppressed.WithLabelValues(string(alert.AlertType)).Inc()
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("failed to record %s alert: %w", alert.AlertType, err)
		}
	} else if err := m.store.SaveEvent(ctx, &event); err != nil {
		return nil, false, fmt.Errorf("failed to save %s event: %w", occ.Type, err)
	}

	alertsRaised.WithLabelValues(string(occ.Type), string(result.Tier)).Inc()

	if err := m.notifier.Notify(ctx, event); err != nil {
		// The event is already persisted; a failed delivery must not re-raise it.
		m.logger.Error("Failed to deliver notification",
			"user_id", userID,
			"event_id", event.ID,
			"error", err)
	}
	return &event, true, nil
}

func (m *Monitor) suppressed(alertType model.AlertType) {
	alertsSuppressed.WithLabelValues(string(alertType)).Inc()
}
