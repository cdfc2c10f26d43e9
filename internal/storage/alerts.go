package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
)

// InsertAlert records that an alert was raised. A second insert with the same
// (user, type, key) returns common.ErrDuplicateEntry.
func (s *SQLiteStorage) InsertAlert(ctx context.Context, alert *model.AlertRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}
	return s.insertAlertTx(ctx, s.db, alert)
}

func (s *SQLiteStorage) insertAlertTx(ctx context.Context, q queryable, a *model.AlertRecord) error {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now()
	}
	a.OccurredAt = a.OccurredAt.UTC()

	payload, err := marshalJSON(a.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode alert payload: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO alerts (user_id, alert_type, alert_key, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, alert_type, alert_key) DO NOTHING
	`, a.UserID, a.AlertType, a.AlertKey, payload, a.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s/%s: %w", a.AlertType, a.AlertKey, common.ErrDuplicateEntry)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get alert ID: %w", err)
	}
	a.ID = id
	return nil
}

// FindAlerts returns userID's alerts of alertType raised at or after since,
// newest first.
func (s *SQLiteStorage) FindAlerts(ctx context.Context, userID int64, alertType model.AlertType, since time.Time) ([]model.AlertRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.findAlertsTx(ctx, s.db, userID, alertType, since)
}

func (s *SQLiteStorage) findAlertsTx(ctx context.Context, q queryable, userID int64, alertType model.AlertType, since time.Time) ([]model.AlertRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, alert_type, alert_key, payload, occurred_at
		FROM alerts
		WHERE user_id = ? AND alert_type = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC, id DESC
	`, userID, alertType, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.AlertRecord
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// LatestAlert returns userID's most recent alert of any of types, or nil when
// there is none.
func (s *SQLiteStorage) LatestAlert(ctx context.Context, userID int64, types ...model.AlertType) (*model.AlertRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.latestAlertTx(ctx, s.db, userID, types)
}

func (s *SQLiteStorage) latestAlertTx(ctx context.Context, q queryable, userID int64, types []model.AlertType) (*model.AlertRecord, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: alert types", ErrNilParameter)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := make([]any, 0, len(types)+1)
	args = append(args, userID)
	for _, t := range types {
		args = append(args, t)
	}

	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, alert_type, alert_key, payload, occurred_at
		FROM alerts
		WHERE user_id = ? AND alert_type IN (`+placeholders+`)
		ORDER BY occurred_at DESC, id DESC
		LIMIT 1
	`, args...)

	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RecordAlert inserts the alert and its business event atomically. When the
// alert already exists nothing is written and common.ErrDuplicateEntry is
// returned.
func (s *SQLiteStorage) RecordAlert(ctx context.Context, alert *model.AlertRecord, event *model.BusinessEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertAlertTx(ctx, tx, alert); err != nil {
		return err
	}
	if err := s.saveEventTx(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit()
}

func scanAlert(row scanner) (*model.AlertRecord, error) {
	var (
		a       model.AlertRecord
		payload string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.AlertType, &a.AlertKey, &payload, &a.OccurredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	if err := unmarshalJSON(payload, &a.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode alert payload: %w", err)
	}
	a.OccurredAt = a.OccurredAt.UTC()
	return &a, nil
}

func marshalJSON(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalJSON(s string, dst *map[string]any) error {
	if s == "" {
		*dst = map[string]any{}
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}
