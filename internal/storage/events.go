package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaveEvent persists a classified business event.
func (s *SQLiteStorage) SaveEvent(ctx context.Context, event *model.BusinessEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	return s.saveEventTx(ctx, s.db, event)
}

func (s *SQLiteStorage) saveEventTx(ctx context.Context, q queryable, e *model.BusinessEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC()

	metadata, err := marshalJSON(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode event metadata: %w", err)
	}

	var amount sql.NullString
	if e.Amount != nil {
		amount = sql.NullString{String: e.Amount.String(), Valid: true}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO business_events (id, user_id, event_type, category, tier, tier_rank,
			title, description, amount, source_id, metadata, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID.String(), e.UserID, e.Type, e.Category, e.Tier, e.Tier.Rank(),
		e.Title, e.Description, amount, e.SourceID, metadata, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save business event: %w", err)
	}
	return nil
}

// ListEvents returns business events matching filter, newest first.
func (s *SQLiteStorage) ListEvents(ctx context.Context, filter service.EventFilter) ([]model.BusinessEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listEventsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) listEventsTx(ctx context.Context, q queryable, filter service.EventFilter) ([]model.BusinessEvent, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.UserID != 0 {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "occurred_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if filter.MinTier != "" {
		clauses = append(clauses, "tier_rank >= ?")
		args = append(args, filter.MinTier.Rank())
	}

	query := `SELECT id, user_id, event_type, category, tier, title, description, amount,
		source_id, metadata, occurred_at FROM business_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query business events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.BusinessEvent
	for rows.Next() {
		var (
			e           model.BusinessEvent
			id          string
			description sql.NullString
			amount      sql.NullString
			sourceID    sql.NullString
			metadata    string
		)
		if err := rows.Scan(&id, &e.UserID, &e.Type, &e.Category, &e.Tier, &e.Title,
			&description, &amount, &sourceID, &metadata, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan business event: %w", err)
		}

		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid event ID %q: %w", id, err)
		}
		if amount.Valid {
			d, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("invalid event amount %q: %w", amount.String, err)
			}
			e.Amount = &d
		}
		if err := unmarshalJSON(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode event metadata: %w", err)
		}
		e.Description = description.String
		e.SourceID = sourceID.String
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}

	return events, rows.Err()
}
