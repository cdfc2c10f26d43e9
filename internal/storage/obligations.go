package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/model"
	"github.com/Veraticus/spice-ops/internal/service"
)

const obligationColumns = `id, user_id, kind, name, amount, frequency, status, probability,
	start_date, end_date, active, created_at, updated_at`

// CreateObligation inserts a new contract or expense and sets its ID.
func (s *SQLiteStorage) CreateObligation(ctx context.Context, obligation *model.Obligation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateObligation(obligation); err != nil {
		return err
	}
	return s.createObligationTx(ctx, s.db, obligation)
}

func (s *SQLiteStorage) createObligationTx(ctx context.Context, q queryable, o *model.Obligation) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	result, err := q.ExecContext(ctx, `
		INSERT INTO obligations (user_id, kind, name, amount, frequency, status, probability,
			start_date, end_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.UserID, o.Kind, o.Name, o.Amount.String(), o.Frequency, nullStatus(o.Status), o.Probability,
		o.StartDate.UTC(), nullTime(o.EndDate), o.Active, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create obligation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get obligation ID: %w", err)
	}
	o.ID = id
	return nil
}

// UpdateObligation overwrites every mutable field of an existing obligation.
func (s *SQLiteStorage) UpdateObligation(ctx context.Context, obligation *model.Obligation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateObligation(obligation); err != nil {
		return err
	}
	return s.updateObligationTx(ctx, s.db, obligation)
}

func (s *SQLiteStorage) updateObligationTx(ctx context.Context, q queryable, o *model.Obligation) error {
	o.UpdatedAt = time.Now().UTC()

	result, err := q.ExecContext(ctx, `
		UPDATE obligations
		SET name = ?, amount = ?, frequency = ?, status = ?, probability = ?,
			start_date = ?, end_date = ?, active = ?
		WHERE id = ?
	`, o.Name, o.Amount.String(), o.Frequency, nullStatus(o.Status), o.Probability,
		o.StartDate.UTC(), nullTime(o.EndDate), o.Active, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update obligation: %w", err)
	}
	return requireRow(result, "obligation", o.ID)
}

// UpdateObligationStatus moves a contract to a new lifecycle status.
func (s *SQLiteStorage) UpdateObligationStatus(ctx context.Context, id int64, status model.ContractStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.updateObligationStatusTx(ctx, s.db, id, status)
}

func (s *SQLiteStorage) updateObligationStatusTx(ctx context.Context, q queryable, id int64, status model.ContractStatus) error {
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, `
		UPDATE obligations SET status = ? WHERE id = ? AND kind = ?
	`, status, id, model.KindContract)
	if err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}
	return requireRow(result, "contract", id)
}

// GetObligation retrieves an obligation by ID.
func (s *SQLiteStorage) GetObligation(ctx context.Context, id int64) (*model.Obligation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getObligationTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getObligationTx(ctx context.Context, q queryable, id int64) (*model.Obligation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)

	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("obligation %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get obligation: %w", err)
	}
	return o, nil
}

// ListObligations returns obligations matching filter, oldest start first.
func (s *SQLiteStorage) ListObligations(ctx context.Context, filter service.ObligationFilter) ([]model.Obligation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listObligationsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) listObligationsTx(ctx context.Context, q queryable, filter service.ObligationFilter) ([]model.Obligation, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.UserID != 0 {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "active = 1")
	}

	query := `SELECT ` + obligationColumns + ` FROM obligations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_date, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var obligations []model.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		obligations = append(obligations, *o)
	}

	return obligations, rows.Err()
}

// DeleteObligation removes an obligation permanently.
func (s *SQLiteStorage) DeleteObligation(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deleteObligationTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteObligationTx(ctx context.Context, q queryable, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete obligation: %w", err)
	}
	return requireRow(result, "obligation", id)
}

// GetUserIDs lists every user that owns at least one obligation.
func (s *SQLiteStorage) GetUserIDs(ctx context.Context) ([]int64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUserIDsTx(ctx, s.db)
}

func (s *SQLiteStorage) getUserIDsTx(ctx context.Context, q queryable) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT DISTINCT user_id FROM obligations ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObligation(row scanner) (*model.Obligation, error) {
	var (
		o       model.Obligation
		amount  string
		status  sql.NullString
		endDate sql.NullTime
	)

	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Kind,
		&o.Name,
		&amount,
		&o.Frequency,
		&status,
		&o.Probability,
		&o.StartDate,
		&endDate,
		&o.Active,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := o.Amount.Scan(amount); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrDatabaseCorrupted, err)
	}
	o.Status = model.ContractStatus(status.String)
	o.StartDate = o.StartDate.UTC()
	if endDate.Valid {
		end := endDate.Time.UTC()
		o.EndDate = &end
	}
	return &o, nil
}

func nullStatus(status model.ContractStatus) sql.NullString {
	return sql.NullString{String: string(status), Valid: status != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func requireRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, common.ErrNotFound)
	}
	return nil
}
