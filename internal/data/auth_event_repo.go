package data

// Package data contains database repositories. Connections use
// database/sql with the pgx stdlib driver.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/helsevakt/vaksineportal/internal/errors"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

// AuthEventRepo records session lifecycle events for auditing.
type AuthEventRepo struct {
	DB *sql.DB
}

var _ ports.AuthEventRecorder = (*AuthEventRepo)(nil)

// NewAuthEventRepo creates a new AuthEventRepo.
func NewAuthEventRepo(db *sql.DB) *AuthEventRepo {
	return &AuthEventRepo{DB: db}
}

// Record inserts an audit event. Missing IDs and timestamps are filled in.
func (r *AuthEventRepo) Record(ctx context.Context, ev ports.AuthEvent) error {
	if ev.Kind == "" {
		return apperrors.Validation("auth event kind is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO auth_events (id, kind, account_id, username, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.DB.ExecContext(ctx, query,
		ev.ID, ev.Kind, ev.AccountID, ev.Username, ev.Detail, ev.OccurredAt,
	); err != nil {
		return apperrors.MapDBError(fmt.Errorf("insert auth event: %w", err))
	}
	return nil
}

// ListRecent returns up to limit events ordered newest first, optionally
// filtered by account.
func (r *AuthEventRepo) ListRecent(ctx context.Context, accountID string, limit int) ([]ports.AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, account_id, username, detail, occurred_at
		FROM auth_events`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = $1`
		args = append(args, accountID)
	}
	query += fmt.Sprintf(` ORDER BY occurred_at DESC LIMIT %d`, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list auth events: %w", err))
	}
	defer rows.Close()

	var events []ports.AuthEvent
	for rows.Next() {
		var ev ports.AuthEvent
		if scanErr := rows.Scan(&ev.ID, &ev.Kind, &ev.AccountID, &ev.Username, &ev.Detail, &ev.OccurredAt); scanErr != nil {
			return nil, apperrors.MapDBError(fmt.Errorf("scan auth event: %w", scanErr))
		}
		events = append(events, ev)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperrors.MapDBError(rowsErr)
	}
	return events, nil
}

// PurgeOlderThan deletes audit events older than the cutoff and returns how
// many were removed.
func (r *AuthEventRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM auth_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("purge auth events: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
