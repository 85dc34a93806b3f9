package postgres

import (
	"context"
	"fmt"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	q Querier
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(q Querier) *AlertStore {
	return &AlertStore{q: q}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds an alert, filling a.ID and a.CreatedAt.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	if a == nil || a.AlertType == "" {
		return storage.ErrInvalidInput
	}
	if a.Payload == nil {
		a.Payload = map[string]any{}
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO alerts (account_id, asset_id, alert_type, severity, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, a.AccountID, a.AssetID, a.AlertType, a.Severity, a.Payload)

	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// HasRecent reports whether an alert of the same type and account with a
// matching dedup key was created at or after the cutoff.
func (s *AlertStore) HasRecent(ctx context.Context, alertType string, accountID *int64, dedupKey string, since time.Time) (bool, error) {
	row := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE alert_type = $1
			  AND account_id IS NOT DISTINCT FROM $2
			  AND created_at >= $3
			  AND payload->>'dedup_key' = $4
		)
	`, alertType, accountID, since, dedupKey)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check recent alert: %w", err)
	}
	return exists, nil
}

// FlagStore implements storage.FlagStore using PostgreSQL.
type FlagStore struct {
	q Querier
}

// NewFlagStore creates a new FlagStore.
func NewFlagStore(q Querier) *FlagStore {
	return &FlagStore{q: q}
}

// Compile-time interface check.
var _ storage.FlagStore = (*FlagStore)(nil)

// Insert adds a flag, filling f.ID and f.CreatedAt.
func (s *FlagStore) Insert(ctx context.Context, f *domain.Flag) error {
	if f == nil || f.FlagType == "" || f.AccountID == 0 {
		return storage.ErrInvalidInput
	}
	if f.Evidence == nil {
		f.Evidence = map[string]any{}
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO flags (account_id, flag_type, severity, reason, evidence)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, f.AccountID, f.FlagType, f.Severity, f.Reason, f.Evidence)

	if err := row.Scan(&f.ID, &f.CreatedAt); err != nil {
		return fmt.Errorf("insert flag: %w", err)
	}
	return nil
}

// HasRecent reports whether a flag of the same type and account with a
// matching dedup key was created at or after the cutoff.
func (s *FlagStore) HasRecent(ctx context.Context, flagType string, accountID int64, dedupKey string, since time.Time) (bool, error) {
	row := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM flags
			WHERE flag_type = $1
			  AND account_id = $2
			  AND created_at >= $3
			  AND evidence->>'dedup_key' = $4
		)
	`, flagType, accountID, since, dedupKey)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check recent flag: %w", err)
	}
	return exists, nil
}
