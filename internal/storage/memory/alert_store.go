package memory

import (
	"context"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds an alert, filling a.ID and a.CreatedAt.
func (s *AlertStore) Insert(_ context.Context, a *domain.Alert) error {
	if a.AlertType == "" {
		return storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.alertSeq++
	a.ID = s.db.alertSeq
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	copied := *a
	copied.Payload = cloneMeta(a.Payload)
	s.db.alerts = append(s.db.alerts, &copied)
	return nil
}

// HasRecent reports whether an alert of the same type and account with a
// matching dedup key was created at or after the cutoff.
func (s *AlertStore) HasRecent(_ context.Context, alertType string, accountID *int64, dedupKey string, since time.Time) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, a := range s.db.alerts {
		if a.AlertType != alertType || a.CreatedAt.Before(since) {
			continue
		}
		if !int64PtrEqual(a.AccountID, accountID) {
			continue
		}
		if key, _ := a.Payload["dedup_key"].(string); key == dedupKey {
			return true, nil
		}
	}
	return false, nil
}

// FlagStore is an in-memory implementation of storage.FlagStore.
type FlagStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.FlagStore = (*FlagStore)(nil)

// Insert adds a flag, filling f.ID and f.CreatedAt.
func (s *FlagStore) Insert(_ context.Context, f *domain.Flag) error {
	if f.FlagType == "" || f.AccountID == 0 {
		return storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.flagSeq++
	f.ID = s.db.flagSeq
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	copied := *f
	copied.Evidence = cloneMeta(f.Evidence)
	s.db.flags = append(s.db.flags, &copied)
	return nil
}

// HasRecent reports whether a flag of the same type and account with a
// matching dedup key was created at or after the cutoff.
func (s *FlagStore) HasRecent(_ context.Context, flagType string, accountID int64, dedupKey string, since time.Time) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, f := range s.db.flags {
		if f.FlagType != flagType || f.AccountID != accountID || f.CreatedAt.Before(since) {
			continue
		}
		if key, _ := f.Evidence["dedup_key"].(string); key == dedupKey {
			return true, nil
		}
	}
	return false, nil
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
