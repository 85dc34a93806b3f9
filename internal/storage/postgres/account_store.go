package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
type AccountStore struct {
	q Querier
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(q Querier) *AccountStore {
	return &AccountStore{q: q}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

const accountColumns = "id, address, first_seen, last_seen, label, risk_score, metadata"

// Upsert creates the account on first sighting or merges metadata and bumps
// last_seen. Concurrent upserts on the same address resolve via the conflict
// clause; the losing writer degrades to an update.
func (s *AccountStore) Upsert(ctx context.Context, address string, metadata map[string]any, seenAt time.Time) (*domain.Account, bool, error) {
	if address == "" {
		return nil, false, storage.ErrInvalidInput
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	// xmax = 0 distinguishes a fresh insert from a conflict-update.
	row := s.q.QueryRow(ctx, `
		INSERT INTO accounts (address, first_seen, last_seen, metadata)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET last_seen = GREATEST(accounts.last_seen, EXCLUDED.last_seen),
		    metadata = accounts.metadata || EXCLUDED.metadata
		RETURNING `+accountColumns+`, (xmax = 0)
	`, address, seenAt, metadata)

	var acct domain.Account
	var created bool
	if err := scanAccountInto(row, &acct, &created); err != nil {
		return nil, false, fmt.Errorf("upsert account: %w", err)
	}
	return &acct, created, nil
}

// GetOrCreate resolves an address to an account, creating a minimal row with
// discovery provenance if absent.
func (s *AccountStore) GetOrCreate(ctx context.Context, address, discoveredVia string, seenAt time.Time) (*domain.Account, bool, error) {
	if address == "" {
		return nil, false, storage.ErrInvalidInput
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO accounts (address, first_seen, last_seen, metadata)
		VALUES ($1, $2, $2, jsonb_build_object('discovered_via', $3::text))
		ON CONFLICT (address) DO UPDATE
		SET last_seen = GREATEST(accounts.last_seen, EXCLUDED.last_seen)
		RETURNING `+accountColumns+`, (xmax = 0)
	`, address, seenAt, discoveredVia)

	var acct domain.Account
	var created bool
	if err := scanAccountInto(row, &acct, &created); err != nil {
		return nil, false, fmt.Errorf("get or create account: %w", err)
	}
	return &acct, created, nil
}

// GetByID retrieves an account by row id. Returns ErrNotFound if absent.
func (s *AccountStore) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := s.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByAddress retrieves an account by address. Returns ErrNotFound if absent.
func (s *AccountStore) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	row := s.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE address = $1`, address)
	return scanAccount(row)
}

// AddRiskScore increases the account's risk score by delta, clamped to 100.
func (s *AccountStore) AddRiskScore(ctx context.Context, id int64, delta float64) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE accounts
		SET risk_score = LEAST($2, risk_score + $3)
		WHERE id = $1
	`, id, domain.MaxRiskScore, delta)
	if err != nil {
		return fmt.Errorf("add risk score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acct domain.Account
	err := row.Scan(
		&acct.ID,
		&acct.Address,
		&acct.FirstSeen,
		&acct.LastSeen,
		&acct.Label,
		&acct.RiskScore,
		&acct.Metadata,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan account row: %w", err)
	}
	return &acct, nil
}

func scanAccountInto(row pgx.Row, acct *domain.Account, created *bool) error {
	return row.Scan(
		&acct.ID,
		&acct.Address,
		&acct.FirstSeen,
		&acct.LastSeen,
		&acct.Label,
		&acct.RiskScore,
		&acct.Metadata,
		created,
	)
}
