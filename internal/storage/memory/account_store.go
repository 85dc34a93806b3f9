package memory

import (
	"context"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Upsert creates the account on first sighting or merges metadata and bumps
// last_seen on subsequent ones.
func (s *AccountStore) Upsert(_ context.Context, address string, metadata map[string]any, seenAt time.Time) (*domain.Account, bool, error) {
	if address == "" {
		return nil, false, storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if id, ok := s.db.accountsByAddress[address]; ok {
		acct := s.db.accounts[id]
		if seenAt.After(acct.LastSeen) {
			acct.LastSeen = seenAt
		}
		for k, v := range metadata {
			acct.Metadata[k] = v
		}
		copied := *acct
		copied.Metadata = cloneMeta(acct.Metadata)
		return &copied, false, nil
	}

	s.db.accountSeq++
	acct := &domain.Account{
		ID:        s.db.accountSeq,
		Address:   address,
		FirstSeen: seenAt,
		LastSeen:  seenAt,
		Metadata:  cloneMeta(metadata),
	}
	s.db.accounts[acct.ID] = acct
	s.db.accountsByAddress[address] = acct.ID

	copied := *acct
	copied.Metadata = cloneMeta(acct.Metadata)
	return &copied, true, nil
}

// GetOrCreate resolves an address to an account, creating a minimal row if
// absent.
func (s *AccountStore) GetOrCreate(ctx context.Context, address, discoveredVia string, seenAt time.Time) (*domain.Account, bool, error) {
	if address == "" {
		return nil, false, storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if id, ok := s.db.accountsByAddress[address]; ok {
		acct := s.db.accounts[id]
		if seenAt.After(acct.LastSeen) {
			acct.LastSeen = seenAt
		}
		copied := *acct
		copied.Metadata = cloneMeta(acct.Metadata)
		return &copied, false, nil
	}

	s.db.accountSeq++
	acct := &domain.Account{
		ID:        s.db.accountSeq,
		Address:   address,
		FirstSeen: seenAt,
		LastSeen:  seenAt,
		Metadata:  map[string]any{"discovered_via": discoveredVia},
	}
	s.db.accounts[acct.ID] = acct
	s.db.accountsByAddress[address] = acct.ID

	copied := *acct
	copied.Metadata = cloneMeta(acct.Metadata)
	return &copied, true, nil
}

// GetByID retrieves an account by row id. Returns ErrNotFound if absent.
func (s *AccountStore) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	acct, ok := s.db.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *acct
	copied.Metadata = cloneMeta(acct.Metadata)
	return &copied, nil
}

// GetByAddress retrieves an account by address. Returns ErrNotFound if absent.
func (s *AccountStore) GetByAddress(_ context.Context, address string) (*domain.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.accountsByAddress[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	acct := s.db.accounts[id]
	copied := *acct
	copied.Metadata = cloneMeta(acct.Metadata)
	return &copied, nil
}

// AddRiskScore increases the account's risk score by delta, clamped to 100.
func (s *AccountStore) AddRiskScore(_ context.Context, id int64, delta float64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	acct, ok := s.db.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	acct.RiskScore += delta
	if acct.RiskScore > domain.MaxRiskScore {
		acct.RiskScore = domain.MaxRiskScore
	}
	return nil
}
