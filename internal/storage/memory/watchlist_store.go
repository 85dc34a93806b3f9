package memory

import (
	"context"
	"sort"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// WatchlistStore is an in-memory implementation of storage.WatchlistStore.
type WatchlistStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.WatchlistStore = (*WatchlistStore)(nil)

// CreateWatchlist adds a named watchlist. Returns ErrDuplicateKey if the
// name exists.
func (s *WatchlistStore) CreateWatchlist(_ context.Context, name string, description *string) (*domain.Watchlist, error) {
	if name == "" {
		return nil, storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.watchlistByName[name]; ok {
		return nil, storage.ErrDuplicateKey
	}

	s.db.watchlistSeq++
	wl := &domain.Watchlist{
		ID:   s.db.watchlistSeq,
		Name: name,
	}
	if description != nil {
		v := *description
		wl.Description = &v
	}
	s.db.watchlists[wl.ID] = wl
	s.db.watchlistByName[name] = wl.ID

	copied := *wl
	return &copied, nil
}

// GetWatchlistByName retrieves a watchlist by name.
func (s *WatchlistStore) GetWatchlistByName(_ context.Context, name string) (*domain.Watchlist, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.watchlistByName[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *s.db.watchlists[id]
	if copied.Description != nil {
		v := *copied.Description
		copied.Description = &v
	}
	return &copied, nil
}

// AddMember enrolls an account in a watchlist.
func (s *WatchlistStore) AddMember(_ context.Context, watchlistID, accountID int64, reason *string) (*domain.WatchlistMember, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.watchlists[watchlistID]; !ok {
		return nil, storage.ErrNotFound
	}
	if _, ok := s.db.accounts[accountID]; !ok {
		return nil, storage.ErrNotFound
	}

	s.db.memberSeq++
	m := &domain.WatchlistMember{
		ID:          s.db.memberSeq,
		WatchlistID: watchlistID,
		AccountID:   accountID,
		AddedAt:     time.Now().UTC(),
	}
	if reason != nil {
		v := *reason
		m.Reason = &v
	}
	s.db.members = append(s.db.members, m)

	copied := *m
	return &copied, nil
}

// ListWatchedAccounts returns the distinct accounts present in any
// watchlist, ordered by id.
func (s *WatchlistStore) ListWatchedAccounts(_ context.Context) ([]*domain.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	seen := make(map[int64]bool)
	var out []*domain.Account
	for _, m := range s.db.members {
		if seen[m.AccountID] {
			continue
		}
		seen[m.AccountID] = true
		acct, ok := s.db.accounts[m.AccountID]
		if !ok {
			continue
		}
		copied := *acct
		copied.Metadata = cloneMeta(acct.Metadata)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
