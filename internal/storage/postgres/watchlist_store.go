package postgres

import (
	"context"
	"fmt"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// WatchlistStore implements storage.WatchlistStore using PostgreSQL.
type WatchlistStore struct {
	q Querier
}

// NewWatchlistStore creates a new WatchlistStore.
func NewWatchlistStore(q Querier) *WatchlistStore {
	return &WatchlistStore{q: q}
}

// Compile-time interface check.
var _ storage.WatchlistStore = (*WatchlistStore)(nil)

// CreateWatchlist adds a named watchlist. Returns ErrDuplicateKey if the
// name exists.
func (s *WatchlistStore) CreateWatchlist(ctx context.Context, name string, description *string) (*domain.Watchlist, error) {
	if name == "" {
		return nil, storage.ErrInvalidInput
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO watchlists (name, description) VALUES ($1, $2)
		RETURNING id
	`, name, description)

	wl := &domain.Watchlist{Name: name, Description: description}
	if err := row.Scan(&wl.ID); err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("create watchlist: %w", err)
	}
	return wl, nil
}

// GetWatchlistByName retrieves a watchlist by name.
func (s *WatchlistStore) GetWatchlistByName(ctx context.Context, name string) (*domain.Watchlist, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, name, description FROM watchlists WHERE name = $1
	`, name)

	var wl domain.Watchlist
	if err := row.Scan(&wl.ID, &wl.Name, &wl.Description); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get watchlist by name: %w", err)
	}
	return &wl, nil
}

// AddMember enrolls an account in a watchlist.
func (s *WatchlistStore) AddMember(ctx context.Context, watchlistID, accountID int64, reason *string) (*domain.WatchlistMember, error) {
	if watchlistID == 0 || accountID == 0 {
		return nil, storage.ErrInvalidInput
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO watchlist_members (watchlist_id, account_id, reason)
		VALUES ($1, $2, $3)
		RETURNING id, added_at
	`, watchlistID, accountID, reason)

	member := &domain.WatchlistMember{
		WatchlistID: watchlistID,
		AccountID:   accountID,
		Reason:      reason,
	}
	if err := row.Scan(&member.ID, &member.AddedAt); err != nil {
		return nil, fmt.Errorf("add watchlist member: %w", err)
	}
	return member, nil
}

// ListWatchedAccounts returns the distinct accounts present in any watchlist.
func (s *WatchlistStore) ListWatchedAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id IN (SELECT DISTINCT account_id FROM watchlist_members)
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list watched accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var acct domain.Account
		err := rows.Scan(
			&acct.ID,
			&acct.Address,
			&acct.FirstSeen,
			&acct.LastSeen,
			&acct.Label,
			&acct.RiskScore,
			&acct.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("scan watched account row: %w", err)
		}
		accounts = append(accounts, &acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watched account rows: %w", err)
	}
	return accounts, nil
}
