package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// EdgeStore is an in-memory implementation of storage.EdgeStore.
type EdgeStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.EdgeStore = (*EdgeStore)(nil)

func edgeKeyFor(from, to int64, assetID *int64) edgeKey {
	k := edgeKey{from: from, to: to}
	if assetID != nil {
		k.asset = *assetID
	}
	return k
}

// Accumulate increments the (from, to, asset) edge by one transfer of the
// given amount, creating it if absent.
func (s *EdgeStore) Accumulate(_ context.Context, fromAccountID, toAccountID int64, assetID *int64, amount decimal.Decimal, seenAt time.Time) error {
	if fromAccountID == 0 || toAccountID == 0 {
		return storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := edgeKeyFor(fromAccountID, toAccountID, assetID)
	if edge, ok := s.db.edges[key]; ok {
		edge.TxCount++
		edge.TotalAmount = edge.TotalAmount.Add(amount)
		if seenAt.After(edge.LastSeen) {
			edge.LastSeen = seenAt
		}
		return nil
	}

	s.db.edgeSeq++
	edge := &domain.CounterpartyEdge{
		ID:            s.db.edgeSeq,
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		TxCount:       1,
		TotalAmount:   amount,
		LastSeen:      seenAt,
	}
	if assetID != nil {
		v := *assetID
		edge.AssetID = &v
	}
	s.db.edges[key] = edge
	return nil
}

// Get retrieves one edge. Returns ErrNotFound if absent.
func (s *EdgeStore) Get(_ context.Context, fromAccountID, toAccountID int64, assetID *int64) (*domain.CounterpartyEdge, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	edge, ok := s.db.edges[edgeKeyFor(fromAccountID, toAccountID, assetID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *edge
	return &copied, nil
}

// ListTouchingAccount returns edges where the account is either endpoint and
// last_seen is at or after the cutoff, ordered by last_seen descending.
func (s *EdgeStore) ListTouchingAccount(_ context.Context, accountID int64, since time.Time) ([]*domain.CounterpartyEdge, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*domain.CounterpartyEdge
	for _, edge := range s.db.edges {
		if edge.FromAccountID != accountID && edge.ToAccountID != accountID {
			continue
		}
		if edge.LastSeen.Before(since) {
			continue
		}
		copied := *edge
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out, nil
}
