package memory

import (
	"context"
	"sort"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// GetOrCreate resolves (code, issuer) to an asset, creating it if absent.
func (s *AssetStore) GetOrCreate(_ context.Context, code, issuer, assetType string, metadata map[string]any) (*domain.Asset, bool, error) {
	if code == "" || issuer == "" {
		return nil, false, storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := code + "|" + issuer
	if id, ok := s.db.assetsByKey[key]; ok {
		asset := s.db.assets[id]
		copied := *asset
		copied.Metadata = cloneMeta(asset.Metadata)
		return &copied, false, nil
	}

	s.db.assetSeq++
	asset := &domain.Asset{
		ID:       s.db.assetSeq,
		Code:     code,
		Issuer:   issuer,
		Type:     assetType,
		Metadata: cloneMeta(metadata),
	}
	s.db.assets[asset.ID] = asset
	s.db.assetsByKey[key] = asset.ID

	copied := *asset
	copied.Metadata = cloneMeta(asset.Metadata)
	return &copied, true, nil
}

// GetByID retrieves an asset by row id. Returns ErrNotFound if absent.
func (s *AssetStore) GetByID(_ context.Context, id int64) (*domain.Asset, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	asset, ok := s.db.assets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *asset
	copied.Metadata = cloneMeta(asset.Metadata)
	return &copied, nil
}

// List returns all known assets ordered by id.
func (s *AssetStore) List(_ context.Context) ([]*domain.Asset, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]*domain.Asset, 0, len(s.db.assets))
	for _, asset := range s.db.assets {
		copied := *asset
		copied.Metadata = cloneMeta(asset.Metadata)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
