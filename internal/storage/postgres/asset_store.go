package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL. The native
// asset never reaches this store; callers hold a nil asset reference for it.
type AssetStore struct {
	q Querier
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(q Querier) *AssetStore {
	return &AssetStore{q: q}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// GetOrCreate resolves (code, issuer) to an asset, creating it if absent.
func (s *AssetStore) GetOrCreate(ctx context.Context, code, issuer, assetType string, metadata map[string]any) (*domain.Asset, bool, error) {
	if code == "" || issuer == "" {
		return nil, false, storage.ErrInvalidInput
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	// The no-op update makes RETURNING yield the existing row on conflict.
	row := s.q.QueryRow(ctx, `
		INSERT INTO assets (code, issuer, asset_type, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code, issuer) DO UPDATE SET code = EXCLUDED.code
		RETURNING id, code, issuer, asset_type, metadata, (xmax = 0)
	`, code, issuer, assetType, metadata)

	var asset domain.Asset
	var created bool
	err := row.Scan(&asset.ID, &asset.Code, &asset.Issuer, &asset.Type, &asset.Metadata, &created)
	if err != nil {
		return nil, false, fmt.Errorf("get or create asset: %w", err)
	}
	return &asset, created, nil
}

// GetByID retrieves an asset by row id. Returns ErrNotFound if absent.
func (s *AssetStore) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, code, issuer, asset_type, metadata FROM assets WHERE id = $1
	`, id)

	var asset domain.Asset
	err := row.Scan(&asset.ID, &asset.Code, &asset.Issuer, &asset.Type, &asset.Metadata)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return &asset, nil
}

// List returns all known assets ordered by id.
func (s *AssetStore) List(ctx context.Context) ([]*domain.Asset, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, code, issuer, asset_type, metadata FROM assets ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	return scanAssets(rows)
}

func scanAssets(rows pgx.Rows) ([]*domain.Asset, error) {
	var assets []*domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.Code, &asset.Issuer, &asset.Type, &asset.Metadata); err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}
	return assets, nil
}
