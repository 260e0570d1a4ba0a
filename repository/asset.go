package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tnqbao/gau-asset-service/entity"
)

type AssetFilter struct {
	OwnerID    *uuid.UUID
	SharedOnly bool
	AssetType  entity.AssetType
}

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *AssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Asset, error) {
	var asset entity.Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &asset, nil
}

// List returns assets matching the filter, newest first.
func (r *AssetRepository) List(ctx context.Context, filter AssetFilter) ([]entity.Asset, error) {
	query := r.db.WithContext(ctx).Model(&entity.Asset{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.SharedOnly {
		query = query.Where("is_shared = ?", true)
	}
	if filter.AssetType != "" {
		query = query.Where("asset_type = ?", filter.AssetType)
	}

	var assets []entity.Asset
	if err := query.Order("created_at DESC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *AssetRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Asset, error) {
	return r.List(ctx, AssetFilter{OwnerID: &ownerID})
}

// UpdateMetadata writes only the supplied columns.
func (r *AssetRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&entity.Asset{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssetRepository) MarkShared(ctx context.Context, id uuid.UUID, sharedURL string) error {
	result := r.db.WithContext(ctx).Model(&entity.Asset{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_shared": true, "shared_url": sharedURL})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Asset{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type AssetTotals struct {
	Count       int64
	TotalBytes  int64
	SharedCount int64
}

// Totals aggregates count and bytes; a nil owner aggregates globally.
func (r *AssetRepository) Totals(ctx context.Context, ownerID *uuid.UUID) (AssetTotals, error) {
	query := r.db.WithContext(ctx).Model(&entity.Asset{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var totals AssetTotals
	err := query.Select(
		"COUNT(*) AS count, COALESCE(SUM(size), 0) AS total_bytes, COALESCE(SUM(CASE WHEN is_shared THEN 1 ELSE 0 END), 0) AS shared_count",
	).Scan(&totals).Error
	return totals, err
}

func (r *AssetRepository) CountByType(ctx context.Context, ownerID *uuid.UUID) ([]entity.AssetTypeCount, error) {
	query := r.db.WithContext(ctx).Model(&entity.Asset{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var rows []entity.AssetTypeCount
	err := query.Select("asset_type, COUNT(*) AS count, COALESCE(SUM(size), 0) AS bytes").
		Group("asset_type").
		Order("asset_type").
		Scan(&rows).Error
	return rows, err
}
