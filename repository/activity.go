package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tnqbao/gau-asset-service/entity"
)

// ActivityRepository is the append-only activity log. Entries are only
// removed when their actor is purged.
type ActivityRepository interface {
	Insert(ctx context.Context, entry *entity.ActivityLog) error
	ListByActor(ctx context.Context, actorID string, limit int) ([]entity.ActivityLog, error)
	ListRecent(ctx context.Context, limit int) ([]entity.ActivityLog, error)
	CountByKind(ctx context.Context) ([]entity.ActivityKindCount, error)
	DeleteByActor(ctx context.Context, actorID string) (int64, error)
}

// ActivityPostgresRepository stores the log in activity_logs when no
// document store is configured.
type ActivityPostgresRepository struct {
	db *gorm.DB
}

func NewActivityPostgresRepository(db *gorm.DB) *ActivityPostgresRepository {
	return &ActivityPostgresRepository{db: db}
}

func (r *ActivityPostgresRepository) Insert(ctx context.Context, entry *entity.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ActivityPostgresRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]entity.ActivityLog, error) {
	var entries []entity.ActivityLog
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *ActivityPostgresRepository) ListRecent(ctx context.Context, limit int) ([]entity.ActivityLog, error) {
	var entries []entity.ActivityLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *ActivityPostgresRepository) CountByKind(ctx context.Context) ([]entity.ActivityKindCount, error) {
	var rows []entity.ActivityKindCount
	err := r.db.WithContext(ctx).Model(&entity.ActivityLog{}).
		Select("kind, COUNT(*) AS count").
		Group("kind").
		Order("kind").
		Scan(&rows).Error
	return rows, err
}

func (r *ActivityPostgresRepository) DeleteByActor(ctx context.Context, actorID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("actor_id = ?", actorID).Delete(&entity.ActivityLog{})
	return result.RowsAffected, result.Error
}
