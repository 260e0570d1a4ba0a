package service

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/tnqbao/gau-asset-service/entity"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/repository"
)

const recentActivityLimit = 20

type AssetStats interface {
	Totals(ctx context.Context, ownerID *uuid.UUID) (repository.AssetTotals, error)
	CountByType(ctx context.Context, ownerID *uuid.UUID) ([]entity.AssetTypeCount, error)
}

type TypeBreakdown struct {
	AssetType entity.AssetType `json:"asset_type"`
	Count     int64            `json:"count"`
	Bytes     int64            `json:"bytes"`
	Size      string           `json:"size"`
}

type Summary struct {
	AssetCount     int64                      `json:"asset_count"`
	TotalBytes     int64                      `json:"total_bytes"`
	TotalSize      string                     `json:"total_size"`
	SharedCount    int64                      `json:"shared_count"`
	ByType         []TypeBreakdown            `json:"by_type"`
	RecentActivity []entity.ActivityLog       `json:"recent_activity"`
	ActivityByKind []entity.ActivityKindCount `json:"activity_by_kind,omitempty"`
}

type AnalyticsService struct {
	stats      AssetStats
	activities repository.ActivityRepository
	logger     Logger
}

func NewAnalyticsService(stats AssetStats, activities repository.ActivityRepository, logger Logger) *AnalyticsService {
	return &AnalyticsService{stats: stats, activities: activities, logger: logger}
}

func (s *AnalyticsService) ForUser(ctx context.Context, actor policy.Identity) (*Summary, error) {
	owner := actor.UserID
	summary, err := s.assetSummary(ctx, &owner)
	if err != nil {
		return nil, err
	}

	recent, err := s.activities.ListByActor(ctx, actor.UserID.String(), recentActivityLimit)
	if err != nil {
		s.logger.WarningWithContextf(ctx, "[Analytics] Failed to load activity for %s: %v", actor.UserID, err)
	}
	summary.RecentActivity = nonNilActivity(recent)
	return summary, nil
}

func (s *AnalyticsService) Global(ctx context.Context, actor policy.Identity) (*Summary, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	summary, err := s.assetSummary(ctx, nil)
	if err != nil {
		return nil, err
	}

	recent, err := s.activities.ListRecent(ctx, recentActivityLimit)
	if err != nil {
		s.logger.WarningWithContextf(ctx, "[Analytics] Failed to load recent activity: %v", err)
	}
	summary.RecentActivity = nonNilActivity(recent)

	byKind, err := s.activities.CountByKind(ctx)
	if err != nil {
		s.logger.WarningWithContextf(ctx, "[Analytics] Failed to count activity by kind: %v", err)
	}
	summary.ActivityByKind = byKind
	return summary, nil
}

func (s *AnalyticsService) assetSummary(ctx context.Context, ownerID *uuid.UUID) (*Summary, error) {
	totals, err := s.stats.Totals(ctx, ownerID)
	if err != nil {
		return nil, storageFailure("aggregate assets", err)
	}
	counts, err := s.stats.CountByType(ctx, ownerID)
	if err != nil {
		return nil, storageFailure("aggregate asset types", err)
	}

	summary := &Summary{
		AssetCount:  totals.Count,
		TotalBytes:  totals.TotalBytes,
		TotalSize:   humanize.Bytes(uint64(totals.TotalBytes)),
		SharedCount: totals.SharedCount,
		ByType:      make([]TypeBreakdown, 0, len(counts)),
	}
	for _, c := range counts {
		summary.ByType = append(summary.ByType, TypeBreakdown{
			AssetType: c.AssetType,
			Count:     c.Count,
			Bytes:     c.Bytes,
			Size:      humanize.Bytes(uint64(c.Bytes)),
		})
	}
	return summary, nil
}

func nonNilActivity(entries []entity.ActivityLog) []entity.ActivityLog {
	if entries == nil {
		return []entity.ActivityLog{}
	}
	return entries
}
