package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tnqbao/gau-asset-service/entity"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/repository"
)

type ActivityDetails struct {
	AssetID       string
	AssetFilename string
	Err           error
	Duration      time.Duration
	Metadata      map[string]interface{}
}

// ActivityRecorder appends to the activity log. Record never fails its
// caller; store errors are logged and dropped.
type ActivityRecorder struct {
	repo   repository.ActivityRepository
	logger Logger
	now    func() time.Time
}

func NewActivityRecorder(repo repository.ActivityRepository, logger Logger) *ActivityRecorder {
	return &ActivityRecorder{repo: repo, logger: logger, now: time.Now}
}

func (r *ActivityRecorder) Record(ctx context.Context, kind entity.ActivityKind, actorID, actorName string, details ActivityDetails) {
	entry := &entity.ActivityLog{
		ID:        uuid.NewString(),
		Kind:      kind,
		ActorID:   actorID,
		ActorName: actorName,
		Metadata:  details.Metadata,
		CreatedAt: r.now().UTC(),
	}
	if details.AssetID != "" {
		entry.AssetID = &details.AssetID
	}
	if details.AssetFilename != "" {
		entry.AssetFilename = &details.AssetFilename
	}
	if details.Err != nil {
		msg := details.Err.Error()
		entry.Error = &msg
	}
	if details.Duration > 0 {
		ms := details.Duration.Milliseconds()
		entry.DurationMs = &ms
	}

	if err := r.repo.Insert(ctx, entry); err != nil {
		r.logger.WarningWithContextf(ctx, "[Activity] Failed to record %s for actor %s: %v", kind, actorID, err)
	}
}

func (r *ActivityRecorder) RecordUpload(ctx context.Context, actor policy.Identity, asset *entity.Asset, took time.Duration) {
	r.Record(ctx, entity.ActivityUpload, actor.UserID.String(), actor.DisplayName, ActivityDetails{
		AssetID:       asset.ID.String(),
		AssetFilename: asset.Filename,
		Duration:      took,
		Metadata: map[string]interface{}{
			"size":       asset.Size,
			"asset_type": string(asset.AssetType),
		},
	})
}

func (r *ActivityRecorder) RecordView(ctx context.Context, actor policy.Identity, asset *entity.Asset, mode string) {
	r.Record(ctx, entity.ActivityView, actor.UserID.String(), actor.DisplayName, ActivityDetails{
		AssetID:       asset.ID.String(),
		AssetFilename: asset.Filename,
		Metadata:      map[string]interface{}{"mode": mode},
	})
}

func (r *ActivityRecorder) RecordDelete(ctx context.Context, actor policy.Identity, asset *entity.Asset) {
	r.Record(ctx, entity.ActivityDelete, actor.UserID.String(), actor.DisplayName, ActivityDetails{
		AssetID:       asset.ID.String(),
		AssetFilename: asset.Filename,
	})
}

func (r *ActivityRecorder) RecordShare(ctx context.Context, actor policy.Identity, asset *entity.Asset) {
	r.Record(ctx, entity.ActivityShare, actor.UserID.String(), actor.DisplayName, ActivityDetails{
		AssetID:       asset.ID.String(),
		AssetFilename: asset.Filename,
	})
}

func (r *ActivityRecorder) RecordFailure(ctx context.Context, kind entity.ActivityKind, actor policy.Identity, assetID, filename string, cause error) {
	r.Record(ctx, kind, actor.UserID.String(), actor.DisplayName, ActivityDetails{
		AssetID:       assetID,
		AssetFilename: filename,
		Err:           cause,
	})
}
