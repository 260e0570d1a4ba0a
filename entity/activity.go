package entity

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityKind string

const (
	ActivityUpload       ActivityKind = "upload"
	ActivityView         ActivityKind = "view"
	ActivityDelete       ActivityKind = "delete"
	ActivityShare        ActivityKind = "share"
	ActivityUpdate       ActivityKind = "update"
	ActivityFailedUpload ActivityKind = "failed_upload"
	ActivityFailedDelete ActivityKind = "failed_delete"
	ActivityFailedShare  ActivityKind = "failed_share"
	ActivityRoleChange   ActivityKind = "role_change"
	ActivityUserDelete   ActivityKind = "user_delete"
)

// ActivityLog is append-only. The same struct is stored as a Mongo document
// or, without a document store, as a row in activity_logs.
type ActivityLog struct {
	ID            string            `json:"id" bson:"_id" gorm:"type:varchar(36);primaryKey"`
	Kind          ActivityKind      `json:"kind" bson:"kind" gorm:"type:varchar(32);not null;index"`
	ActorID       string            `json:"actor_id" bson:"actorId" gorm:"type:varchar(36);not null;index"`
	ActorName     string            `json:"actor_name" bson:"actorName" gorm:"type:varchar(255)"`
	AssetID       *string           `json:"asset_id,omitempty" bson:"assetId,omitempty" gorm:"type:varchar(36);index"`
	AssetFilename *string           `json:"asset_filename,omitempty" bson:"assetFilename,omitempty" gorm:"type:varchar(512)"`
	Error         *string           `json:"error,omitempty" bson:"error,omitempty" gorm:"type:text"`
	DurationMs    *int64            `json:"duration_ms,omitempty" bson:"durationMs,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" bson:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" bson:"createdAt" gorm:"not null;index"`
}

// ActivityKindCount is one row of a per-kind aggregate.
type ActivityKindCount struct {
	Kind  ActivityKind `json:"kind" bson:"_id"`
	Count int64        `json:"count" bson:"count"`
}
