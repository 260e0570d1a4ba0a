package entity

import (
	"time"

	"github.com/google/uuid"
)

type AssetType string

const (
	AssetTypeImage    AssetType = "image"
	AssetTypeVideo    AssetType = "video"
	AssetTypeAudio    AssetType = "audio"
	AssetTypeDocument AssetType = "document"
	AssetTypeOther    AssetType = "other"
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeImage, AssetTypeVideo, AssetTypeAudio, AssetTypeDocument, AssetTypeOther:
		return true
	}
	return false
}

// Asset is the metadata record wrapping one blob in the object store.
// IsShared implies SharedURL != nil.
type Asset struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Filename    string    `json:"filename" gorm:"type:varchar(512);not null"`
	StorageKey  string    `json:"storage_key" gorm:"type:varchar(1024);uniqueIndex;not null"`
	Location    string    `json:"location" gorm:"type:varchar(255);not null"`
	StoreID     string    `json:"-" gorm:"type:varchar(255)"`
	Size        int64     `json:"size" gorm:"not null;check:size >= 0"`
	MimeType    string    `json:"mime_type" gorm:"type:varchar(255)"`
	AssetType   AssetType `json:"asset_type" gorm:"type:varchar(16);not null;index"`
	Tags        string    `json:"tags" gorm:"type:text"`
	Description string    `json:"description" gorm:"type:text"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	IsShared    bool      `json:"is_shared" gorm:"not null;index"`
	SharedURL   *string   `json:"shared_url,omitempty" gorm:"type:varchar(2048)"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;autoCreateTime;index"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Owner *User `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// AssetTypeCount is one row of a per-category aggregate.
type AssetTypeCount struct {
	AssetType AssetType `json:"asset_type"`
	Count     int64     `json:"count"`
	Bytes     int64     `json:"bytes"`
}
