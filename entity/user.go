package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/tnqbao/gau-asset-service/policy"
)

type User struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	DisplayName string      `json:"display_name" gorm:"type:varchar(255)"`
	Role        policy.Role `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

func (u *User) Identity() policy.Identity {
	return policy.Identity{UserID: u.ID, DisplayName: u.DisplayName, Role: u.Role}
}
