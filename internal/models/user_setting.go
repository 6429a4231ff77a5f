package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCupSizeML is assumed when a user has no settings row.
const DefaultCupSizeML = 250

type UserSetting struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CupSizeML int       `gorm:"not null;default:250" json:"cup_size_ml"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
