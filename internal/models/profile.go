package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile maps an identity to its display nickname. Exactly one row per
// user; created lazily the first time the identity is seen.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Nickname  string    `gorm:"size:100;not null;uniqueIndex" json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultNickname derives the fallback nickname from an email address
// (its local part).
func DefaultNickname(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
