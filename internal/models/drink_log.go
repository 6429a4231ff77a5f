package models

import (
	"time"

	"github.com/google/uuid"
)

// DrinkLog rows are append-only; never mutated or deleted. The "today
// total" is recomputed from them on demand rather than kept as a counter.
type DrinkLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	AmountML  int       `gorm:"not null" json:"amount_ml"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
