package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Points is a materialized
// projection of the user's point entries; only the ledger writes it.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string    `gorm:"type:text;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name;not null"`
	Points      int64     `gorm:"column:points;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
