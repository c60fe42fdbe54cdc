package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is a prompt owned by its author. Resolved is derived state: true
// exactly when at least one of the question's answers is currently accepted.
type Question struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null;index"`
	Title     string    `gorm:"column:title;type:text;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	Resolved  bool      `gorm:"column:resolved;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
