package models

import (
	"time"

	"github.com/google/uuid"
)

// Answer belongs to exactly one question. AcceptedAt is set when Accepted
// transitions to true and cleared when it transitions back.
type Answer struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuestionID uuid.UUID  `gorm:"column:question_id;type:uuid;not null;index"`
	AuthorID   uuid.UUID  `gorm:"column:author_id;type:uuid;not null;index"`
	Body       string     `gorm:"column:body;type:text;not null"`
	Accepted   bool       `gorm:"column:accepted;not null;default:false"`
	AcceptedAt *time.Time `gorm:"column:accepted_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
