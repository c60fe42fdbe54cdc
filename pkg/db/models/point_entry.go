package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quorumhq/quorum-backend/pkg/enums"
)

// PointEntry records one immutable balance-affecting event. BalanceAfter is the
// user's balance immediately after the entry applied; summing Amount over a
// user's entries in creation order must always reproduce users.points.
type PointEntry struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Amount            int64                    `gorm:"column:amount;not null"`
	BalanceAfter      int64                    `gorm:"column:balance_after;not null"`
	Kind              enums.PointEntryKind     `gorm:"column:kind;type:point_entry_kind;not null"`
	Description       string                   `gorm:"column:description;type:text;not null"`
	RelatedEntityType *enums.RelatedEntityType `gorm:"column:related_entity_type;type:text"`
	RelatedEntityID   *uuid.UUID               `gorm:"column:related_entity_id;type:uuid"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
}
