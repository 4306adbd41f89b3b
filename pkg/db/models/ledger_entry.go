package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/spiralshops/spiral-loyalty/pkg/enums"
)

// LedgerEntry is one immutable movement of points on an account. Amount is
// always positive; Kind decides the direction. Completed entries are never
// updated or deleted; corrections are compensating entries. The only allowed
// mutation is the pending to completed status transition on delivery
// confirmation.
type LedgerEntry struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID      uuid.UUID         `gorm:"column:account_id;type:uuid;not null;index"`
	Kind           enums.EntryKind   `gorm:"column:kind;type:entry_kind_enum;not null"`
	Amount         int64             `gorm:"column:amount;not null"`
	Source         enums.EntrySource `gorm:"column:source;type:entry_source_enum;not null"`
	Description    string            `gorm:"column:description"`
	RelatedOrderID *string           `gorm:"column:related_order_id"`
	Status         enums.EntryStatus `gorm:"column:status;type:entry_status_enum;not null;default:completed"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
