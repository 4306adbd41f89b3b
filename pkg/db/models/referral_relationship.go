package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/spiralshops/spiral-loyalty/pkg/enums"
)

// ReferralRelationship links a referee to the referrer whose code they used.
// Attribution is first-touch: the unique index on referee_account_id caps a
// referee at one relationship for life.
type ReferralRelationship struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferrerAccountID uuid.UUID            `gorm:"column:referrer_account_id;type:uuid;not null;index"`
	RefereeAccountID  uuid.UUID            `gorm:"column:referee_account_id;type:uuid;uniqueIndex;not null"`
	Code              string               `gorm:"column:code;not null"`
	Status            enums.ReferralStatus `gorm:"column:status;type:referral_status_enum;not null;default:pending"`
	QualifiedAt       *time.Time           `gorm:"column:qualified_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
}
