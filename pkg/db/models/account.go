package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a shopper enrolled in the loyalty program. The referral code is
// minted once at enrollment and never changes.
type Account struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferralCode string    `gorm:"column:referral_code;uniqueIndex;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
