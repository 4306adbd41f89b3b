package referrals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
)

// Repository manages persistence for referral relationships.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, relationship *models.ReferralRelationship) error
	GetByReferee(ctx context.Context, refereeID uuid.UUID) (*models.ReferralRelationship, error)
	MarkQualified(ctx context.Context, refereeID uuid.UUID, at time.Time) (bool, error)
	CountByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, relationship *models.ReferralRelationship) error {
	if relationship.ID == uuid.Nil {
		relationship.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(relationship).Error
}

func (r *repository) GetByReferee(ctx context.Context, refereeID uuid.UUID) (*models.ReferralRelationship, error) {
	var relationship models.ReferralRelationship
	err := r.db.WithContext(ctx).
		First(&relationship, "referee_account_id = ?", refereeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &relationship, nil
}

// MarkQualified flips a pending relationship to qualified and reports whether
// this call made the transition. The status guard in the WHERE clause keeps
// the bonus exactly-once under redelivery.
func (r *repository) MarkQualified(ctx context.Context, refereeID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReferralRelationship{}).
		Where("referee_account_id = ? AND status = ?", refereeID, enums.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":       enums.ReferralStatusQualified,
			"qualified_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CountByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReferralRelationship{}).
		Where("referrer_account_id = ?", referrerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
