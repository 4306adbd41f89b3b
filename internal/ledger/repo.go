package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	"github.com/spiralshops/spiral-loyalty/pkg/pagination"
)

// Totals aggregates entry amounts per kind/status bucket for one account.
type Totals struct {
	CompletedEarn   int64
	CompletedRedeem int64
	PendingEarn     int64
}

// ListParams filters and pages the per-account entry listing.
type ListParams struct {
	AccountID uuid.UUID
	Kind      *enums.EntryKind
	Page      pagination.Params
}

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	List(ctx context.Context, params ListParams) ([]models.LedgerEntry, error)
	Totals(ctx context.Context, accountID uuid.UUID) (Totals, error)
	FindByOrder(ctx context.Context, accountID uuid.UUID, orderID string, source enums.EntrySource) (*models.LedgerEntry, error)
	LockAccount(ctx context.Context, accountID uuid.UUID) (bool, error)
	CompleteByOrder(ctx context.Context, orderID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.LedgerEntry, error) {
	page := params.Page.Normalize()
	query := r.db.WithContext(ctx).
		Where("account_id = ?", params.AccountID)
	if params.Kind != nil {
		query = query.Where("kind = ?", *params.Kind)
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

type totalsRow struct {
	Kind   enums.EntryKind
	Status enums.EntryStatus
	Total  int64
}

func (r *repository) Totals(ctx context.Context, accountID uuid.UUID) (Totals, error) {
	var rows []totalsRow
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("kind, status, COALESCE(SUM(amount), 0) AS total").
		Where("account_id = ?", accountID).
		Group("kind").
		Group("status").
		Scan(&rows).Error; err != nil {
		return Totals{}, err
	}

	var totals Totals
	for _, row := range rows {
		switch {
		case row.Kind == enums.EntryKindEarn && row.Status == enums.EntryStatusCompleted:
			totals.CompletedEarn = row.Total
		case row.Kind == enums.EntryKindRedeem && row.Status == enums.EntryStatusCompleted:
			totals.CompletedRedeem = row.Total
		case row.Kind == enums.EntryKindEarn && row.Status == enums.EntryStatusPending:
			totals.PendingEarn = row.Total
		}
	}
	return totals, nil
}

func (r *repository) FindByOrder(ctx context.Context, accountID uuid.UUID, orderID string, source enums.EntrySource) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND related_order_id = ? AND source = ?", accountID, orderID, source).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// LockAccount takes a row lock on the account for the duration of the
// surrounding transaction and reports whether the account exists. Redemptions
// rely on this lock to serialize balance checks per account. sqlite has a
// single writer and rejects FOR UPDATE, so the clause is postgres-only.
func (r *repository) LockAccount(ctx context.Context, accountID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var account models.Account
	err := query.Select("id").First(&account, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) CompleteByOrder(ctx context.Context, orderID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("related_order_id = ? AND status = ?", orderID, enums.EntryStatusPending).
		Update("status", enums.EntryStatusCompleted)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
