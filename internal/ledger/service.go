package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spiralshops/spiral-loyalty/pkg/db"
	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
	"github.com/spiralshops/spiral-loyalty/pkg/metrics"
)

// Typed failures callers branch on.
var (
	ErrInsufficientBalance = pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient balance")
	ErrDuplicateGrant      = pkgerrors.New(pkgerrors.CodeConflict, "entry already recorded for this order")
	ErrAccountNotFound     = pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the append-only points ledger and the balances derived from it.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error)
	ListByAccount(ctx context.Context, params ListParams) ([]models.LedgerEntry, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error)
	FindByOrder(ctx context.Context, accountID uuid.UUID, orderID string, source enums.EntrySource) (*models.LedgerEntry, error)
	ConfirmOrder(ctx context.Context, orderID string) (int64, error)
}

// AppendInput captures a draft ledger entry. Amount is positive regardless of
// direction; Status defaults to completed.
type AppendInput struct {
	AccountID      uuid.UUID
	Kind           enums.EntryKind
	Amount         int64
	Source         enums.EntrySource
	Description    string
	RelatedOrderID *string
	Status         enums.EntryStatus
}

// Balance is computed from the ledger on every read so it can never drift
// from the entries themselves.
type Balance struct {
	CurrentBalance int64 `json:"currentBalance"`
	PendingBalance int64 `json:"pendingBalance"`
	TotalEarned    int64 `json:"totalEarned"`
	TotalRedeemed  int64 `json:"totalRedeemed"`
}

// ServiceParams wires the ledger service dependencies.
type ServiceParams struct {
	Repo    Repository
	Tx      TxRunner
	Metrics *metrics.LoyaltyMetrics
}

type service struct {
	repo    Repository
	tx      TxRunner
	metrics *metrics.LoyaltyMetrics
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		metrics: params.Metrics,
	}, nil
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error) {
	if err := validateAppend(&input); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		AccountID:      input.AccountID,
		Kind:           input.Kind,
		Amount:         input.Amount,
		Source:         input.Source,
		Description:    strings.TrimSpace(input.Description),
		RelatedOrderID: input.RelatedOrderID,
		Status:         input.Status,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		found, err := txRepo.LockAccount(ctx, input.AccountID)
		if err != nil {
			return fmt.Errorf("locking account: %w", err)
		}
		if !found {
			return ErrAccountNotFound
		}

		if input.Kind == enums.EntryKindRedeem {
			totals, err := txRepo.Totals(ctx, input.AccountID)
			if err != nil {
				return fmt.Errorf("reading balance: %w", err)
			}
			current := totals.CompletedEarn - totals.CompletedRedeem
			if input.Amount > current {
				s.metrics.IncRedemptionReject()
				return ErrInsufficientBalance
			}
		}

		if err := txRepo.Create(ctx, entry); err != nil {
			if db.IsUniqueViolation(err, "idx_ledger_entries_order_source") {
				s.metrics.IncDuplicateGrant()
				return ErrDuplicateGrant
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveEntry(string(entry.Kind), string(entry.Source), entry.Amount)
	return entry, nil
}

func (s *service) ListByAccount(ctx context.Context, params ListParams) ([]models.LedgerEntry, error) {
	if params.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if params.Kind != nil && !params.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry kind %q", *params.Kind))
	}
	return s.repo.List(ctx, params)
}

func (s *service) GetBalance(ctx context.Context, accountID uuid.UUID) (*Balance, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	totals, err := s.repo.Totals(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		CurrentBalance: totals.CompletedEarn - totals.CompletedRedeem,
		PendingBalance: totals.PendingEarn,
		TotalEarned:    totals.CompletedEarn,
		TotalRedeemed:  totals.CompletedRedeem,
	}, nil
}

func (s *service) FindByOrder(ctx context.Context, accountID uuid.UUID, orderID string, source enums.EntrySource) (*models.LedgerEntry, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.FindByOrder(ctx, accountID, orderID, source)
}

// ConfirmOrder flips every pending entry for the order to completed and
// returns how many rows changed. Zero rows is success; confirmations are
// delivered at least once.
func (s *service) ConfirmOrder(ctx context.Context, orderID string) (int64, error) {
	if strings.TrimSpace(orderID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.CompleteByOrder(ctx, orderID)
}

func validateAppend(input *AppendInput) error {
	if input.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry kind %q", input.Kind))
	}
	if !input.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry source %q", input.Source))
	}
	if input.Status == "" {
		input.Status = enums.EntryStatusCompleted
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry status %q", input.Status))
	}
	if input.Kind == enums.EntryKindRedeem && input.Source != enums.EntrySourceRedemption {
		return pkgerrors.New(pkgerrors.CodeValidation, "redeem entries must use the redemption source")
	}
	if input.Kind == enums.EntryKindEarn && input.Source == enums.EntrySourceRedemption {
		return pkgerrors.New(pkgerrors.CodeValidation, "earn entries cannot use the redemption source")
	}
	if input.Kind == enums.EntryKindRedeem && input.Status == enums.EntryStatusPending {
		return pkgerrors.New(pkgerrors.CodeValidation, "redeem entries cannot be pending")
	}
	return nil
}
