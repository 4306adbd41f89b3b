package referrals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spiralshops/spiral-loyalty/internal/ledger"
	"github.com/spiralshops/spiral-loyalty/pkg/db"
	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
	"github.com/spiralshops/spiral-loyalty/pkg/metrics"
)

// Typed failures callers branch on.
var (
	ErrUnknownCode       = pkgerrors.New(pkgerrors.CodeValidation, "unknown referral code")
	ErrSelfReferral      = pkgerrors.New(pkgerrors.CodeValidation, "accounts cannot refer themselves")
	ErrAlreadyAttributed = pkgerrors.New(pkgerrors.CodeConflict, "account already has a referrer")
)

// accountDirectory is the slice of the accounts repository the referral
// engine needs. Declared locally so the two packages stay decoupled.
type accountDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByReferralCode(ctx context.Context, code string) (*models.Account, error)
}

// Service owns referral codes, first-touch attribution, and the one-time
// qualification bonus.
type Service interface {
	IssueCode(ctx context.Context, accountID uuid.UUID) (string, error)
	ResolveCode(ctx context.Context, code string) (*models.Account, error)
	Attribute(ctx context.Context, refereeID uuid.UUID, code string) (*models.ReferralRelationship, error)
	Qualify(ctx context.Context, refereeID uuid.UUID) (bool, error)
	Stats(ctx context.Context, referrerID uuid.UUID) (*Stats, error)
}

// Stats summarizes an account's activity as a referrer.
type Stats struct {
	ReferralCode   string `json:"referralCode"`
	TotalReferrals int64  `json:"totalReferrals"`
}

// ServiceParams wires the referrals service dependencies. Ledger is the
// repository rather than the service so the qualification bonus lands in the
// same transaction as the status flip.
type ServiceParams struct {
	Repo     Repository
	Accounts accountDirectory
	Ledger   ledger.Repository
	Tx       ledger.TxRunner
	Bonus    int64
	Metrics  *metrics.LoyaltyMetrics
}

type service struct {
	repo     Repository
	accounts accountDirectory
	ledger   ledger.Repository
	tx       ledger.TxRunner
	bonus    int64
	metrics  *metrics.LoyaltyMetrics
}

// NewService wires a referrals service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("referrals repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account directory required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Bonus <= 0 {
		return nil, fmt.Errorf("referral bonus must be positive")
	}
	return &service{
		repo:     params.Repo,
		accounts: params.Accounts,
		ledger:   params.Ledger,
		tx:       params.Tx,
		bonus:    params.Bonus,
		metrics:  params.Metrics,
	}, nil
}

// IssueCode returns the account's referral code. Codes are minted once at
// enrollment, so issuing is a lookup and repeat calls are harmless.
func (s *service) IssueCode(ctx context.Context, accountID uuid.UUID) (string, error) {
	account, err := s.requireAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.ReferralCode, nil
}

func (s *service) ResolveCode(ctx context.Context, code string) (*models.Account, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code is required")
	}
	account, err := s.accounts.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrUnknownCode
	}
	return account, nil
}

// Attribute records the referee's referrer. Attribution is first-touch: the
// unique index on referee_account_id makes later codes lose, whichever
// instance they race through.
func (s *service) Attribute(ctx context.Context, refereeID uuid.UUID, code string) (*models.ReferralRelationship, error) {
	if refereeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referee account id is required")
	}
	referrer, err := s.ResolveCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer.ID == refereeID {
		return nil, ErrSelfReferral
	}
	if _, err := s.requireAccount(ctx, refereeID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByReferee(ctx, refereeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyAttributed
	}

	relationship := &models.ReferralRelationship{
		ReferrerAccountID: referrer.ID,
		RefereeAccountID:  refereeID,
		Code:              referrer.ReferralCode,
		Status:            enums.ReferralStatusPending,
	}
	if err := s.repo.Create(ctx, relationship); err != nil {
		if db.IsUniqueViolation(err, "idx_referral_relationships_referee") {
			return nil, ErrAlreadyAttributed
		}
		return nil, err
	}
	return relationship, nil
}

// Qualify grants the referrer their bonus the first time the referee
// completes a qualifying purchase. The status flip and the bonus entry share
// one transaction, so redelivered order events cannot double-pay. Returns
// whether this call made the transition; a referee with no relationship is a
// no-op success.
func (s *service) Qualify(ctx context.Context, refereeID uuid.UUID) (bool, error) {
	if refereeID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "referee account id is required")
	}

	relationship, err := s.repo.GetByReferee(ctx, refereeID)
	if err != nil {
		return false, err
	}
	if relationship == nil || relationship.Status == enums.ReferralStatusQualified {
		return false, nil
	}

	var transitioned bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).MarkQualified(ctx, refereeID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("qualifying referral: %w", err)
		}
		if !moved {
			// Lost the race with a concurrent delivery. Someone paid the
			// bonus; nothing left to do.
			return nil
		}
		transitioned = true

		entry := &models.LedgerEntry{
			AccountID:   relationship.ReferrerAccountID,
			Kind:        enums.EntryKindEarn,
			Amount:      s.bonus,
			Source:      enums.EntrySourceReferral,
			Description: fmt.Sprintf("Referral bonus for %s", relationship.Code),
			Status:      enums.EntryStatusCompleted,
		}
		if err := s.ledger.WithTx(tx).Create(ctx, entry); err != nil {
			return fmt.Errorf("granting referral bonus: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if transitioned {
		s.metrics.IncReferralQualified()
		s.metrics.ObserveEntry(string(enums.EntryKindEarn), string(enums.EntrySourceReferral), s.bonus)
	}
	return transitioned, nil
}

func (s *service) Stats(ctx context.Context, referrerID uuid.UUID) (*Stats, error) {
	account, err := s.requireAccount(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	return &Stats{ReferralCode: account.ReferralCode, TotalReferrals: total}, nil
}

func (s *service) requireAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return account, nil
}
