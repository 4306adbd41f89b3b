package accounts

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/spiralshops/spiral-loyalty/pkg/db"
	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
)

const (
	codePrefix = "SPIRAL-"
	codeLength = 8
	// No 0/O/1/I/L so codes survive being read aloud in a store.
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	mintAttempts = 5
)

// ErrAccountNotFound is returned when the requested account does not exist.
var ErrAccountNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "account not found")

// Attributor records a referral relationship for a freshly enrolled referee.
type Attributor interface {
	ResolveCode(ctx context.Context, code string) (*models.Account, error)
	Attribute(ctx context.Context, refereeID uuid.UUID, code string) (*models.ReferralRelationship, error)
}

// Service enrolls shoppers and exposes account lookups.
type Service interface {
	Enroll(ctx context.Context, input EnrollInput) (*Enrollment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// EnrollInput carries the optional referral code used at signup.
type EnrollInput struct {
	ReferralCode string
}

// Enrollment is the result of a signup: the new account and, when a referral
// code was supplied, the recorded relationship.
type Enrollment struct {
	Account  *models.Account
	Referral *models.ReferralRelationship
}

// ServiceParams wires the accounts service dependencies.
type ServiceParams struct {
	Repo      Repository
	Referrals Attributor
}

type service struct {
	repo      Repository
	referrals Attributor
}

// NewService wires an accounts service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Referrals == nil {
		return nil, fmt.Errorf("referral attributor required")
	}
	return &service{repo: params.Repo, referrals: params.Referrals}, nil
}

func (s *service) Enroll(ctx context.Context, input EnrollInput) (*Enrollment, error) {
	code := strings.ToUpper(strings.TrimSpace(input.ReferralCode))
	if code != "" {
		// Validate before creating the account so a bad code cannot leave an
		// orphaned signup behind.
		if _, err := s.referrals.ResolveCode(ctx, code); err != nil {
			return nil, err
		}
	}

	account, err := s.createWithFreshCode(ctx)
	if err != nil {
		return nil, err
	}

	enrollment := &Enrollment{Account: account}
	if code != "" {
		relationship, err := s.referrals.Attribute(ctx, account.ID, code)
		if err != nil {
			return nil, err
		}
		enrollment.Referral = relationship
	}
	return enrollment, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// createWithFreshCode retries on the referral code unique index. Collisions
// are rare (31^8 space) but the index makes them harmless.
func (s *service) createWithFreshCode(ctx context.Context) (*models.Account, error) {
	for attempt := 0; attempt < mintAttempts; attempt++ {
		code, err := mintReferralCode()
		if err != nil {
			return nil, err
		}
		account := &models.Account{ReferralCode: code}
		err = s.repo.Create(ctx, account)
		if err == nil {
			return account, nil
		}
		if !db.IsUniqueViolation(err, "idx_accounts_referral_code") {
			return nil, err
		}
	}
	return nil, fmt.Errorf("minting referral code: exhausted %d attempts", mintAttempts)
}

func mintReferralCode() (string, error) {
	var sb strings.Builder
	sb.WriteString(codePrefix)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("minting referral code: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
