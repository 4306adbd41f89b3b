package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spiralshops/spiral-loyalty/internal/ledger"
	"github.com/spiralshops/spiral-loyalty/pkg/config"
	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
)

const shareWindow = 24 * time.Hour

// ErrShareCapReached is returned when an account exhausts its daily share
// bonus allowance.
var ErrShareCapReached = pkgerrors.New(pkgerrors.CodeRateLimit, "daily share bonus limit reached")

// ShareLimiter enforces the per-account daily cap on share bonuses.
// Satisfied by redis.Client.
type ShareLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service converts shopper activity into ledger entries under the configured
// reward rules.
type Service interface {
	GrantForPurchase(ctx context.Context, input PurchaseInput) (*models.LedgerEntry, error)
	GrantForShare(ctx context.Context, accountID uuid.UUID, platform string) (*models.LedgerEntry, error)
}

// PurchaseInput describes one rewardable purchase. AmountSpentCents is the
// order total in integer cents.
type PurchaseInput struct {
	AccountID        uuid.UUID
	OrderID          string
	AmountSpentCents int64
	Channel          enums.PurchaseChannel
}

// ServiceParams wires the rewards service dependencies.
type ServiceParams struct {
	Ledger  ledger.Service
	Limiter ShareLimiter
	Rules   config.RewardsConfig
}

type service struct {
	ledger  ledger.Service
	limiter ShareLimiter
	rules   config.RewardsConfig
}

// NewService wires a rewards service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("share limiter required")
	}
	if params.Rules.OnlinePointsPerDollar <= 0 || params.Rules.InstorePointsPerDollar <= 0 {
		return nil, fmt.Errorf("purchase rates must be positive")
	}
	if params.Rules.ShareBonus <= 0 || params.Rules.ShareDailyCap <= 0 {
		return nil, fmt.Errorf("share bonus and daily cap must be positive")
	}
	return &service{
		ledger:  params.Ledger,
		limiter: params.Limiter,
		rules:   params.Rules,
	}, nil
}

// GrantForPurchase awards floor(dollars) x channel rate as a pending entry
// that completes on delivery confirmation. Replays of the same order return
// the original entry rather than an error.
func (s *service) GrantForPurchase(ctx context.Context, input PurchaseInput) (*models.LedgerEntry, error) {
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.AmountSpentCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount spent cannot be negative")
	}
	if !input.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid purchase channel %q", input.Channel))
	}

	points := (input.AmountSpentCents / 100) * s.rate(input.Channel)
	if points == 0 {
		return nil, nil
	}

	entry, err := s.ledger.Append(ctx, ledger.AppendInput{
		AccountID:      input.AccountID,
		Kind:           enums.EntryKindEarn,
		Amount:         points,
		Source:         input.Channel.EntrySource(),
		Description:    fmt.Sprintf("Purchase reward for order %s", orderID),
		RelatedOrderID: &orderID,
		Status:         enums.EntryStatusPending,
	})
	if errors.Is(err, ledger.ErrDuplicateGrant) {
		return s.ledger.FindByOrder(ctx, input.AccountID, orderID, input.Channel.EntrySource())
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GrantForShare awards the fixed share bonus, capped per account per day.
func (s *service) GrantForShare(ctx context.Context, accountID uuid.UUID, platform string) (*models.LedgerEntry, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform is required")
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "share:"+accountID.String(), int64(s.rules.ShareDailyCap), shareWindow)
	if err != nil {
		return nil, fmt.Errorf("checking share cap: %w", err)
	}
	if !allowed {
		return nil, ErrShareCapReached
	}

	return s.ledger.Append(ctx, ledger.AppendInput{
		AccountID:   accountID,
		Kind:        enums.EntryKindEarn,
		Amount:      s.rules.ShareBonus,
		Source:      enums.EntrySourceSocialShare,
		Description: fmt.Sprintf("Share bonus (%s)", platform),
		Status:      enums.EntryStatusCompleted,
	})
}

func (s *service) rate(channel enums.PurchaseChannel) int64 {
	if channel == enums.PurchaseChannelInstore {
		return s.rules.InstorePointsPerDollar
	}
	return s.rules.OnlinePointsPerDollar
}
