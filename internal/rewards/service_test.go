package rewards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiralshops/spiral-loyalty/internal/ledger"
	"github.com/spiralshops/spiral-loyalty/pkg/config"
	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
)

type fakeLedgerService struct {
	appended  []ledger.AppendInput
	appendErr error
	existing  *models.LedgerEntry
}

func (f *fakeLedgerService) Append(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appended = append(f.appended, input)
	return &models.LedgerEntry{
		ID:             uuid.New(),
		AccountID:      input.AccountID,
		Kind:           input.Kind,
		Amount:         input.Amount,
		Source:         input.Source,
		Description:    input.Description,
		RelatedOrderID: input.RelatedOrderID,
		Status:         input.Status,
	}, nil
}

func (f *fakeLedgerService) ListByAccount(ctx context.Context, params ledger.ListParams) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeLedgerService) GetBalance(ctx context.Context, accountID uuid.UUID) (*ledger.Balance, error) {
	return &ledger.Balance{}, nil
}

func (f *fakeLedgerService) FindByOrder(ctx context.Context, accountID uuid.UUID, orderID string, source enums.EntrySource) (*models.LedgerEntry, error) {
	return f.existing, nil
}

func (f *fakeLedgerService) ConfirmOrder(ctx context.Context, orderID string) (int64, error) {
	return 0, nil
}

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func defaultRules() config.RewardsConfig {
	return config.RewardsConfig{
		OnlinePointsPerDollar:  5,
		InstorePointsPerDollar: 10,
		ReferralBonus:          50,
		ShareBonus:             5,
		ShareDailyCap:          5,
	}
}

func newTestService(t *testing.T, lg ledger.Service, limiter ShareLimiter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Ledger: lg, Limiter: limiter, Rules: defaultRules()})
	require.NoError(t, err)
	return svc
}

func TestGrantForPurchaseOnlineRate(t *testing.T) {
	lg := &fakeLedgerService{}
	svc := newTestService(t, lg, &fakeLimiter{})

	entry, err := svc.GrantForPurchase(context.Background(), PurchaseInput{
		AccountID:        uuid.New(),
		OrderID:          "order-123",
		AmountSpentCents: 2599, // $25.99 floors to $25
		Channel:          enums.PurchaseChannelOnline,
	})
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(125), entry.Amount)
	assert.Equal(t, enums.EntrySourcePurchaseOnline, entry.Source)
	assert.Equal(t, enums.EntryStatusPending, entry.Status)
	require.NotNil(t, entry.RelatedOrderID)
	assert.Equal(t, "order-123", *entry.RelatedOrderID)
}

func TestGrantForPurchaseInstoreRate(t *testing.T) {
	lg := &fakeLedgerService{}
	svc := newTestService(t, lg, &fakeLimiter{})

	entry, err := svc.GrantForPurchase(context.Background(), PurchaseInput{
		AccountID:        uuid.New(),
		OrderID:          "order-456",
		AmountSpentCents: 1000,
		Channel:          enums.PurchaseChannelInstore,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), entry.Amount)
	assert.Equal(t, enums.EntrySourcePurchaseInstore, entry.Source)
}

func TestGrantForPurchaseSubDollarIsNoop(t *testing.T) {
	lg := &fakeLedgerService{}
	svc := newTestService(t, lg, &fakeLimiter{})

	entry, err := svc.GrantForPurchase(context.Background(), PurchaseInput{
		AccountID:        uuid.New(),
		OrderID:          "order-789",
		AmountSpentCents: 99,
		Channel:          enums.PurchaseChannelOnline,
	})
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, lg.appended)
}

func TestGrantForPurchaseDuplicateReturnsExisting(t *testing.T) {
	accountID := uuid.New()
	orderID := "order-dup"
	existing := &models.LedgerEntry{
		ID:             uuid.New(),
		AccountID:      accountID,
		Amount:         50,
		RelatedOrderID: &orderID,
	}
	lg := &fakeLedgerService{appendErr: ledger.ErrDuplicateGrant, existing: existing}
	svc := newTestService(t, lg, &fakeLimiter{})

	entry, err := svc.GrantForPurchase(context.Background(), PurchaseInput{
		AccountID:        accountID,
		OrderID:          orderID,
		AmountSpentCents: 1000,
		Channel:          enums.PurchaseChannelOnline,
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, entry.ID)
}

func TestGrantForPurchaseValidation(t *testing.T) {
	svc := newTestService(t, &fakeLedgerService{}, &fakeLimiter{})

	_, err := svc.GrantForPurchase(context.Background(), PurchaseInput{
		AccountID:        uuid.New(),
		AmountSpentCents: 1000,
		Channel:          enums.PurchaseChannelOnline,
	})
	require.Error(t, err)

	_, err = svc.GrantForPurchase(context.Background(), PurchaseInput{
		AccountID:        uuid.New(),
		OrderID:          "order-1",
		AmountSpentCents: -1,
		Channel:          enums.PurchaseChannelOnline,
	})
	require.Error(t, err)

	_, err = svc.GrantForPurchase(context.Background(), PurchaseInput{
		AccountID:        uuid.New(),
		OrderID:          "order-1",
		AmountSpentCents: 1000,
		Channel:          enums.PurchaseChannel("carrier-pigeon"),
	})
	require.Error(t, err)
}

func TestGrantForShare(t *testing.T) {
	lg := &fakeLedgerService{}
	svc := newTestService(t, lg, &fakeLimiter{})

	entry, err := svc.GrantForShare(context.Background(), uuid.New(), "instagram")
	require.NoError(t, err)
	assert.Equal(t, int64(5), entry.Amount)
	assert.Equal(t, enums.EntrySourceSocialShare, entry.Source)
	assert.Equal(t, enums.EntryStatusCompleted, entry.Status)
}

func TestGrantForShareDailyCap(t *testing.T) {
	lg := &fakeLedgerService{}
	limiter := &fakeLimiter{}
	svc := newTestService(t, lg, limiter)
	accountID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := svc.GrantForShare(context.Background(), accountID, "instagram")
		require.NoError(t, err)
	}

	_, err := svc.GrantForShare(context.Background(), accountID, "instagram")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShareCapReached))
	assert.Equal(t, pkgerrors.CodeRateLimit, pkgerrors.As(err).Code())
	assert.Len(t, lg.appended, 5)

	// The cap is per account, not global.
	_, err = svc.GrantForShare(context.Background(), uuid.New(), "instagram")
	require.NoError(t, err)
}

func TestGrantForShareLimiterFailure(t *testing.T) {
	svc := newTestService(t, &fakeLedgerService{}, &fakeLimiter{err: errors.New("redis down")})

	_, err := svc.GrantForShare(context.Background(), uuid.New(), "instagram")
	require.Error(t, err)
}
