package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spiralshops/spiral-loyalty/api/middleware"
	"github.com/spiralshops/spiral-loyalty/internal/ledger"
	"github.com/spiralshops/spiral-loyalty/internal/rewards"
	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
)

type testLedgerService struct {
	appendFn  func(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error)
	balanceFn func(ctx context.Context, accountID uuid.UUID) (*ledger.Balance, error)
	listFn    func(ctx context.Context, params ledger.ListParams) ([]models.LedgerEntry, error)
	confirmFn func(ctx context.Context, orderID string) (int64, error)
}

func (s *testLedgerService) Append(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error) {
	if s.appendFn != nil {
		return s.appendFn(ctx, input)
	}
	return &models.LedgerEntry{ID: uuid.New(), AccountID: input.AccountID, Kind: input.Kind, Amount: input.Amount}, nil
}

func (s *testLedgerService) ListByAccount(ctx context.Context, params ledger.ListParams) ([]models.LedgerEntry, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return []models.LedgerEntry{}, nil
}

func (s *testLedgerService) GetBalance(ctx context.Context, accountID uuid.UUID) (*ledger.Balance, error) {
	if s.balanceFn != nil {
		return s.balanceFn(ctx, accountID)
	}
	return &ledger.Balance{}, nil
}

func (s *testLedgerService) FindByOrder(ctx context.Context, accountID uuid.UUID, orderID string, source enums.EntrySource) (*models.LedgerEntry, error) {
	return nil, nil
}

func (s *testLedgerService) ConfirmOrder(ctx context.Context, orderID string) (int64, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, orderID)
	}
	return 0, nil
}

type testRewardsService struct {
	purchaseFn func(ctx context.Context, input rewards.PurchaseInput) (*models.LedgerEntry, error)
	shareFn    func(ctx context.Context, accountID uuid.UUID, platform string) (*models.LedgerEntry, error)
}

func (s *testRewardsService) GrantForPurchase(ctx context.Context, input rewards.PurchaseInput) (*models.LedgerEntry, error) {
	if s.purchaseFn != nil {
		return s.purchaseFn(ctx, input)
	}
	return &models.LedgerEntry{ID: uuid.New(), AccountID: input.AccountID}, nil
}

func (s *testRewardsService) GrantForShare(ctx context.Context, accountID uuid.UUID, platform string) (*models.LedgerEntry, error) {
	if s.shareFn != nil {
		return s.shareFn(ctx, accountID, platform)
	}
	return &models.LedgerEntry{ID: uuid.New(), AccountID: accountID}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestBalanceIncludesTier(t *testing.T) {
	accountID := uuid.New()
	svc := &testLedgerService{
		balanceFn: func(ctx context.Context, id uuid.UUID) (*ledger.Balance, error) {
			return &ledger.Balance{CurrentBalance: 900, TotalEarned: 1500, TotalRedeemed: 600}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loyalty/"+accountID.String()+"/balance", nil)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Balance(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			CurrentBalance int64 `json:"currentBalance"`
			Tier           struct {
				Tier     string  `json:"tier"`
				Progress float64 `json:"progressToNextTier"`
			} `json:"tier"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.CurrentBalance != 900 {
		t.Fatalf("expected balance 900 got %d", envelope.Data.CurrentBalance)
	}
	// Tier is driven by lifetime earnings, not the spendable balance.
	if envelope.Data.Tier.Tier != "silver" {
		t.Fatalf("expected silver got %s", envelope.Data.Tier.Tier)
	}
	if envelope.Data.Tier.Progress != 50 {
		t.Fatalf("expected progress 50 got %v", envelope.Data.Tier.Progress)
	}
}

func TestBalanceRejectsBadAccountID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loyalty/nope/balance", nil)
	req = addRouteParam(req, "accountId", "nope")
	resp := httptest.NewRecorder()
	Balance(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransactionsParsesFilters(t *testing.T) {
	accountID := uuid.New()
	var got ledger.ListParams
	svc := &testLedgerService{
		listFn: func(ctx context.Context, params ledger.ListParams) ([]models.LedgerEntry, error) {
			got = params
			return []models.LedgerEntry{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loyalty/"+accountID.String()+"/transactions?kind=earn&limit=10&offset=20", nil)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Transactions(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.Kind == nil || *got.Kind != enums.EntryKindEarn {
		t.Fatalf("expected earn filter got %v", got.Kind)
	}
	if got.Page.Limit != 10 || got.Page.Offset != 20 {
		t.Fatalf("unexpected page %+v", got.Page)
	}
}

func TestTransactionsRejectsUnknownKind(t *testing.T) {
	accountID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loyalty/"+accountID.String()+"/transactions?kind=bogus", nil)
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Transactions(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestEarnPurchaseConvertsDollarsToCents(t *testing.T) {
	accountID := uuid.New()
	var got rewards.PurchaseInput
	svc := &testRewardsService{
		purchaseFn: func(ctx context.Context, input rewards.PurchaseInput) (*models.LedgerEntry, error) {
			got = input
			return &models.LedgerEntry{ID: uuid.New(), AccountID: input.AccountID, Amount: 125}, nil
		},
	}

	body := `{"source":"purchase_online","orderId":"order-9","amountSpent":"25.99"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/earn", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Earn(svc, &testLedgerService{}, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.AmountSpentCents != 2599 {
		t.Fatalf("expected 2599 cents got %d", got.AmountSpentCents)
	}
	if got.Channel != enums.PurchaseChannelOnline {
		t.Fatalf("expected online channel got %s", got.Channel)
	}
	if got.OrderID != "order-9" {
		t.Fatalf("expected order-9 got %s", got.OrderID)
	}
}

func TestEarnInstoreSourcePicksInstoreChannel(t *testing.T) {
	accountID := uuid.New()
	var got rewards.PurchaseInput
	svc := &testRewardsService{
		purchaseFn: func(ctx context.Context, input rewards.PurchaseInput) (*models.LedgerEntry, error) {
			got = input
			return &models.LedgerEntry{}, nil
		},
	}

	body := `{"source":"purchase_instore","orderId":"order-10","amountSpent":"10.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/earn", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Earn(svc, &testLedgerService{}, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if got.Channel != enums.PurchaseChannelInstore {
		t.Fatalf("expected instore channel got %s", got.Channel)
	}
}

func TestEarnShareDelegatesToRewards(t *testing.T) {
	accountID := uuid.New()
	var gotPlatform string
	svc := &testRewardsService{
		shareFn: func(ctx context.Context, id uuid.UUID, platform string) (*models.LedgerEntry, error) {
			gotPlatform = platform
			return &models.LedgerEntry{ID: uuid.New(), AccountID: id}, nil
		},
	}

	body := `{"source":"social_share","platform":"instagram"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/earn", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Earn(svc, &testLedgerService{}, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotPlatform != "instagram" {
		t.Fatalf("expected platform instagram got %q", gotPlatform)
	}
}

func TestEarnAdHocRequiresElevatedRole(t *testing.T) {
	accountID := uuid.New()
	body := `{"source":"review","amount":15}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/earn", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	req = req.WithContext(middleware.WithRole(req.Context(), enums.ActorRoleShopper))
	resp := httptest.NewRecorder()
	Earn(&testRewardsService{}, &testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestEarnAdHocAppendsForAdmin(t *testing.T) {
	accountID := uuid.New()
	var got ledger.AppendInput
	ledgerSvc := &testLedgerService{
		appendFn: func(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error) {
			got = input
			return &models.LedgerEntry{ID: uuid.New(), AccountID: input.AccountID, Amount: input.Amount}, nil
		},
	}

	body := `{"source":"review","amount":15,"description":"photo review"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/earn", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	req = req.WithContext(middleware.WithRole(req.Context(), enums.ActorRoleAdmin))
	resp := httptest.NewRecorder()
	Earn(&testRewardsService{}, ledgerSvc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Source != enums.EntrySourceReview || got.Amount != 15 {
		t.Fatalf("unexpected append input %+v", got)
	}
	if got.Kind != enums.EntryKindEarn {
		t.Fatalf("expected earn kind got %s", got.Kind)
	}
}

func TestEarnRejectsUnknownSource(t *testing.T) {
	accountID := uuid.New()
	body := `{"source":"lottery"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/earn", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Earn(&testRewardsService{}, &testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRedeemAppendsRedemption(t *testing.T) {
	accountID := uuid.New()
	var got ledger.AppendInput
	svc := &testLedgerService{
		appendFn: func(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error) {
			got = input
			return &models.LedgerEntry{ID: uuid.New(), AccountID: input.AccountID, Amount: input.Amount}, nil
		},
	}

	body := `{"amount":60,"description":"checkout discount"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/redeem", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Redeem(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Kind != enums.EntryKindRedeem || got.Source != enums.EntrySourceRedemption {
		t.Fatalf("unexpected append input %+v", got)
	}
	if got.Amount != 60 {
		t.Fatalf("expected amount 60 got %d", got.Amount)
	}
}

func TestRedeemSurfacesInsufficientBalance(t *testing.T) {
	accountID := uuid.New()
	svc := &testLedgerService{
		appendFn: func(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error) {
			return nil, ledger.ErrInsufficientBalance
		},
	}

	body := `{"amount":1000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/redeem", strings.NewReader(body))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Redeem(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestRedeemRejectsMissingAmount(t *testing.T) {
	accountID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/"+accountID.String()+"/redeem", strings.NewReader(`{}`))
	req = addRouteParam(req, "accountId", accountID.String())
	resp := httptest.NewRecorder()
	Redeem(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConfirmOrderReportsCompletedRows(t *testing.T) {
	svc := &testLedgerService{
		confirmFn: func(ctx context.Context, orderID string) (int64, error) {
			if orderID != "order-42" {
				t.Fatalf("unexpected order %s", orderID)
			}
			return 2, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/orders/order-42/confirm", nil)
	req = addRouteParam(req, "orderId", "order-42")
	resp := httptest.NewRecorder()
	ConfirmOrder(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data confirmOrderResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.EntriesCompleted != 2 {
		t.Fatalf("expected 2 completed got %d", envelope.Data.EntriesCompleted)
	}
}

func TestConfirmOrderZeroRowsIsSuccess(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loyalty/orders/order-42/confirm", nil)
	req = addRouteParam(req, "orderId", "order-42")
	resp := httptest.NewRecorder()
	ConfirmOrder(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
