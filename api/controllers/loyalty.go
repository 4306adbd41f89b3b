package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spiralshops/spiral-loyalty/api/middleware"
	"github.com/spiralshops/spiral-loyalty/api/responses"
	"github.com/spiralshops/spiral-loyalty/api/validators"
	"github.com/spiralshops/spiral-loyalty/internal/ledger"
	"github.com/spiralshops/spiral-loyalty/internal/rewards"
	"github.com/spiralshops/spiral-loyalty/internal/tiers"
	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
	"github.com/spiralshops/spiral-loyalty/pkg/pagination"
)

type earnRequest struct {
	Source      string `json:"source" validate:"required"`
	OrderID     string `json:"orderId,omitempty"`
	AmountSpent string `json:"amountSpent,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Amount      int64  `json:"amount,omitempty" validate:"omitempty,min=1"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type redeemRequest struct {
	Amount      int64  `json:"amount" validate:"required,min=1"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type balanceResponse struct {
	ledger.Balance
	Tier tiers.Evaluation `json:"tier"`
}

// Balance reads the computed balance and the tier derived from it.
func Balance(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := parseAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := ledgerSvc.GetBalance(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceResponse{
			Balance: *balance,
			Tier:    tiers.Evaluate(balance.TotalEarned),
		})
	}
}

// Transactions pages through the account's ledger, newest first.
func Transactions(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := parseAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := ledger.ListParams{
			AccountID: accountID,
			Page:      pagination.Params{Limit: limit, Offset: offset},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind, parseErr := enums.ParseEntryKind(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid kind filter"))
				return
			}
			params.Kind = &kind
		}

		entries, err := ledgerSvc.ListByAccount(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// Earn converts shopper activity into points. Purchases and shares go through
// the reward engine; other sources are ad-hoc grants reserved for elevated
// callers.
func Earn(rewardsSvc rewards.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := parseAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body earnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		source, err := enums.ParseEntrySource(body.Source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source"))
			return
		}

		switch {
		case source.IsPurchase():
			entry, grantErr := grantPurchase(r, rewardsSvc, accountID, source, body)
			if grantErr != nil {
				responses.WriteError(r.Context(), logg, w, grantErr)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, entry)
		case source == enums.EntrySourceSocialShare:
			entry, grantErr := rewardsSvc.GrantForShare(r.Context(), accountID, body.Platform)
			if grantErr != nil {
				responses.WriteError(r.Context(), logg, w, grantErr)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, entry)
		default:
			entry, grantErr := grantAdHoc(r, ledgerSvc, accountID, source, body)
			if grantErr != nil {
				responses.WriteError(r.Context(), logg, w, grantErr)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, entry)
		}
	}
}

func grantPurchase(r *http.Request, rewardsSvc rewards.Service, accountID uuid.UUID, source enums.EntrySource, body earnRequest) (any, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(body.AmountSpent))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amountSpent must be a decimal dollar amount")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amountSpent cannot be negative")
	}

	channel := enums.PurchaseChannelOnline
	if source == enums.EntrySourcePurchaseInstore {
		channel = enums.PurchaseChannelInstore
	}

	entry, err := rewardsSvc.GrantForPurchase(r.Context(), rewards.PurchaseInput{
		AccountID:        accountID,
		OrderID:          body.OrderID,
		AmountSpentCents: amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Channel:          channel,
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		// Sub-dollar purchase earned nothing; report that honestly.
		return map[string]any{"awarded": false}, nil
	}
	return entry, nil
}

func grantAdHoc(r *http.Request, ledgerSvc ledger.Service, accountID uuid.UUID, source enums.EntrySource, body earnRequest) (any, error) {
	if !middleware.RoleFromContext(r.Context()).Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "ad-hoc grants require an elevated role")
	}
	if body.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return ledgerSvc.Append(r.Context(), ledger.AppendInput{
		AccountID:   accountID,
		Kind:        enums.EntryKindEarn,
		Amount:      body.Amount,
		Source:      source,
		Description: validators.SanitizeString(body.Description, 500),
	})
}

// Redeem burns points against the current balance.
func Redeem(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := parseAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body redeemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := ledgerSvc.Append(r.Context(), ledger.AppendInput{
			AccountID:   accountID,
			Kind:        enums.EntryKindRedeem,
			Amount:      body.Amount,
			Source:      enums.EntrySourceRedemption,
			Description: validators.SanitizeString(body.Description, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type confirmOrderResponse struct {
	OrderID          string `json:"orderId"`
	EntriesCompleted int64  `json:"entriesCompleted"`
}

// ConfirmOrder completes the pending entries awarded for an order. Zero
// completed rows is still success so confirmations can be replayed.
func ConfirmOrder(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}

		completed, err := ledgerSvc.ConfirmOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmOrderResponse{
			OrderID:          orderID,
			EntriesCompleted: completed,
		})
	}
}

func parseAccountID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "accountId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id")
	}
	return accountID, nil
}
