package controllers

import (
	"net/http"

	"github.com/spiralshops/spiral-loyalty/api/responses"
	"github.com/spiralshops/spiral-loyalty/api/validators"
	"github.com/spiralshops/spiral-loyalty/internal/accounts"
	"github.com/spiralshops/spiral-loyalty/internal/referrals"
	"github.com/spiralshops/spiral-loyalty/pkg/db/models"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
)

type enrollRequest struct {
	ReferralCode string `json:"referralCode,omitempty" validate:"omitempty,max=20"`
}

type enrollResponse struct {
	Account  *models.Account              `json:"account"`
	Referral *models.ReferralRelationship `json:"referral,omitempty"`
}

type accountResponse struct {
	Account        *models.Account `json:"account"`
	ReferralCode   string          `json:"referralCode"`
	TotalReferrals int64           `json:"totalReferrals"`
}

// EnrollAccount creates a loyalty account, minting its referral code and
// optionally attributing a referrer in the same request.
func EnrollAccount(accountsSvc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body enrollRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enrollment, err := accountsSvc.Enroll(r.Context(), accounts.EnrollInput{
			ReferralCode: body.ReferralCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, enrollResponse{
			Account:  enrollment.Account,
			Referral: enrollment.Referral,
		})
	}
}

// GetAccount returns the account with its referral code and referral count.
func GetAccount(accountsSvc accounts.Service, referralsSvc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := parseAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := accountsSvc.Get(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := referralsSvc.Stats(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accountResponse{
			Account:        account,
			ReferralCode:   stats.ReferralCode,
			TotalReferrals: stats.TotalReferrals,
		})
	}
}
