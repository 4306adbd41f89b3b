package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/spiralshops/spiral-loyalty/api/middleware"
	"github.com/spiralshops/spiral-loyalty/api/responses"
	"github.com/spiralshops/spiral-loyalty/api/validators"
	"github.com/spiralshops/spiral-loyalty/internal/referrals"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
)

type attributeRequest struct {
	ReferralCode string `json:"referralCode" validate:"required,max=20"`
	AccountID    string `json:"accountId,omitempty"`
}

type qualifyRequest struct {
	AccountID string `json:"accountId" validate:"required,uuid"`
}

type qualifyResponse struct {
	AccountID string `json:"accountId"`
	Qualified bool   `json:"qualified"`
}

// AttributeReferral records who referred the calling shopper. Elevated
// callers may attribute on behalf of another account.
func AttributeReferral(referralsSvc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body attributeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refereeID, err := resolveRefereeID(r, body.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		relationship, err := referralsSvc.Attribute(r.Context(), refereeID, body.ReferralCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, relationship)
	}
}

// QualifyReferral marks a referee's relationship qualified, paying the
// referrer bonus at most once. Repeat calls succeed without granting again.
func QualifyReferral(referralsSvc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body qualifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refereeID, err := uuid.Parse(body.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		qualified, err := referralsSvc.Qualify(r.Context(), refereeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, qualifyResponse{
			AccountID: refereeID.String(),
			Qualified: qualified,
		})
	}
}

func resolveRefereeID(r *http.Request, override string) (uuid.UUID, error) {
	if override != "" {
		if !middleware.RoleFromContext(r.Context()).Elevated() {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot attribute another account")
		}
		refereeID, err := uuid.Parse(override)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id")
		}
		return refereeID, nil
	}

	raw := middleware.AccountIDFromContext(r.Context())
	refereeID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing account id")
	}
	return refereeID, nil
}
