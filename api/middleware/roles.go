package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/spiralshops/spiral-loyalty/api/responses"
	pkgerrors "github.com/spiralshops/spiral-loyalty/pkg/errors"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
)

// RequireElevated rejects requests unless the token carries a service or
// admin role.
func RequireElevated(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RoleFromContext(r.Context()).Elevated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "elevated role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountScope keeps shoppers inside their own account: the {accountId} path
// parameter must match the token unless the role is elevated.
func AccountScope(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()).Elevated() {
				next.ServeHTTP(w, r)
				return
			}
			pathAccount := strings.TrimSpace(chi.URLParam(r, "accountId"))
			if pathAccount != "" && pathAccount != AccountIDFromContext(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account does not match credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
