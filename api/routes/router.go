package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spiralshops/spiral-loyalty/api/controllers"
	"github.com/spiralshops/spiral-loyalty/api/middleware"
	"github.com/spiralshops/spiral-loyalty/internal/accounts"
	"github.com/spiralshops/spiral-loyalty/internal/ledger"
	"github.com/spiralshops/spiral-loyalty/internal/referrals"
	"github.com/spiralshops/spiral-loyalty/internal/rewards"
	"github.com/spiralshops/spiral-loyalty/pkg/config"
	"github.com/spiralshops/spiral-loyalty/pkg/db"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
	"github.com/spiralshops/spiral-loyalty/pkg/redis"
)

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     *redis.Client
	Registry  *prometheus.Registry
	Accounts  accounts.Service
	Ledger    ledger.Service
	Rewards   rewards.Service
	Referrals referrals.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	// A typed-nil *redis.Client must not reach the interface-valued
	// middlewares; tests wire the router without redis.
	var redisPing db.Pinger
	var idemStore redis.IdempotencyStore
	if p.Redis != nil {
		redisPing = p.Redis
		idemStore = p.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, redisPing))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/loyalty", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Post("/accounts", controllers.EnrollAccount(p.Accounts, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AccountScope(logg))
			r.Get("/accounts/{accountId}", controllers.GetAccount(p.Accounts, p.Referrals, logg))
			r.Get("/{accountId}/balance", controllers.Balance(p.Ledger, logg))
			r.Get("/{accountId}/transactions", controllers.Transactions(p.Ledger, logg))
			r.Post("/{accountId}/earn", controllers.Earn(p.Rewards, p.Ledger, logg))
			r.Post("/{accountId}/redeem", controllers.Redeem(p.Ledger, logg))
		})

		r.Post("/referral/attribute", controllers.AttributeReferral(p.Referrals, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireElevated(logg))
			r.Post("/referral/qualify", controllers.QualifyReferral(p.Referrals, logg))
			r.Post("/orders/{orderId}/confirm", controllers.ConfirmOrder(p.Ledger, logg))
		})
	})

	return r
}
