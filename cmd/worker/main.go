package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/spiralshops/spiral-loyalty/internal/accounts"
	"github.com/spiralshops/spiral-loyalty/internal/consumers/orders"
	"github.com/spiralshops/spiral-loyalty/internal/ledger"
	"github.com/spiralshops/spiral-loyalty/internal/referrals"
	"github.com/spiralshops/spiral-loyalty/pkg/config"
	"github.com/spiralshops/spiral-loyalty/pkg/db"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
	"github.com/spiralshops/spiral-loyalty/pkg/metrics"
	"github.com/spiralshops/spiral-loyalty/pkg/pubsub"
	"github.com/spiralshops/spiral-loyalty/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database client", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.OrderEventsSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "order events subscription", errors.New("subscription not configured"))
	}

	loyaltyMetrics := metrics.NewLoyaltyMetrics(nil)
	accountsRepo := accounts.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	referralsRepo := referrals.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:    ledgerRepo,
		Tx:      dbClient,
		Metrics: loyaltyMetrics,
	})
	requireResource(ctx, logg, "ledger service", err)

	referralsService, err := referrals.NewService(referrals.ServiceParams{
		Repo:     referralsRepo,
		Accounts: accountsRepo,
		Ledger:   ledgerRepo,
		Tx:       dbClient,
		Bonus:    cfg.Rewards.ReferralBonus,
		Metrics:  loyaltyMetrics,
	})
	requireResource(ctx, logg, "referrals service", err)

	ordersConsumer, err := orders.NewConsumer(ledgerService, referralsService, subscription, logg)
	requireResource(ctx, logg, "orders consumer", err)

	service, err := NewService(ServiceParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		PubSub:         pubsubClient,
		OrdersConsumer: ordersConsumer,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
