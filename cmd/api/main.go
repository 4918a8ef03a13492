package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/beloribh/belori-backend/api/routes"
	"github.com/beloribh/belori-backend/internal/adminauth"
	checkoutsvc "github.com/beloribh/belori-backend/internal/checkout"
	"github.com/beloribh/belori-backend/internal/customers"
	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/internal/paymentsettings"
	"github.com/beloribh/belori-backend/internal/products"
	"github.com/beloribh/belori-backend/internal/tracking"
	mpwebhook "github.com/beloribh/belori-backend/internal/webhooks/mercadopago"
	"github.com/beloribh/belori-backend/pkg/config"
	"github.com/beloribh/belori-backend/pkg/db"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/mercadopago"
	"github.com/beloribh/belori-backend/pkg/metrics"
	"github.com/beloribh/belori-backend/pkg/migrate"
	"github.com/beloribh/belori-backend/pkg/ordernumber"
	"github.com/beloribh/belori-backend/pkg/redis"
	"github.com/beloribh/belori-backend/pkg/viacep"
)

const (
	orderNumberSequence = "order_number_seq"
	webhookDedupScope   = "mercadopago-webhook"
	webhookDedupTTL     = 24 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	ordersRepo := orders.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	customersRepo := customers.NewRepository(dbClient.DB())
	settingsRepo := paymentsettings.NewRepository(dbClient.DB())
	adminRepo := adminauth.NewRepository(dbClient.DB())

	tokens, err := paymentsettings.NewTokenProvider(settingsRepo, cfg.MercadoPago)
	if err != nil {
		logg.Error(context.Background(), "failed to create token provider", err)
		os.Exit(1)
	}
	mpClient, err := mercadopago.NewClient(tokens,
		mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL),
		mercadopago.WithHTTPClient(&http.Client{Timeout: cfg.MercadoPago.RequestTimeout}),
		mercadopago.WithMaxRetries(cfg.MercadoPago.RetryAttempts),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercado pago client", err)
		os.Exit(1)
	}

	numbers, err := ordernumber.NewGenerator(ordernumber.SourceFunc(func(ctx context.Context) (int64, error) {
		return dbClient.NextSequenceValue(ctx, orderNumberSequence)
	}))
	if err != nil {
		logg.Error(context.Background(), "failed to create order number generator", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		ProductRepo: productsRepo,
		Tx:          dbClient,
		Logger:      logg,
		Metrics:     paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		OrdersRepo:    ordersRepo,
		ProductsRepo:  productsRepo,
		CustomersRepo: customersRepo,
		Tx:            dbClient,
		Numbers:       numbers,
		Payments:      mpClient,
		Logger:        logg,
		Metrics:       paymentMetrics,
		App:           cfg.App,
		MercadoPago:   cfg.MercadoPago,
		Checkout:      cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	trackingService, err := tracking.NewService(ordersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	adminAuthService, err := adminauth.NewService(adminauth.ServiceParams{
		Repo:   adminRepo,
		JWT:    cfg.JWT,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin auth service", err)
		os.Exit(1)
	}

	webhookGuard, err := mpwebhook.NewIdempotencyGuard(redisClient, webhookDedupTTL, webhookDedupScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := mpwebhook.NewService(mpwebhook.ServiceParams{
		Orders:   ordersService,
		Payments: mpClient,
		Guard:    webhookGuard,
		Logger:   logg,
		Metrics:  paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	cepClient := viacep.NewClient()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			cepClient,
			checkoutService,
			trackingService,
			ordersService,
			adminAuthService,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
