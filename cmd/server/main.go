package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	level := logging.ParseLevel(cfg.LogLevel)
	logging.Setup(level)

	if cfg.SupabaseJWTSecret == "" {
		slog.Error("SUPABASE_JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.SPFVAPIURL == "" {
		slog.Error("SPFV_API_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.StripeSecretKey == "" {
		slog.Warn("STRIPE_SECRET_KEY not set, billing endpoints will return 503")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Redis (optional)
	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var cachePing handlers.Pinger
	if rdb != nil {
		cachePing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		slog.Warn("REDIS_URL not set, caching disabled")
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewStdoutHandler(level),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	logging.StartCleanup(ctx, database.DB, logging.DefaultRetention)

	// Services
	subscriptionService := services.NewSubscriptionService(database.DB, rdb, cfg.SubscriptionCacheTTL)
	accessService := services.NewAccessService(subscriptionService)
	spfvClient := services.NewSPFVClient(cfg, rdb)
	alphaVantageClient := services.NewAlphaVantageClient(cfg)
	onboardingService, err := services.NewOnboardingService(services.NewGormOnboardingStore(database.DB))
	if err != nil {
		slog.Error("onboarding setup failed", "error", err)
		os.Exit(1)
	}
	var stripeAPI services.StripeAPI
	if cfg.StripeSecretKey != "" {
		stripeAPI = services.NewStripeAPI(cfg.StripeSecretKey)
	}
	billingService := services.NewBillingService(cfg, stripeAPI, subscriptionService)

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.Ping, cachePing)
	legalHandler := handlers.NewLegalHandler("SPFV")
	spfvHandler := handlers.NewSPFVHandler(spfvClient, alphaVantageClient)
	accessHandler := handlers.NewAccessHandler(accessService)
	onboardingHandler := handlers.NewOnboardingHandler(onboardingService)
	stripeHandler := handlers.NewStripeHandler(billingService)
	webhookHandler := handlers.NewWebhookHandler(billingService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, accessService, healthHandler, legalHandler, spfvHandler, accessHandler, onboardingHandler, stripeHandler, webhookHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stop()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "endpoint", c.Path(), "error", err.Error())
		message = "Internal server error"
	}
	if code == fiber.StatusNotFound {
		message = "Not found"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}
