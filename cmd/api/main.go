// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ascendlabs/ascend-api/internal/admin"
	"github.com/ascendlabs/ascend-api/internal/auth"
	"github.com/ascendlabs/ascend-api/internal/chat"
	"github.com/ascendlabs/ascend-api/internal/config"
	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/generate"
	"github.com/ascendlabs/ascend-api/internal/health"
	"github.com/ascendlabs/ascend-api/internal/llm"
	"github.com/ascendlabs/ascend-api/internal/middleware"
	"github.com/ascendlabs/ascend-api/internal/notify"
	"github.com/ascendlabs/ascend-api/internal/payment"
	"github.com/ascendlabs/ascend-api/internal/product"
	"github.com/ascendlabs/ascend-api/internal/server"
	"github.com/ascendlabs/ascend-api/internal/upload"
	"github.com/ascendlabs/ascend-api/internal/user"
	"github.com/ascendlabs/ascend-api/internal/webhook"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, redis.Client)
	authHandler := auth.NewHandler(authSvc)

	uploadStore, err := upload.NewStore(cfg.Uploads, logger)
	if err != nil {
		return err
	}

	healthHandler := health.NewHandler(db, redis, uploadStore)

	productRepo := product.NewRepository(db.DB)
	productSvc := product.NewService(productRepo, uploadStore, logger)

	notifier := notify.NewLogNotifier(logger)
	tokenSigner := payment.NewTokenSigner(cfg.Downloads.TokenSecret)
	stripeClient := payment.NewStripeClient(cfg.Stripe.SecretKey)

	paymentSvc := payment.NewService(
		productRepo,
		userSvc,
		stripeClient,
		tokenSigner,
		notifier,
		cfg.Stripe.FrontendURL,
		logger,
	)
	paymentHandler := payment.NewHandler(paymentSvc)

	productHandler := product.NewHandler(productSvc, paymentSvc)

	webhookHandler := webhook.NewHandler(
		paymentSvc,
		cfg.Stripe.WebhookSecret,
		logger,
	)

	llmClient := llm.NewClient(cfg.LLM)
	usageGate := chat.NewUsageGate(redis.Client)

	chatRepo := chat.NewRepository(db.DB)
	chatSvc := chat.NewService(
		chatRepo,
		llmClient,
		usageGate,
		userSvc,
		cfg.LLM.MaxContextMessages,
		logger,
	)
	chatHandler := chat.NewHandler(chatSvc)

	generateSvc := generate.NewService(llmClient, usageGate, userSvc, logger)
	generateHandler := generate.NewHandler(generateSvc)

	adminRepo := admin.NewRepository(db.DB)
	adminSvc := admin.NewService(adminRepo, userSvc, logger)
	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		AuthSvc:    authSvc,
		Service:    adminSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	optionalAuth := middleware.OptionalAuth(jwtManager)
	adminOnly := middleware.RequireAdmin

	// AI routes carry an extra per-plan request budget on top of auth.
	planLimiter := middleware.PlanRateLimiter(redis.Client, middleware.DefaultPlans)
	aiAuthenticator := func(next http.Handler) http.Handler {
		return authenticator(planLimiter(next))
	}

	webhookHandler.RegisterRoutes(router)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		r.Post("/users", authHandler.Register)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)

		productHandler.RegisterRoutes(r, authenticator)
		paymentHandler.RegisterRoutes(r, authenticator, optionalAuth)
		chatHandler.RegisterRoutes(r, aiAuthenticator)
		generateHandler.RegisterRoutes(r, aiAuthenticator)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
