package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fcf-tessere/unlock-server-go/internal/config"
	"github.com/fcf-tessere/unlock-server-go/internal/database"
	"github.com/fcf-tessere/unlock-server-go/internal/handler"
	"github.com/fcf-tessere/unlock-server-go/internal/jobs"
	"github.com/fcf-tessere/unlock-server-go/internal/metrics"
	"github.com/fcf-tessere/unlock-server-go/internal/middleware"
	"github.com/fcf-tessere/unlock-server-go/internal/payment"
	"github.com/fcf-tessere/unlock-server-go/internal/redis"
	"github.com/fcf-tessere/unlock-server-go/internal/repository"
	"github.com/fcf-tessere/unlock-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	cancel()
	log.Info().Msg("database connected")

	ctx, cancel = context.WithTimeout(context.Background(), config.DBPingTimeout)
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	metrics.MustRegister()

	provider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	codeRepo := repository.NewUnlockCodeRepository(db.DB)
	deviceRepo := repository.NewPaidDeviceRepository(db.DB)

	generator := service.NewRandomCodeGenerator(cfg.CodePrefix)
	issuanceService := service.NewIssuanceService(provider, codeRepo, deviceRepo, db, generator, cfg.MaxUses)
	redemptionService := service.NewRedemptionService(codeRepo)
	deviceService := service.NewDeviceService(deviceRepo, codeRepo)
	paymentService := service.NewPaymentService(provider, cfg)
	webhookService := service.NewWebhookService(provider, issuanceService, redisClient, cfg.WebhookEventTTL())

	limiter := service.NewRateLimiter(redisClient.Client)
	redeemLimit := middleware.NewIPRateLimitMiddleware(
		limiter, cfg.RedeemRateLimitPerMin, config.RedeemRateLimitWindow, "redeem",
	)
	issueLimit := middleware.NewIPRateLimitMiddleware(
		limiter, config.IssueRateLimitPerMin, config.RedeemRateLimitWindow, "issue",
	)
	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())

	unlockHandler := handler.NewUnlockHandler(issuanceService, redemptionService, deviceService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	adminHandler := handler.NewAdminHandler(redemptionService, adminAuthMiddleware.Handler)
	opsHandler := handler.NewOpsHandler(cfg, db)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", opsHandler.Health)
	r.Get("/info", opsHandler.Info)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/create-payment-intent", paymentHandler.CreateIntent)
	r.Post("/webhook", webhookHandler.Webhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/create-payment-intent", paymentHandler.CreateIntent)
		r.Get("/verify-payment", paymentHandler.VerifyPayment)
		r.Get("/devices/{deviceId}/status", unlockHandler.DeviceStatus)

		r.With(issueLimit.Handler).Post("/unlock-codes", unlockHandler.Issue)
		r.With(redeemLimit.Handler).Post("/unlock-codes/redeem", unlockHandler.Redeem)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Mount("/", adminHandler.Routes())
	})

	statsJob := jobs.NewStatsJob(codeRepo, db, config.StatsInterval)
	statsJob.Start()
	defer statsJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.AppEnv).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
