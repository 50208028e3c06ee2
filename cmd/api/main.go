package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/icpac-net/booking-api/internal/allowlist"
	"github.com/icpac-net/booking-api/internal/auth"
	"github.com/icpac-net/booking-api/internal/background"
	"github.com/icpac-net/booking-api/internal/config"
	"github.com/icpac-net/booking-api/internal/database"
	"github.com/icpac-net/booking-api/internal/handlers"
	middlewareCustom "github.com/icpac-net/booking-api/internal/middleware"
	"github.com/icpac-net/booking-api/internal/otp"
	"github.com/icpac-net/booking-api/internal/repositories"
	"github.com/icpac-net/booking-api/internal/routes"
	"github.com/icpac-net/booking-api/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store_backend", cfg.Server.StoreBackend))

	// Verification state lives either in Postgres or, for development, in
	// process memory behind the same store contracts.
	var (
		challengeStore services.ChallengeStore
		lockoutStore   services.LockoutStore
		totpStore      services.TOTPStore
		db             *database.DB
	)

	if cfg.Server.StoreBackend == "memory" {
		mem := repositories.NewMemoryStore()
		challengeStore = mem
		lockoutStore = mem
		totpStore = mem
		logger.Warn("using in-memory store; verification state will not survive restarts")
	} else {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(migrateCtx, "migrations"); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			migrateCancel()
			os.Exit(1)
		}
		migrateCancel()

		challengeStore = repositories.NewChallengeRepository(db)
		lockoutStore = repositories.NewLockoutRepository(db)
		totpStore = repositories.NewTOTPCredentialRepository(db)
	}

	// Email delivery
	var emailService services.EmailService
	if cfg.Email.Provider == "log" {
		emailService = services.NewLogEmailService(logger)
	} else {
		emailService, err = services.NewAWSSESEmailService(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.SubjectPrefix,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Token and TOTP managers
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.VerifiedTokenExpiry)

	totpManager, err := auth.NewTOTPManager([]byte(cfg.Auth.TOTPEncryptionKey), cfg.Auth.TOTPIssuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	// Core services
	lockoutService := services.NewLockoutService(lockoutStore, services.LockoutConfig{
		Threshold: cfg.Verification.LockoutThreshold,
		Cooldown:  cfg.Verification.LockoutCooldown,
	}, logger)

	verificationService := services.NewVerificationService(
		challengeStore,
		lockoutService,
		allowlist.New(cfg.Verification.AllowedDomains),
		otp.NewGenerator(cfg.Verification.CodeLength, cfg.Verification.CodeTTL),
		emailService,
		tokenManager,
		cfg.Verification.DeliveryTimeout,
		logger,
	)

	totpService := services.NewTOTPService(totpStore, totpManager, logger)

	// Handlers
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	totpHandler := handlers.NewTOTPHandler(totpService)

	// Cleanup worker
	cleanupManager := background.NewCleanupManager(challengeStore, lockoutStore, logger, cfg.Verification.CleanupInterval)

	// CORS
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, verificationHandler, totpHandler, tokenManager)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.HealthCheck(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
}
