package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"virtual-wallet/config"
	httpHandler "virtual-wallet/internal/adapter/http/handler"
	pgStorage "virtual-wallet/internal/adapter/storage/postgres"
	redisStorage "virtual-wallet/internal/adapter/storage/redis"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/internal/service"
	"virtual-wallet/internal/worker"
	"virtual-wallet/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Virtual Wallet")

	ctx := context.Background()

	// Run database migrations
	if err := pgStorage.RunMigrations(cfg.Database.DSN(), log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	cardRepo := pgStorage.NewCardRepo(pool)
	categoryRepo := pgStorage.NewCategoryRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	recurringRepo := pgStorage.NewRecurringRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)
	walletSvc := service.NewWalletService(walletRepo, userRepo, transactor, auditSvc, log)
	txSvc := service.NewTransactionService(
		txRepo, walletRepo, userRepo, cardRepo, categoryRepo, transactor, auditSvc, log)
	recurringSvc := service.NewRecurringService(
		recurringRepo, txRepo, walletRepo, userRepo, cardRepo, categoryRepo, transactor, auditSvc, log)

	// Initialize Redis stores
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	sweepLock := redisStorage.NewSweepLock(rdb, uuid.NewString())

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Start the recurring-transaction sweeper
	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	sweeper := worker.NewSweeper(recurringSvc, sweepLock, cfg.Scheduler.SweepInterval, cfg.Scheduler.LockTTL, log)
	sweeper.Start(sweeperCtx)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		TransactionSvc: txSvc,
		RecurringSvc:   recurringSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweeper()
	sweeper.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
