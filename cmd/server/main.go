// Package main is the entry point for the bottleworks API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bottleworks/internal/domain/addon"
	"bottleworks/internal/domain/auth"
	"bottleworks/internal/domain/batch"
	"bottleworks/internal/domain/invoice"
	"bottleworks/internal/domain/order"
	"bottleworks/internal/domain/settings"
	v1 "bottleworks/internal/infrastructure/http/v1"
	"bottleworks/internal/infrastructure/numerator"
	"bottleworks/internal/infrastructure/storage/postgres"
	"bottleworks/internal/infrastructure/storage/postgres/auth_repo"
	"bottleworks/internal/infrastructure/storage/postgres/document_repo"
	"bottleworks/internal/infrastructure/storage/postgres/settings_repo"
	"bottleworks/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting bottleworks server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Infrastructure services ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}
	eventPublisher := postgres.NewOutboxPublisher(txManager)
	numeratorService := numerator.New(pool.Pool)

	// --- Repositories ---
	orderRepo := document_repo.NewSalesOrderRepo(txManager)
	linkRepo := document_repo.NewAddonLinkRepo(txManager)
	invoiceRepo := document_repo.NewInvoiceRepo(txManager)
	batchRepo := document_repo.NewProductionBatchRepo(txManager)
	settingsRepo := settings_repo.NewSettingsRepo(txManager)
	userRepo := auth_repo.NewUserRepo(txManager)
	tokenRepo := auth_repo.NewTokenRepo(txManager)

	// --- JWT / Auth ---
	jwtSecret := getEnv("JWT_SECRET", "dev-secret-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	authService := auth.NewService(userRepo, tokenRepo, txManager, jwtService, auth.DefaultServiceConfig())

	// --- Domain services ---
	orderService := order.NewService(orderRepo, numeratorService, txManager, auditService, eventPublisher)
	settingsService := settings.NewService(settingsRepo)
	invoiceService := invoice.NewService(invoiceRepo, orderRepo, numeratorService, txManager, auditService, eventPublisher)
	addonService := addon.NewService(orderRepo, linkRepo, settingsService, invoiceService, numeratorService, txManager, auditService, eventPublisher)
	batchService := batch.NewService(batchRepo, orderRepo, numeratorService, txManager, auditService, eventPublisher)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:            pool,
		Logger:          log,
		JWTValidator:    jwtService,
		AuthService:     authService,
		OrderService:    orderService,
		AddonService:    addonService,
		InvoiceService:  invoiceService,
		BatchService:    batchService,
		SettingsService: settingsService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
