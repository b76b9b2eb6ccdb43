// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"bottleworks/internal/domain/addon"
	"bottleworks/internal/domain/auth"
	"bottleworks/internal/domain/batch"
	"bottleworks/internal/domain/invoice"
	"bottleworks/internal/domain/order"
	"bottleworks/internal/domain/settings"
	"bottleworks/internal/infrastructure/http/v1/handlers"
	"bottleworks/internal/infrastructure/http/v1/middleware"
	"bottleworks/internal/infrastructure/storage/postgres"
	"bottleworks/pkg/logger"
)

// RouterConfig holds the wired application services.
type RouterConfig struct {
	// Pool is the database connection pool (health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Domain services
	AuthService     *auth.Service
	OrderService    *order.Service
	AddonService    *addon.Service
	InvoiceService  *invoice.Service
	BatchService    *batch.Service
	SettingsService *settings.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// API v1
	api := router.Group("/api/v1")
	{
		// Auth routes: login/refresh public, the rest behind JWT
		authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
		publicAuth := api.Group("/auth")
		protectedAuth := api.Group("/auth")
		protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
		protectedAuth.Use(middleware.UserContext())
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		// Protected business endpoints
		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		protected.Use(middleware.UserContext())

		orderHandler := handlers.NewOrderHandler(baseHandler, cfg.OrderService)
		addonHandler := handlers.NewAddonHandler(baseHandler, cfg.AddonService)
		invoiceHandler := handlers.NewInvoiceHandler(baseHandler, cfg.InvoiceService)
		batchHandler := handlers.NewBatchHandler(baseHandler, cfg.BatchService)
		settingsHandler := handlers.NewSettingsHandler(baseHandler, cfg.SettingsService)

		orders := protected.Group("/orders")
		orderHandler.RegisterRoutes(orders)
		addonHandler.RegisterRoutes(orders)
		invoiceHandler.RegisterOrderRoutes(orders)
		batchHandler.RegisterOrderRoutes(orders)

		invoiceHandler.RegisterRoutes(protected.Group("/invoices"))
		batchHandler.RegisterRoutes(protected.Group("/batches"))
		settingsHandler.RegisterRoutes(protected.Group("/settings"))
	}

	return router
}
