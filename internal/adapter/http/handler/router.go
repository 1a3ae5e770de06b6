package handler

import (
	"virtual-wallet/internal/adapter/http/middleware"
	redisStore "virtual-wallet/internal/adapter/storage/redis"
	"virtual-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	TransactionSvc ports.TransactionService
	RecurringSvc   ports.RecurringService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// API v1 routes
	v1 := r.Group("/api/v1")

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("wallets"), walletHandler.Create)
		wallets.GET("", rl("wallets"), walletHandler.Balances)
		wallets.POST("/deposit", rl("wallets"), walletHandler.Deposit)
		wallets.POST("/withdraw", rl("wallets"), walletHandler.Withdraw)
	}

	txHandler := NewTransactionHandler(deps.TransactionSvc)
	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.POST("", rl("transactions"), txHandler.Create)
		transactions.GET("", rl("transactions"), txHandler.List)
		transactions.PUT("/:id/confirm", rl("transactions"), txHandler.Confirm)
		transactions.PUT("/:id/approve", rl("transactions"), txHandler.Approve)
		transactions.PUT("/:id/reject", rl("transactions"), txHandler.Reject)
		transactions.PUT("/:id/deny", rl("transactions"), txHandler.Deny)
	}

	recurringHandler := NewRecurringHandler(deps.RecurringSvc)
	recurring := v1.Group("/recurring-transactions", jwtAuth)
	{
		recurring.POST("", rl("recurring"), recurringHandler.Create)
		recurring.GET("", rl("recurring"), recurringHandler.List)
		recurring.DELETE("/:id", rl("recurring"), recurringHandler.Cancel)
	}

	return r
}
