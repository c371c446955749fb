// Package http contains the HTTP adapters (REST API).
//
// Package layout:
// - common/: shared response types and helpers (split out to avoid import cycles)
// - middleware/: HTTP middleware (auth, logging, recovery)
// - handlers/: HTTP handlers per resource
// - router.go: route configuration
// - server.go: HTTP server lifecycle
//
// The router is the composition root of the adapter: every handler and
// middleware chain is assembled here, and each handler receives only the use
// cases it serves. HTTP translates requests into use case calls and holds no
// business logic of its own.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/centralpay/paycore/internal/adapters/http/common"
	"github.com/centralpay/paycore/internal/adapters/http/handlers"
	"github.com/centralpay/paycore/internal/adapters/http/middleware"
)

// tracingServiceName labels HTTP spans; it matches the resource name the
// tracer provider registers under.
const tracingServiceName = "paycore-api"

// ============================================
// Router Configuration
// ============================================

// RouterConfig carries everything the HTTP surface needs that is not a use
// case: infrastructure handles for the readiness probe, identity of the
// build, and the request budgets.
type RouterConfig struct {
	// Logger for middleware
	Logger *slog.Logger
	// Pool is reported on the readiness probe and feeds connection gauges
	Pool *pgxpool.Pool
	// Cache is reported on the readiness probe
	Cache handlers.CachePinger
	// NATS is reported on the readiness probe
	NATS *nats.Conn
	// Version of the application
	Version string
	// BuildTime of the binary
	BuildTime string
	// Environment (development, staging, production)
	Environment string
	// AllowedOrigins for CORS in production
	AllowedOrigins []string
	// AuthTokenValidator validates bearer tokens
	AuthTokenValidator func(token string) (*middleware.AuthClaims, error)

	// RateLimitEnabled turns the request budgets on
	RateLimitEnabled bool
	// GlobalLimitPerMinute budgets every request per client IP
	GlobalLimitPerMinute int
	// PublicLimitPerMinute budgets the unauthenticated surfaces
	// (registration, webhook ingest) per IP and path
	PublicLimitPerMinute int
	// FinancialLimitPerMinute budgets money movement per user
	FinancialLimitPerMinute int
}

// DefaultRouterConfig returns a development configuration. Tokens are
// accepted by the mock validator, so it must never reach production.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:                  slog.Default(),
		Version:                 "dev",
		BuildTime:               "unknown",
		Environment:             "development",
		AllowedOrigins:          []string{"*"},
		AuthTokenValidator:      middleware.MockTokenValidator,
		RateLimitEnabled:        true,
		GlobalLimitPerMinute:    100,
		PublicLimitPerMinute:    20,
		FinancialLimitPerMinute: 30,
	}
}

// ============================================
// Use Case Providers
// ============================================

// UserUseCases groups the use cases behind the user and KYC routes.
type UserUseCases struct {
	Register   handlers.RegisterUserUseCase
	Get        handlers.GetUserUseCase
	SubmitKYC  handlers.SubmitKYCUseCase
	ApproveKYC handlers.ReviewKYCUseCase
	RejectKYC  handlers.ReviewKYCUseCase
	ExpireKYC  handlers.ReviewKYCUseCase
	SetActive  handlers.SetUserActiveUseCase
}

// WalletUseCases groups the use cases behind the wallet routes.
type WalletUseCases struct {
	GetBalance handlers.GetBalanceUseCase
	ListLedger handlers.ListLedgerUseCase
}

// TransactionUseCases groups the use cases behind the transaction routes.
type TransactionUseCases struct {
	Transfer handlers.TransferUseCase
	Get      handlers.GetTransactionUseCase
	List     handlers.ListTransactionsUseCase
}

// PaymentUseCases groups the use cases behind the payment intent routes and
// the gateway webhook.
type PaymentUseCases struct {
	CreateIntent  handlers.CreateIntentUseCase
	CancelIntent  handlers.CancelIntentUseCase
	GetIntent     handlers.GetIntentUseCase
	ListIntents   handlers.ListIntentsUseCase
	IngestWebhook handlers.IngestWebhookUseCase
}

// ============================================
// Router Builder
// ============================================

// RouterBuilder assembles the Gin engine step by step. Handler groups whose
// use cases were never provided are simply not routed, which keeps partial
// wiring (tests, tooling) possible.
type RouterBuilder struct {
	config       *RouterConfig
	users        *UserUseCases
	wallets      *WalletUseCases
	transactions *TransactionUseCases
	payments     *PaymentUseCases
}

// NewRouterBuilder creates a builder. A nil config gets development defaults.
func NewRouterBuilder(config *RouterConfig) *RouterBuilder {
	if config == nil {
		config = DefaultRouterConfig()
	}
	return &RouterBuilder{
		config: config,
	}
}

// WithUserUseCases adds the user and KYC use cases.
func (b *RouterBuilder) WithUserUseCases(useCases *UserUseCases) *RouterBuilder {
	b.users = useCases
	return b
}

// WithWalletUseCases adds the wallet use cases.
func (b *RouterBuilder) WithWalletUseCases(useCases *WalletUseCases) *RouterBuilder {
	b.wallets = useCases
	return b
}

// WithTransactionUseCases adds the transaction use cases.
func (b *RouterBuilder) WithTransactionUseCases(useCases *TransactionUseCases) *RouterBuilder {
	b.transactions = useCases
	return b
}

// WithPaymentUseCases adds the payment intent and webhook use cases.
func (b *RouterBuilder) WithPaymentUseCases(useCases *PaymentUseCases) *RouterBuilder {
	b.payments = useCases
	return b
}

// Build creates the configured Gin engine.
func (b *RouterBuilder) Build() *gin.Engine {
	if b.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	handlers.SetupValidator()

	// ============================================
	// Global Middleware
	// ============================================

	// Recovery runs first so every later panic is caught.
	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           b.config.Logger,
		EnableStackTrace: b.config.Environment != "production",
	}))

	router.Use(middleware.RequestID())

	if b.config.Environment == "production" {
		router.Use(middleware.CORS(middleware.ProductionCORSConfig(b.config.AllowedOrigins)))
	} else {
		router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	}

	// Tracing wraps logging so log lines can carry the active span.
	router.Use(otelgin.Middleware(tracingServiceName))

	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    b.config.Logger,
		SkipPaths: []string{"/health", "/health/ready", "/health/live", "/metrics"},
	}))

	if b.config.RateLimitEnabled {
		router.Use(middleware.RateLimit(&middleware.RateLimitConfig{
			Limit:  b.config.GlobalLimitPerMinute,
			Window: time.Minute,
		}))
	}

	router.Use(middleware.Metrics())

	// ============================================
	// Metrics Endpoint (no auth)
	// ============================================

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============================================
	// Health Check Routes (no auth)
	// ============================================

	healthHandler := handlers.NewHealthHandler(
		b.config.Pool,
		b.config.Cache,
		b.config.NATS,
		b.config.Version,
		b.config.BuildTime,
	)
	healthHandler.RegisterRoutes(router)

	// ============================================
	// API v1 Routes
	// ============================================

	v1 := router.Group("/api/v1")

	// Public routes (no auth required)
	publicGroup := v1.Group("")
	if b.config.RateLimitEnabled {
		publicGroup.Use(middleware.SensitiveEndpointRateLimit(b.config.PublicLimitPerMinute))
	}
	{
		if b.users != nil {
			userHandler := b.buildUserHandler()
			publicGroup.POST("/users", userHandler.Register)
		}

		// The gateway authenticates with an HMAC signature, not a bearer
		// token, so the webhook stays outside the auth group.
		if b.payments != nil {
			webhookHandler := handlers.NewWebhookHandler(b.payments.IngestWebhook)
			publicGroup.POST("/payments/webhook", webhookHandler.Ingest)
		}
	}

	// Protected routes (auth required)
	protectedGroup := v1.Group("")
	protectedGroup.Use(middleware.Auth(&middleware.AuthConfig{
		TokenValidator: b.config.AuthTokenValidator,
	}))
	{
		if b.users != nil {
			userHandler := b.buildUserHandler()
			users := protectedGroup.Group("/users")
			{
				users.GET("/me", userHandler.GetMe)
				users.POST("/me/kyc", userHandler.SubmitKYC)
			}
		}

		if b.wallets != nil {
			walletHandler := handlers.NewWalletHandler(
				b.wallets.GetBalance,
				b.wallets.ListLedger,
			)
			wallet := protectedGroup.Group("/wallet")
			{
				wallet.GET("/balance", walletHandler.GetBalance)
				wallet.GET("/ledger", walletHandler.ListLedger)
			}
		}

		if b.transactions != nil {
			txHandler := handlers.NewTransactionHandler(
				b.transactions.Transfer,
				b.transactions.Get,
				b.transactions.List,
			)
			transactions := protectedGroup.Group("/transactions")
			{
				transactions.GET("", txHandler.ListTransactions)
				transactions.GET("/:id", txHandler.GetTransaction)

				// Money movement gets a tighter per-user budget.
				financialOps := transactions.Group("")
				if b.config.RateLimitEnabled {
					financialOps.Use(middleware.TransactionRateLimit(b.config.FinancialLimitPerMinute))
				}
				financialOps.POST("/transfer", txHandler.Transfer)
			}
		}

		if b.payments != nil {
			paymentHandler := handlers.NewPaymentHandler(
				b.payments.CreateIntent,
				b.payments.CancelIntent,
				b.payments.GetIntent,
				b.payments.ListIntents,
			)
			payments := protectedGroup.Group("/payments")
			{
				payments.GET("", paymentHandler.ListIntents)
				payments.GET("/:id", paymentHandler.GetIntent)

				financialOps := payments.Group("")
				if b.config.RateLimitEnabled {
					financialOps.Use(middleware.TransactionRateLimit(b.config.FinancialLimitPerMinute))
				}
				financialOps.POST("/intent", paymentHandler.CreateIntent)
				financialOps.POST("/:id/cancel", paymentHandler.CancelIntent)
			}
		}
	}

	// ============================================
	// Staff Routes (staff role required)
	// ============================================

	if b.users != nil {
		userHandler := b.buildUserHandler()
		staffGroup := v1.Group("/users")
		staffGroup.Use(middleware.Auth(&middleware.AuthConfig{
			TokenValidator: b.config.AuthTokenValidator,
		}))
		staffGroup.Use(middleware.RequireRole("staff"))
		{
			staffGroup.POST("/:id/kyc/approve", userHandler.ApproveKYC)
			staffGroup.POST("/:id/kyc/reject", userHandler.RejectKYC)
			staffGroup.POST("/:id/kyc/expire", userHandler.ExpireKYC)
			staffGroup.POST("/:id/deactivate", userHandler.DeactivateUser)
			staffGroup.POST("/:id/activate", userHandler.ActivateUser)
		}
	}

	// ============================================
	// 404 Handler
	// ============================================

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, http.StatusNotFound, &common.APIError{
			Code:    common.ErrCodeNotFound,
			Message: "Endpoint not found",
			Details: map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			},
		})
	})

	return router
}

func (b *RouterBuilder) buildUserHandler() *handlers.UserHandler {
	return handlers.NewUserHandler(
		b.users.Register,
		b.users.Get,
		b.users.SubmitKYC,
		b.users.ApproveKYC,
		b.users.RejectKYC,
		b.users.ExpireKYC,
		b.users.SetActive,
	)
}
