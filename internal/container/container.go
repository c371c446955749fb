// Package container wires configuration, infrastructure, use cases and the
// HTTP server into one runnable unit.
//
// Initialize builds the object graph in dependency order and fails fast on
// the first unreachable backend. Run starts the queue workers, the
// maintenance scheduler and the HTTP server. Shutdown unwinds in reverse:
// the HTTP listener drains first, the workers settle their in-flight
// deliveries, and the database pool closes last so everything upstream
// keeps its storage until it is done.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"

	httpadapter "github.com/centralpay/paycore/internal/adapters/http"
	"github.com/centralpay/paycore/internal/adapters/http/handlers"
	"github.com/centralpay/paycore/internal/adapters/http/middleware"
	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/application/usecases/payment"
	"github.com/centralpay/paycore/internal/application/usecases/transaction"
	"github.com/centralpay/paycore/internal/application/usecases/user"
	"github.com/centralpay/paycore/internal/application/usecases/wallet"
	"github.com/centralpay/paycore/internal/application/usecases/webhook"
	"github.com/centralpay/paycore/internal/config"
	"github.com/centralpay/paycore/internal/domain/valueobjects"
	"github.com/centralpay/paycore/internal/infrastructure/cache"
	"github.com/centralpay/paycore/internal/infrastructure/persistence/postgres"
	"github.com/centralpay/paycore/internal/infrastructure/queue"
	"github.com/centralpay/paycore/internal/pkg/logger"
	"github.com/centralpay/paycore/internal/pkg/tracing"
)

const (
	// purgeSchedule runs the processed-event purge nightly, off peak.
	purgeSchedule = "30 3 * * *"

	// requeueEvery re-enqueues webhook events stuck in PENDING. The cadence
	// must stay well inside the queue's dedup window so a sweep racing a
	// slow worker collapses into the delivery already in flight.
	requeueEvery = "@every 2m"

	// reconcileSchedule runs the wallet-ledger agreement sweep nightly,
	// after the purge.
	reconcileSchedule = "0 4 * * *"

	// poolStatsEvery refreshes the database pool gauges.
	poolStatsEvery = "@every 15s"

	// connectTimeout bounds the initial database dial.
	connectTimeout = 10 * time.Second
)

// Container holds every long-lived component of the service.
type Container struct {
	config *config.Config
	logger *slog.Logger

	tracingShutdown tracing.ShutdownFunc

	pool      *pgxpool.Pool
	cache     *cache.IdempotencyCache
	natsConn  *nats.Conn
	queue     *queue.WebhookQueue
	workers   *queue.WorkerPool
	scheduler *cron.Cron

	userRepo         ports.UserRepository
	walletRepo       ports.WalletRepository
	transactionRepo  ports.TransactionRepository
	ledgerRepo       ports.LedgerRepository
	intentRepo       ports.PaymentIntentRepository
	webhookEventRepo ports.WebhookEventRepository
	uow              ports.UnitOfWork

	registerUser     *user.RegisterUserUseCase
	getUser          *user.GetUserUseCase
	submitKYC        *user.SubmitKYCUseCase
	approveKYC       *user.ApproveKYCUseCase
	rejectKYC        *user.RejectKYCUseCase
	expireKYC        *user.ExpireKYCUseCase
	setUserActive    *user.SetUserActiveUseCase
	getBalance       *wallet.GetBalanceUseCase
	listLedger       *wallet.ListLedgerUseCase
	reconcile        *wallet.ReconcileUseCase
	transfer         *transaction.TransferUseCase
	deposit          *transaction.DepositUseCase
	getTransaction   *transaction.GetTransactionUseCase
	listTransactions *transaction.ListTransactionsUseCase
	createIntent     *payment.CreateIntentUseCase
	cancelIntent     *payment.CancelIntentUseCase
	getIntent        *payment.GetIntentUseCase
	listIntents      *payment.ListIntentsUseCase
	ingestWebhook    *webhook.IngestWebhookUseCase
	processWebhook   *webhook.ProcessWebhookUseCase
	maintenance      *webhook.MaintenanceUseCase

	httpServer *httpadapter.Server
}

// New creates an uninitialized container.
func New(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Initialize builds the full object graph. Stages run in dependency order;
// the first failure is returned with the stage named. Pre-injected pieces
// (logger, pool) are kept.
func (c *Container) Initialize(ctx context.Context) error {
	if c.config == nil {
		return fmt.Errorf("config is required")
	}

	c.initLogger()

	if err := c.initTracing(ctx); err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if err := c.initCache(); err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	if err := c.initQueue(); err != nil {
		return fmt.Errorf("initialize queue: %w", err)
	}

	c.initRepositories()

	if err := c.initUseCases(); err != nil {
		return fmt.Errorf("initialize use cases: %w", err)
	}
	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("initialize workers: %w", err)
	}
	if err := c.initScheduler(); err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}

	c.initHTTPServer()

	c.logger.Info("container initialized",
		"version", c.config.App.Version,
		"environment", c.config.App.Environment,
	)
	return nil
}

func (c *Container) initLogger() {
	if c.logger != nil {
		return
	}
	logger.Setup(&logger.Config{
		Level:     c.config.Log.Level,
		Format:    c.config.Log.Format,
		AddSource: c.config.App.Debug,
	})
	c.logger = logger.L()
}

func (c *Container) initTracing(ctx context.Context) error {
	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:     c.config.Tracing.Enabled,
		Endpoint:    c.config.Tracing.Endpoint,
		SampleRate:  c.config.Tracing.SampleRate,
		Environment: c.config.App.Environment,
		Version:     c.config.App.Version,
	}, c.logger)
	if err != nil {
		return err
	}
	c.tracingShutdown = shutdown
	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	if c.pool != nil {
		return nil
	}

	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		Host:            c.config.Database.Host,
		Port:            c.config.Database.Port,
		Database:        c.config.Database.Database,
		User:            c.config.Database.User,
		Password:        c.config.Database.Password,
		SSLMode:         c.config.Database.SSLMode,
		MaxConns:        c.config.Database.MaxConnections,
		MinConns:        c.config.Database.MinConnections,
		MaxConnLifetime: c.config.Database.MaxConnLifetime,
		MaxConnIdleTime: c.config.Database.MaxConnIdleTime,
		ConnectTimeout:  connectTimeout,
	})
	if err != nil {
		return err
	}
	c.pool = pool

	c.logger.Info("database pool ready",
		"host", c.config.Database.Host,
		"database", c.config.Database.Database,
		"max_conns", c.config.Database.MaxConnections,
	)
	return nil
}

func (c *Container) initCache() error {
	idem, err := cache.NewIdempotencyCache(cache.Config{
		Host:     c.config.Redis.Host,
		Port:     c.config.Redis.Port,
		Password: c.config.Redis.Password,
		DB:       c.config.Redis.DB,
		TTL:      c.config.Transaction.IdempotencyTTL,
	})
	if err != nil {
		return err
	}
	c.cache = idem

	c.logger.Info("idempotency cache ready",
		"host", c.config.Redis.Host,
		"ttl", c.config.Transaction.IdempotencyTTL,
	)
	return nil
}

func (c *Container) initQueue() error {
	nc, err := queue.Connect(c.config.NATS.URL)
	if err != nil {
		return err
	}
	c.natsConn = nc

	q, err := queue.NewWebhookQueue(nc)
	if err != nil {
		nc.Close()
		return err
	}
	c.queue = q

	c.logger.Info("webhook queue ready", "url", c.config.NATS.URL)
	return nil
}

func (c *Container) initRepositories() {
	c.userRepo = postgres.NewUserRepository(c.pool)
	c.walletRepo = postgres.NewWalletRepository(c.pool)
	c.transactionRepo = postgres.NewTransactionRepository(c.pool)
	c.ledgerRepo = postgres.NewLedgerRepository(c.pool)
	c.intentRepo = postgres.NewPaymentIntentRepository(c.pool)
	c.webhookEventRepo = postgres.NewWebhookEventRepository(c.pool)
	c.uow = postgres.NewUnitOfWork(c.pool, c.config.Database.StatementTimeout)
}

func (c *Container) initUseCases() error {
	minAmount, err := valueobjects.NewMoney(c.config.Transaction.MinAmount)
	if err != nil {
		return fmt.Errorf("parse transaction min amount: %w", err)
	}
	maxAmount, err := valueobjects.NewMoney(c.config.Transaction.MaxAmount)
	if err != nil {
		return fmt.Errorf("parse transaction max amount: %w", err)
	}
	limits := transaction.Limits{MinAmount: minAmount, MaxAmount: maxAmount}

	c.registerUser = user.NewRegisterUserUseCase(c.userRepo, c.walletRepo, c.uow)
	c.getUser = user.NewGetUserUseCase(c.userRepo)
	c.submitKYC = user.NewSubmitKYCUseCase(c.userRepo, c.uow)
	c.approveKYC = user.NewApproveKYCUseCase(c.userRepo, c.uow)
	c.rejectKYC = user.NewRejectKYCUseCase(c.userRepo, c.uow)
	c.expireKYC = user.NewExpireKYCUseCase(c.userRepo, c.uow)
	c.setUserActive = user.NewSetUserActiveUseCase(c.userRepo, c.uow)

	c.getBalance = wallet.NewGetBalanceUseCase(c.walletRepo)
	c.listLedger = wallet.NewListLedgerUseCase(c.walletRepo, c.ledgerRepo)
	c.reconcile = wallet.NewReconcileUseCase(c.walletRepo, c.ledgerRepo, c.logger)

	c.transfer = transaction.NewTransferUseCase(
		c.userRepo,
		c.walletRepo,
		c.transactionRepo,
		c.ledgerRepo,
		c.cache,
		c.uow,
		limits,
	)
	c.deposit = transaction.NewDepositUseCase(
		c.userRepo,
		c.walletRepo,
		c.transactionRepo,
		c.ledgerRepo,
		c.uow,
	)
	c.getTransaction = transaction.NewGetTransactionUseCase(c.transactionRepo, c.walletRepo, c.ledgerRepo)
	c.listTransactions = transaction.NewListTransactionsUseCase(c.transactionRepo, c.walletRepo)

	c.createIntent = payment.NewCreateIntentUseCase(c.userRepo, c.intentRepo, limits)
	c.cancelIntent = payment.NewCancelIntentUseCase(c.intentRepo)
	c.getIntent = payment.NewGetIntentUseCase(c.intentRepo)
	c.listIntents = payment.NewListIntentsUseCase(c.intentRepo)

	c.ingestWebhook = webhook.NewIngestWebhookUseCase(c.webhookEventRepo, c.queue, c.config.Webhook.Secret)
	c.processWebhook = webhook.NewProcessWebhookUseCase(
		c.webhookEventRepo,
		c.intentRepo,
		c.deposit,
		c.logger,
		c.config.Webhook.MaxRetries,
	)
	c.maintenance = webhook.NewMaintenanceUseCase(c.webhookEventRepo, c.queue, c.logger, c.config.Webhook.Retention())

	return nil
}

func (c *Container) initWorkers() error {
	pool, err := queue.NewWorkerPool(c.natsConn, c.processWebhook, c.logger, queue.WorkerPoolConfig{
		Workers:    c.config.Webhook.Workers,
		MaxRetries: c.config.Webhook.MaxRetries,
		RetryBase:  c.config.Webhook.RetryBase,
	})
	if err != nil {
		return err
	}
	c.workers = pool
	return nil
}

func (c *Container) initScheduler() error {
	c.scheduler = cron.New()

	if _, err := c.scheduler.AddFunc(purgeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := c.maintenance.PurgeProcessed(ctx); err != nil {
			c.logger.Error("webhook purge failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule webhook purge: %w", err)
	}

	if _, err := c.scheduler.AddFunc(requeueEvery, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := c.maintenance.RequeueStalePending(ctx); err != nil {
			c.logger.Error("webhook requeue sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule webhook requeue sweep: %w", err)
	}

	if _, err := c.scheduler.AddFunc(reconcileSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := c.reconcile.Execute(ctx); err != nil {
			c.logger.Error("wallet reconciliation failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule wallet reconciliation: %w", err)
	}

	if _, err := c.scheduler.AddFunc(poolStatsEvery, func() {
		stat := c.pool.Stat()
		middleware.UpdateDBConnections(stat.IdleConns(), stat.AcquiredConns(), stat.MaxConns())
	}); err != nil {
		return fmt.Errorf("schedule pool stats: %w", err)
	}

	return nil
}

func (c *Container) initHTTPServer() {
	validateToken := middleware.JWTTokenValidator(c.config.Auth.JWTSecret, c.config.Auth.JWTIssuer)
	if c.config.Auth.EnableMockAuth {
		// Accepts any bearer token. Config validation rejects this setting
		// outside development.
		validateToken = middleware.MockTokenValidator
	}

	var cachePinger handlers.CachePinger
	if c.cache != nil {
		cachePinger = c.cache
	}

	routerCfg := &httpadapter.RouterConfig{
		Logger:                  c.logger,
		Pool:                    c.pool,
		Cache:                   cachePinger,
		NATS:                    c.natsConn,
		Version:                 c.config.App.Version,
		BuildTime:               c.config.App.BuildTime,
		Environment:             c.config.App.Environment,
		AllowedOrigins:          c.config.CORS.AllowedOrigins,
		AuthTokenValidator:      validateToken,
		RateLimitEnabled:        c.config.RateLimit.Enabled,
		GlobalLimitPerMinute:    c.config.RateLimit.RequestsPerMinute,
		PublicLimitPerMinute:    c.config.RateLimit.BurstSize,
		FinancialLimitPerMinute: c.config.RateLimit.FinancialOpsPerMin,
	}

	router := httpadapter.NewRouterBuilder(routerCfg).
		WithUserUseCases(&httpadapter.UserUseCases{
			Register:   c.registerUser,
			Get:        c.getUser,
			SubmitKYC:  c.submitKYC,
			ApproveKYC: c.approveKYC,
			RejectKYC:  c.rejectKYC,
			ExpireKYC:  c.expireKYC,
			SetActive:  c.setUserActive,
		}).
		WithWalletUseCases(&httpadapter.WalletUseCases{
			GetBalance: c.getBalance,
			ListLedger: c.listLedger,
		}).
		WithTransactionUseCases(&httpadapter.TransactionUseCases{
			Transfer: c.transfer,
			Get:      c.getTransaction,
			List:     c.listTransactions,
		}).
		WithPaymentUseCases(&httpadapter.PaymentUseCases{
			CreateIntent:  c.createIntent,
			CancelIntent:  c.cancelIntent,
			GetIntent:     c.getIntent,
			ListIntents:   c.listIntents,
			IngestWebhook: c.ingestWebhook,
		}).
		Build()

	c.httpServer = httpadapter.NewServer(&httpadapter.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            strconv.Itoa(c.config.Server.Port),
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Logger:          c.logger,
	}, router)
}

// Run starts the queue workers, the maintenance scheduler and the HTTP
// server, then blocks until SIGINT or SIGTERM drains the server. The caller
// still owns Shutdown for everything else.
func (c *Container) Run() error {
	if err := c.workers.Start(context.Background()); err != nil {
		return fmt.Errorf("start webhook workers: %w", err)
	}
	c.scheduler.Start()

	c.logger.Info("starting paycore",
		"version", c.config.App.Version,
		"environment", c.config.App.Environment,
		"address", c.config.Server.Address(),
	)
	return c.httpServer.Run()
}

// Shutdown unwinds the container. The HTTP server drains first so clients
// get their responses, the scheduler and workers stop next, and the
// connections close with the database pool last. All errors are collected;
// one failing stage does not keep the rest from stopping.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger.Info("shutting down")

	var errs []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if c.scheduler != nil {
		select {
		case <-c.scheduler.Stop().Done():
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("scheduler: %w", ctx.Err()))
		}
	}

	if c.workers != nil {
		c.workers.Stop()
	}

	if c.natsConn != nil {
		c.natsConn.Close()
	}

	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("idempotency cache: %w", err))
		}
	}

	if c.tracingShutdown != nil {
		if err := c.tracingShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}

	if c.pool != nil {
		// pool.Close blocks until acquired connections are released; cap
		// the wait with the caller's deadline.
		done := make(chan struct{})
		go func() {
			c.pool.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("database pool: %w", ctx.Err()))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.logger.Info("shutdown complete")
	return nil
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the container's logger, nil before Initialize.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Pool returns the database pool, nil before Initialize.
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// HTTPServer returns the HTTP server, nil before Initialize.
func (c *Container) HTTPServer() *httpadapter.Server {
	return c.httpServer
}

// Maintenance returns the webhook maintenance use case, nil before
// Initialize. Operational tooling runs purges through it on demand.
func (c *Container) Maintenance() *webhook.MaintenanceUseCase {
	return c.maintenance
}

// ============================================
// Container Builder
// ============================================

// ContainerBuilder injects pre-built pieces before Initialize runs. Tests
// hand the container a testcontainers pool or a quiet logger this way.
type ContainerBuilder struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewContainerBuilder creates a builder around the given configuration.
func NewContainerBuilder(cfg *config.Config) *ContainerBuilder {
	return &ContainerBuilder{cfg: cfg}
}

// WithLogger injects a logger. Initialize keeps it instead of building one
// from the log configuration.
func (b *ContainerBuilder) WithLogger(logger *slog.Logger) *ContainerBuilder {
	b.logger = logger
	return b
}

// WithPool injects a database pool. Initialize skips the dial.
func (b *ContainerBuilder) WithPool(pool *pgxpool.Pool) *ContainerBuilder {
	b.pool = pool
	return b
}

// Build assembles and initializes the container.
func (b *ContainerBuilder) Build(ctx context.Context) (*Container, error) {
	c := New(b.cfg)
	c.logger = b.logger
	c.pool = b.pool

	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
