// Package config loads and validates the application configuration.
//
// Sources, highest priority first:
//  1. Environment variables (PAYCORE_ prefix)
//  2. Config file (yaml)
//  3. Defaults
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ============================================
// Main Configuration
// ============================================

// Config is the root configuration of the application.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Auth        AuthConfig        `mapstructure:"auth"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Log         LogConfig         `mapstructure:"log"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

// ============================================
// App Configuration
// ============================================

// AppConfig identifies the running instance.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	BuildTime   string `mapstructure:"build_time"`
	GitCommit   string `mapstructure:"git_commit"`
}

// IsDevelopment reports whether the environment is development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the environment is production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ============================================
// Server Configuration
// ============================================

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the host:port the server binds to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ============================================
// Database Configuration
// ============================================

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int32  `mapstructure:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections"`

	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	// StatementTimeout bounds every statement inside a unit of work, so a
	// stuck query cannot hold wallet row locks indefinitely.
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// ============================================
// Redis Configuration
// ============================================

// RedisConfig holds the settings of the idempotency cache.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ============================================
// NATS Configuration
// ============================================

// NATSConfig holds the settings of the webhook queue broker.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ============================================
// Auth Configuration
// ============================================

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer"`
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"`

	// EnableMockAuth accepts unsigned development tokens. Never in
	// production; Validate enforces that.
	EnableMockAuth bool `mapstructure:"enable_mock_auth"`
}

// ============================================
// CORS Configuration
// ============================================

// CORSConfig holds the CORS policy.
type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `mapstructure:"exposed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// ============================================
// Rate Limit Configuration
// ============================================

// RateLimitConfig holds the per-client request budgets. Financial
// operations get a tighter budget than reads.
type RateLimitConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	RequestsPerMinute  int           `mapstructure:"requests_per_minute"`
	BurstSize          int           `mapstructure:"burst_size"`
	FinancialOpsPerMin int           `mapstructure:"financial_ops_per_min"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
}

// ============================================
// Transaction Configuration
// ============================================

// TransactionConfig bounds client-initiated money movement.
type TransactionConfig struct {
	// MinAmount and MaxAmount are decimal strings, parsed into Money at
	// container build time.
	MinAmount string `mapstructure:"min_amount"`
	MaxAmount string `mapstructure:"max_amount"`

	// IdempotencyTTL is how long reference id lookups stay cached. The
	// database unique index answers after expiry.
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// ============================================
// Webhook Configuration
// ============================================

// WebhookConfig drives the gateway notification pipeline.
type WebhookConfig struct {
	// Secret signs every gateway request body (HMAC-SHA256).
	Secret string `mapstructure:"secret"`

	// MaxRetries caps redeliveries after the first processing attempt.
	MaxRetries int `mapstructure:"max_retries"`

	// RetryBase is the delay before the first retry; later retries double it.
	RetryBase time.Duration `mapstructure:"retry_base"`

	// Workers is the number of concurrent queue consumers.
	Workers int `mapstructure:"workers"`

	// RetentionDays is how long PROCESSED events stay queryable before the
	// nightly purge removes them.
	RetentionDays int `mapstructure:"retention_days"`
}

// Retention returns the processed-event retention as a duration.
func (c *WebhookConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// ============================================
// Log Configuration
// ============================================

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// ============================================
// Tracing Configuration
// ============================================

// TracingConfig holds the OTLP trace export settings.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// ============================================
// Configuration Loading
// ============================================

// Load reads configuration from a file and the environment.
//
// configPath is the directory holding the config file, configName the file
// name without extension. A missing file is not an error; defaults and
// environment variables still apply. Besides the PAYCORE_* names, the short
// aliases bound in bindEnvVars (DB_HOST, PORT, ENV, ...) are honored so
// platform-injected variables work without renaming.
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/paycore")

	v.SetEnvPrefix("PAYCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "paycore")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "paycore")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.statement_timeout", "5s")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.jwt_issuer", "paycore")
	v.SetDefault("auth.access_token_expiry", "15m")
	v.SetDefault("auth.enable_mock_auth", true)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "Idempotency-Key"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", "12h")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 100)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.financial_ops_per_min", 30)
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Transaction defaults
	v.SetDefault("transaction.min_amount", "0.01")
	v.SetDefault("transaction.max_amount", "1000000.00")
	v.SetDefault("transaction.idempotency_ttl", "24h")

	// Webhook defaults
	v.SetDefault("webhook.secret", "dev-webhook-secret")
	v.SetDefault("webhook.max_retries", 3)
	v.SetDefault("webhook.retry_base", "60s")
	v.SetDefault("webhook.workers", 4)
	v.SetDefault("webhook.retention_days", 90)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.sample_rate", 1.0)
}

// bindEnvVars accepts the short environment names deployments commonly use
// alongside the PAYCORE_ namespace.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.host", "PAYCORE_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "PAYCORE_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "PAYCORE_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "PAYCORE_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "PAYCORE_DATABASE_DATABASE", "DB_NAME")

	_ = v.BindEnv("redis.host", "PAYCORE_REDIS_HOST", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "PAYCORE_REDIS_PORT", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "PAYCORE_REDIS_PASSWORD", "REDIS_PASSWORD")

	_ = v.BindEnv("nats.url", "PAYCORE_NATS_URL", "NATS_URL")

	_ = v.BindEnv("auth.jwt_secret", "PAYCORE_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("webhook.secret", "PAYCORE_WEBHOOK_SECRET", "WEBHOOK_SECRET")

	_ = v.BindEnv("server.port", "PAYCORE_SERVER_PORT", "PORT")

	_ = v.BindEnv("app.environment", "PAYCORE_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// ============================================
// Configuration Validation
// ============================================

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.App.IsProduction() {
		if c.Auth.JWTSecret == "change-me-in-production" {
			return fmt.Errorf("JWT secret must be changed in production")
		}
		if c.Auth.EnableMockAuth {
			return fmt.Errorf("mock auth must be disabled in production")
		}
	}

	// A predictable webhook secret lets anyone forge gateway callbacks.
	if !c.App.IsDevelopment() {
		if c.Webhook.Secret == "" || c.Webhook.Secret == "dev-webhook-secret" {
			return fmt.Errorf("webhook secret must be set outside development")
		}
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Webhook.MaxRetries < 0 {
		return fmt.Errorf("webhook max_retries must not be negative")
	}
	if c.Webhook.RetryBase <= 0 {
		return fmt.Errorf("webhook retry_base must be positive")
	}
	if c.Transaction.IdempotencyTTL <= 0 {
		return fmt.Errorf("transaction idempotency_ttl must be positive")
	}

	return nil
}

// ============================================
// Development Helpers
// ============================================

// Development returns a configuration suitable for local development.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "paycore",
			Version:     "dev",
			Environment: "development",
			Debug:       true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:             "localhost",
			Port:             5432,
			User:             "postgres",
			Password:         "postgres",
			Database:         "paycore",
			SSLMode:          "disable",
			MaxConnections:   10,
			MinConnections:   2,
			MaxConnLifetime:  time.Hour,
			MaxConnIdleTime:  30 * time.Minute,
			StatementTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Auth: AuthConfig{
			JWTSecret:         "dev-secret-key",
			JWTIssuer:         "paycore-dev",
			AccessTokenExpiry: 15 * time.Minute,
			EnableMockAuth:    true,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:            true,
			RequestsPerMinute:  100,
			BurstSize:          20,
			FinancialOpsPerMin: 30,
			CleanupInterval:    time.Minute,
		},
		Transaction: TransactionConfig{
			MinAmount:      "0.01",
			MaxAmount:      "1000000.00",
			IdempotencyTTL: 24 * time.Hour,
		},
		Webhook: WebhookConfig{
			Secret:        "dev-webhook-secret",
			MaxRetries:    3,
			RetryBase:     time.Minute,
			Workers:       4,
			RetentionDays: 90,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Endpoint:   "localhost:4318",
			SampleRate: 1.0,
		},
	}
}

// Test returns a configuration suitable for tests.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Database = "paycore_test"
	cfg.Webhook.Secret = "test-webhook-secret"
	cfg.Log.Level = "error"
	return cfg
}
