package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{Environment: tt.environment}
			assert.Equal(t, tt.expected, cfg.IsDevelopment())
		})
	}
}

func TestAppConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{Environment: tt.environment}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{"localhost", "localhost", 8080, "localhost:8080"},
		{"all interfaces", "0.0.0.0", 3000, "0.0.0.0:3000"},
		{"custom host", "192.168.1.1", 9000, "192.168.1.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ServerConfig{Host: tt.host, Port: tt.port}
			assert.Equal(t, tt.expected, cfg.Address())
		})
	}
}

func TestWebhookConfig_Retention(t *testing.T) {
	cfg := &WebhookConfig{RetentionDays: 90}
	assert.Equal(t, 90*24*time.Hour, cfg.Retention())
}

func TestConfig_Validate_Development(t *testing.T) {
	cfg := Development()
	err := cfg.Validate()
	assert.NoError(t, err)
}

// validProductionConfig is a baseline that passes Validate; the production
// tests break one field at a time.
func validProductionConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "production",
		},
		Auth: AuthConfig{
			JWTSecret:      "my-super-secure-production-secret",
			EnableMockAuth: false,
		},
		Database: DatabaseConfig{
			Host:    "db.example.com",
			SSLMode: "require",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Transaction: TransactionConfig{
			MinAmount:      "0.01",
			MaxAmount:      "1000000.00",
			IdempotencyTTL: 24 * time.Hour,
		},
		Webhook: WebhookConfig{
			Secret:        "prod-webhook-secret",
			MaxRetries:    3,
			RetryBase:     time.Minute,
			Workers:       4,
			RetentionDays: 90,
		},
	}
}

func TestConfig_Validate_Production_Valid(t *testing.T) {
	assert.NoError(t, validProductionConfig().Validate())
}

func TestConfig_Validate_Production_DefaultJWTSecret(t *testing.T) {
	cfg := validProductionConfig()
	cfg.Auth.JWTSecret = "change-me-in-production"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret must be changed")
}

func TestConfig_Validate_Production_MockAuthEnabled(t *testing.T) {
	cfg := validProductionConfig()
	cfg.Auth.EnableMockAuth = true

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mock auth must be disabled")
}

func TestConfig_Validate_WebhookSecretRequired(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty", ""},
		{"development default", "dev-webhook-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validProductionConfig()
			cfg.App.Environment = "staging"
			cfg.Webhook.Secret = tt.secret

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "webhook secret")
		})
	}
}

func TestConfig_Validate_WebhookSecretDefaultAllowedInDevelopment(t *testing.T) {
	cfg := Development()
	cfg.Webhook.Secret = "dev-webhook-secret"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_EmptyDatabaseHost(t *testing.T) {
	cfg := Development()
	cfg.Database.Host = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database host is required")
}

func TestConfig_Validate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too high", 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Development()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "invalid server port")
		})
	}
}

func TestConfig_Validate_WebhookRetrySettings(t *testing.T) {
	cfg := Development()
	cfg.Webhook.MaxRetries = -1
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_retries")

	cfg = Development()
	cfg.Webhook.RetryBase = 0
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry_base")
}

func TestConfig_Validate_IdempotencyTTL(t *testing.T) {
	cfg := Development()
	cfg.Transaction.IdempotencyTTL = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "idempotency_ttl")
}

func TestDevelopment(t *testing.T) {
	cfg := Development()

	assert.Equal(t, "paycore", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Auth.EnableMockAuth)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestTest(t *testing.T) {
	cfg := Test()

	assert.Equal(t, "test", cfg.App.Environment)
	assert.Equal(t, "paycore_test", cfg.Database.Database)
	assert.Equal(t, "test-webhook-secret", cfg.Webhook.Secret)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotFound(t *testing.T) {
	// Defaults apply when no file is found.
	cfg, err := Load("/nonexistent/path", "nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "paycore", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.01", cfg.Transaction.MinAmount)
	assert.Equal(t, "1000000.00", cfg.Transaction.MaxAmount)
	assert.Equal(t, 24*time.Hour, cfg.Transaction.IdempotencyTTL)
	assert.Equal(t, 3, cfg.Webhook.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Webhook.RetryBase)
	assert.Equal(t, 90, cfg.Webhook.RetentionDays)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.StatementTimeout)
}

func TestLoad_WithEnvOverride(t *testing.T) {
	os.Setenv("PAYCORE_APP_ENVIRONMENT", "staging")
	os.Setenv("PAYCORE_SERVER_PORT", "9000")
	os.Setenv("PAYCORE_DATABASE_HOST", "db.staging.local")
	os.Setenv("PAYCORE_WEBHOOK_SECRET", "staging-webhook-secret")
	defer func() {
		os.Unsetenv("PAYCORE_APP_ENVIRONMENT")
		os.Unsetenv("PAYCORE_SERVER_PORT")
		os.Unsetenv("PAYCORE_DATABASE_HOST")
		os.Unsetenv("PAYCORE_WEBHOOK_SECRET")
	}()

	cfg, err := Load("/nonexistent/path", "nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "db.staging.local", cfg.Database.Host)
	assert.Equal(t, "staging-webhook-secret", cfg.Webhook.Secret)
}

func TestLoad_ShortEnvNames(t *testing.T) {
	os.Setenv("DB_HOST", "db.internal")
	os.Setenv("NATS_URL", "nats://broker:4222")
	defer func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("NATS_URL")
	}()

	cfg, err := Load("/nonexistent/path", "nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
}

func TestServerConfig_Timeouts(t *testing.T) {
	cfg := Development()

	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestDatabaseConfig_ConnectionPool(t *testing.T) {
	cfg := Development()

	assert.Equal(t, int32(10), cfg.Database.MaxConnections)
	assert.Equal(t, int32(2), cfg.Database.MinConnections)
	assert.Equal(t, time.Hour, cfg.Database.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, cfg.Database.MaxConnIdleTime)
}

func TestRateLimitConfig(t *testing.T) {
	cfg := Development()

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 20, cfg.RateLimit.BurstSize)
	assert.Equal(t, 30, cfg.RateLimit.FinancialOpsPerMin)
	assert.Equal(t, time.Minute, cfg.RateLimit.CleanupInterval)
}

func TestCORSConfig(t *testing.T) {
	cfg, err := Load("/nonexistent/path", "nonexistent")
	require.NoError(t, err)

	assert.Contains(t, cfg.CORS.AllowedOrigins, "*")
	assert.Contains(t, cfg.CORS.AllowedMethods, "GET")
	assert.Contains(t, cfg.CORS.AllowedMethods, "POST")
	assert.Contains(t, cfg.CORS.AllowedHeaders, "Idempotency-Key")
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.CORS.MaxAge)
}
