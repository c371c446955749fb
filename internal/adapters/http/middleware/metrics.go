package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	// httpRequestsTotal counts total HTTP requests
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paycore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures request latency
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paycore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// httpRequestsInFlight tracks concurrent requests
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paycore",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// httpResponseSize measures response body size
	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paycore",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8), // 100B to 10GB
		},
		[]string{"method", "path"},
	)
)

// Business metrics
var (
	// TransactionsTotal counts transactions by type and status
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paycore",
			Subsystem: "business",
			Name:      "transactions_total",
			Help:      "Total number of transactions",
		},
		[]string{"type", "status"},
	)

	// TransactionAmount tracks transaction amounts
	TransactionAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paycore",
			Subsystem: "business",
			Name:      "transaction_amount",
			Help:      "Transaction amounts in major currency units",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8), // 1 to 10M
		},
		[]string{"type"},
	)

	// WebhookEventsTotal counts ingested webhook deliveries by result
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paycore",
			Subsystem: "business",
			Name:      "webhook_events_total",
			Help:      "Total number of webhook deliveries received",
		},
		[]string{"result"},
	)

	// KYCReviewsTotal counts verification review decisions
	KYCReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paycore",
			Subsystem: "business",
			Name:      "kyc_reviews_total",
			Help:      "Total number of KYC review decisions",
		},
		[]string{"decision"},
	)
)

// Database metrics
var (
	// DBConnectionsTotal tracks database connections
	DBConnectionsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "paycore",
			Subsystem: "db",
			Name:      "connections",
			Help:      "Number of database connections",
		},
		[]string{"state"}, // idle, in_use, max
	)
)

// Metrics returns the Prometheus metrics middleware
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(c.Writer.Size()))
	}
}

// RecordTransaction records a completed transaction. The amount is the
// decimal string the API already carries; unparseable amounts still count
// but skip the histogram.
func RecordTransaction(txType, status, amount string) {
	TransactionsTotal.WithLabelValues(txType, status).Inc()
	if v, err := decimal.NewFromString(amount); err == nil {
		TransactionAmount.WithLabelValues(txType).Observe(v.InexactFloat64())
	}
}

// RecordWebhookEvent records one ingested webhook delivery.
func RecordWebhookEvent(result string) {
	WebhookEventsTotal.WithLabelValues(result).Inc()
}

// RecordKYCReview records one verification review decision.
func RecordKYCReview(decision string) {
	KYCReviewsTotal.WithLabelValues(decision).Inc()
}

// UpdateDBConnections updates the database connection gauges
func UpdateDBConnections(idle, inUse, max int32) {
	DBConnectionsTotal.WithLabelValues("idle").Set(float64(idle))
	DBConnectionsTotal.WithLabelValues("in_use").Set(float64(inUse))
	DBConnectionsTotal.WithLabelValues("max").Set(float64(max))
}
