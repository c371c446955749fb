package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/centralpay/paycore/internal/application/dtos"
	"github.com/centralpay/paycore/internal/application/usecases/webhook"
	"github.com/centralpay/paycore/internal/pkg/logger"
)

const (
	fetchBatch    = 16
	fetchWait     = 2 * time.Second
	ackWait       = 30 * time.Second
	maxAckPending = 256
)

var webhookDeliveries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "paycore",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Webhook queue deliveries by outcome",
	},
	[]string{"outcome"},
)

// Processor runs one stored webhook event and reports whether the delivery
// is settled.
type Processor interface {
	Execute(ctx context.Context, cmd dtos.ProcessWebhookCommand) (webhook.Outcome, error)
}

// WorkerPoolConfig sizes the pool and its retry schedule.
type WorkerPoolConfig struct {
	// Workers is the number of concurrent consumers.
	Workers int

	// MaxRetries caps redeliveries after the first attempt. The durable
	// consumer is created with MaxDeliver = MaxRetries + 1, so the broker
	// enforces the ceiling even across worker restarts.
	MaxRetries int

	// RetryBase is the delay before the first retry; each further retry
	// doubles it.
	RetryBase time.Duration
}

// WorkerPool consumes webhook deliveries from the durable pull consumer and
// feeds them to the processor. Acknowledgement follows the processing
// outcome: settled deliveries are acked or terminated, retryable failures
// are redelivered after an exponential delay.
type WorkerPool struct {
	js        nats.JetStreamContext
	processor Processor
	logger    *slog.Logger

	workers    int
	maxDeliver int
	retryBase  time.Duration

	sub    *nats.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates the pool. Start must be called before deliveries
// flow.
func NewWorkerPool(nc *nats.Conn, processor Processor, logger *slog.Logger, cfg WorkerPoolConfig) (*WorkerPool, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = time.Minute
	}

	return &WorkerPool{
		js:         js,
		processor:  processor,
		logger:     logger,
		workers:    workers,
		maxDeliver: cfg.MaxRetries + 1,
		retryBase:  retryBase,
	}, nil
}

// Start provisions the durable consumer and launches the workers. The
// workers stop when ctx is cancelled or Stop is called.
func (p *WorkerPool) Start(ctx context.Context) error {
	if err := p.ensureConsumer(); err != nil {
		return err
	}

	sub, err := p.js.PullSubscribe("", durableName, nats.Bind(streamName, durableName))
	if err != nil {
		return fmt.Errorf("bind webhook consumer: %w", err)
	}
	p.sub = sub

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(runCtx, i)
	}

	p.logger.Info("webhook workers started",
		"workers", p.workers, "max_deliver", p.maxDeliver)
	return nil
}

// Stop halts the workers and waits for in-flight deliveries to settle. The
// durable consumer stays on the broker, so redelivery state survives
// restarts.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("webhook workers stopped")
}

// ensureConsumer creates the durable consumer or updates its retry ceiling
// when configuration changed since the last boot.
func (p *WorkerPool) ensureConsumer() error {
	cfg := &nats.ConsumerConfig{
		Durable:       durableName,
		Description:   "paycore webhook worker pool",
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    p.maxDeliver,
		FilterSubject: subjectEvents,
		MaxAckPending: maxAckPending,
	}

	_, err := p.js.ConsumerInfo(streamName, durableName)
	if errors.Is(err, nats.ErrConsumerNotFound) {
		if _, err := p.js.AddConsumer(streamName, cfg); err != nil {
			return fmt.Errorf("create consumer %s: %w", durableName, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up consumer %s: %w", durableName, err)
	}

	if _, err := p.js.UpdateConsumer(streamName, cfg); err != nil {
		return fmt.Errorf("update consumer %s: %w", durableName, err)
	}
	return nil
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := p.sub.Fetch(fetchBatch, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				p.logger.Warn("webhook worker exiting", "worker", id, "error", err)
				return
			}
			p.logger.Warn("fetch webhook deliveries", "worker", id, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			p.handle(ctx, msg)
		}
	}
}

func (p *WorkerPool) handle(ctx context.Context, msg *nats.Msg) {
	var m eventMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil || m.EventID == "" {
		// No amount of redelivery fixes a body the workers cannot read.
		p.logger.Error("terminating unreadable webhook delivery", "error", err)
		_ = msg.Term()
		webhookDeliveries.WithLabelValues("unreadable").Inc()
		return
	}

	// Everything logged while this delivery is processed carries its event id.
	ctx = logger.WithEventID(ctx, m.EventID)

	outcome, err := p.processor.Execute(ctx, dtos.ProcessWebhookCommand{EventID: m.EventID})

	action, delay := p.decide(outcome, err)
	switch action {
	case actionAck:
		_ = msg.Ack()
	case actionTerm:
		p.logger.ErrorContext(ctx, "webhook delivery terminated",
			"event_type", m.EventType, "error", err)
		_ = msg.Term()
	case actionRetry:
		p.logger.WarnContext(ctx, "webhook delivery will be retried",
			"event_type", m.EventType,
			"retry_count", outcome.RetryCount, "delay", delay, "error", err)
		_ = msg.NakWithDelay(delay)
	}
	webhookDeliveries.WithLabelValues(action.label()).Inc()
}

type action int

const (
	actionAck action = iota
	actionTerm
	actionRetry
)

func (a action) label() string {
	switch a {
	case actionAck:
		return "processed"
	case actionTerm:
		return "terminated"
	default:
		return "retried"
	}
}

// decide maps a processing outcome onto a queue action. Retryable failures
// come back after retryBase doubled per prior attempt, so the first retry
// waits one base interval, the second two, the third four.
func (p *WorkerPool) decide(outcome webhook.Outcome, err error) (action, time.Duration) {
	if outcome.Terminal {
		if err != nil {
			return actionTerm, 0
		}
		return actionAck, 0
	}

	attempts := outcome.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	shift := attempts - 1
	if shift > 6 {
		shift = 6
	}
	return actionRetry, p.retryBase << shift
}
