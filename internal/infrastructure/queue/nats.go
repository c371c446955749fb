// Package queue implements the webhook queue port on NATS JetStream.
//
// One work-queue stream buffers verified webhook events between ingest and
// the worker pool. Deliveries are deduplicated by event id via the
// Nats-Msg-Id header, so enqueueing the same event twice, whether from a
// gateway replay or the requeue sweep, yields a single delivery inside the
// dedup window.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/centralpay/paycore/internal/application/ports"
	"github.com/centralpay/paycore/internal/domain/entities"
)

const (
	streamName    = "WEBHOOKS"
	subjectEvents = "webhooks.events"
	durableName   = "webhook-workers"

	// dedupWindow must outlast the requeue sweep grace period, so a sweep
	// racing a slow worker collapses into the delivery already in flight.
	dedupWindow = 10 * time.Minute

	// streamMaxAge reclaims messages whose deliveries were exhausted. The
	// event row is already FAILED by then; the stream copy is dead weight.
	streamMaxAge = 7 * 24 * time.Hour
)

// eventMessage is the wire form of a queued delivery. It carries only the
// event identity; workers load the payload from the database row.
type eventMessage struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
}

// Connect opens the NATS connection shared by the publisher and the worker
// pool. The connection reconnects indefinitely.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("paycore"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// WebhookQueue is the JetStream-backed ports.WebhookQueue.
type WebhookQueue struct {
	js nats.JetStreamContext
}

var _ ports.WebhookQueue = (*WebhookQueue)(nil)

// NewWebhookQueue binds to JetStream and provisions the webhook stream if
// it does not exist yet.
func NewWebhookQueue(nc *nats.Conn) (*WebhookQueue, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &WebhookQueue{js: js}, nil
}

// Enqueue publishes one delivery for the event. The Nats-Msg-Id header is
// the event id, so the broker drops republishes inside the dedup window.
func (q *WebhookQueue) Enqueue(ctx context.Context, event *entities.WebhookEvent) error {
	data, err := json.Marshal(eventMessage{
		EventID:   event.EventID(),
		EventType: event.EventType(),
	})
	if err != nil {
		return fmt.Errorf("encode webhook delivery: %w", err)
	}

	msg := nats.NewMsg(subjectEvents)
	msg.Data = data

	if _, err := q.js.PublishMsg(msg, nats.MsgId(event.EventID()), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish webhook delivery: %w", err)
	}
	return nil
}

func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("look up stream %s: %w", streamName, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:        streamName,
		Description: "Webhook events awaiting processing",
		Subjects:    []string{subjectEvents},
		Retention:   nats.WorkQueuePolicy,
		Storage:     nats.FileStorage,
		MaxAge:      streamMaxAge,
		Duplicates:  dedupWindow,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", streamName, err)
	}
	return nil
}
