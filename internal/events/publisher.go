// Package events publishes throttle audit events to Kafka so operators
// can watch denial rates and degradation windows without scraping logs.
// Publishing is strictly best-effort: a broker outage must never affect
// an admission decision.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"ratelimit-service/internal/client"
	"ratelimit-service/internal/ratelimit"
)

const (
	eventDenied   = "request_denied"
	eventDegraded = "store_degraded"
)

type throttleEvent struct {
	Type              string `json:"type"`
	Category          string `json:"category"`
	Identifier        string `json:"identifier"`
	Limit             int    `json:"limit,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Error             string `json:"error,omitempty"`
	OccurredAt        string `json:"occurred_at"`
}

// Publisher emits throttle events. A nil *Publisher is valid and drops
// everything, so callers wire it unconditionally.
type Publisher struct {
	producer *client.KafkaProducer
	logger   *zap.Logger
}

func NewPublisher(producer *client.KafkaProducer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Denied records a rejected request.
func (p *Publisher) Denied(ctx context.Context, identifier string, category ratelimit.Category, decision ratelimit.Decision) {
	if p == nil {
		return
	}
	p.publish(ctx, throttleEvent{
		Type:              eventDenied,
		Category:          string(category),
		Identifier:        identifier,
		Limit:             decision.Limit,
		RetryAfterSeconds: decision.RetryAfterSeconds,
		OccurredAt:        time.Now().UTC().Format(time.RFC3339),
	})
}

// Degraded implements ratelimit.Observer: every fallback to local
// counting becomes an audit event.
func (p *Publisher) Degraded(category ratelimit.Category, identifier string, err error) {
	if p == nil {
		return
	}
	event := throttleEvent{
		Type:       eventDegraded,
		Category:   string(category),
		Identifier: identifier,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		event.Error = err.Error()
	}
	p.publish(context.Background(), event)
}

func (p *Publisher) publish(ctx context.Context, event throttleEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal throttle event", zap.Error(err))
		return
	}
	if err := p.producer.Publish(ctx, []byte(event.Identifier), payload); err != nil {
		p.logger.Warn("failed to publish throttle event",
			zap.String("type", event.Type),
			zap.Error(err))
	}
}
