// Package events publishes payment request and transaction notifications on
// Redis pub/sub channels.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
)

// Channel suffixes appended to the configured prefix
const (
	StatusChannel      = "payment_request.status"
	TransactionChannel = "payment_request.transaction"
)

// Broker is the publishing side of a Redis client
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher serializes events as JSON and publishes them
type RedisPublisher struct {
	broker Broker
	prefix string
	logger *zap.Logger
}

// NewRedisPublisher creates a publisher writing to "<prefix>.<channel>"
func NewRedisPublisher(broker Broker, prefix string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		broker: broker,
		prefix: prefix,
		logger: logger.Named("events"),
	}
}

// PublishStatusTransition announces a payment request status change
func (p *RedisPublisher) PublishStatusTransition(ctx context.Context, event *entities.StatusTransitionEvent) error {
	return p.publish(ctx, StatusChannel, event,
		zap.String("payment_request_id", event.PaymentRequestID.String()),
		zap.String("old_status", string(event.OldStatus)),
		zap.String("new_status", string(event.NewStatus)))
}

// PublishTransaction announces a created or updated transaction
func (p *RedisPublisher) PublishTransaction(ctx context.Context, event *entities.TransactionEvent) error {
	fields := []zap.Field{zap.String("kind", event.Kind)}
	if event.Transaction != nil {
		fields = append(fields,
			zap.String("identity", event.Transaction.Identity),
			zap.String("wallet_address", event.Transaction.WalletAddress))
	}
	return p.publish(ctx, TransactionChannel, event, fields...)
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, event interface{}, fields ...zap.Field) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", channel, err)
	}

	name := p.channel(channel)
	receivers, err := p.broker.Publish(ctx, name, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s event: %w", channel, err)
	}

	p.logger.Debug("Event published",
		append(fields, zap.String("channel", name), zap.Int64("receivers", receivers))...)
	return nil
}

func (p *RedisPublisher) channel(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}
