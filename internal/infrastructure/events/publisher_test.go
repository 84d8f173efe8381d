package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
)

type published struct {
	channel string
	payload []byte
}

type fakeBroker struct {
	messages []published
	err      error
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if b.err != nil {
		return redis.NewIntResult(0, b.err)
	}
	b.messages = append(b.messages, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func TestPublishStatusTransition(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewRedisPublisher(broker, "settlement", zap.NewNop())

	event := &entities.StatusTransitionEvent{
		PaymentRequestID: uuid.New(),
		MerchantID:       "merchant-1",
		WalletAddress:    "wallet-1",
		OldStatus:        entities.PaymentRequestStatusInProcess,
		NewStatus:        entities.PaymentRequestStatusConfirmed,
		OccurredAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, publisher.PublishStatusTransition(context.Background(), event))

	require.Len(t, broker.messages, 1)
	assert.Equal(t, "settlement.payment_request.status", broker.messages[0].channel)

	var decoded entities.StatusTransitionEvent
	require.NoError(t, json.Unmarshal(broker.messages[0].payload, &decoded))
	assert.Equal(t, event.PaymentRequestID, decoded.PaymentRequestID)
	assert.Equal(t, entities.PaymentRequestStatusConfirmed, decoded.NewStatus)
}

func TestPublishTransaction_NoPrefix(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewRedisPublisher(broker, "", zap.NewNop())

	err := publisher.PublishTransaction(context.Background(), &entities.TransactionEvent{
		Kind:        entities.TransactionEventCreated,
		Transaction: &entities.PaymentRequestTransaction{Identity: "hash-1", WalletAddress: "wallet-1"},
	})

	require.NoError(t, err)
	require.Len(t, broker.messages, 1)
	assert.Equal(t, TransactionChannel, broker.messages[0].channel)
}

func TestPublish_BrokerFailure(t *testing.T) {
	publisher := NewRedisPublisher(&fakeBroker{err: errors.New("connection refused")}, "settlement", zap.NewNop())

	err := publisher.PublishTransaction(context.Background(), &entities.TransactionEvent{Kind: entities.TransactionEventUpdated})

	assert.ErrorContains(t, err, "connection refused")
}
