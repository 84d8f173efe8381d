package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "idempotency:"

// Record is what is kept per idempotency key. A pending record marks a request
// still being processed.
type Record struct {
	RequestHash string          `json:"request_hash"`
	Pending     bool            `json:"pending"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	StoredAt    time.Time       `json:"stored_at"`
}

// Store keeps idempotency records
type Store interface {
	// Reserve claims key for a new request. When the key is taken it returns the existing record.
	Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (existing *Record, reserved bool, err error)
	Complete(ctx context.Context, key string, record *Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// RedisStore keeps records as JSON strings with a TTL
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, bool, error) {
	pending, err := json.Marshal(&Record{RequestHash: requestHash, Pending: true, StoredAt: time.Now().UTC()})
	if err != nil {
		return nil, false, err
	}

	reserved, err := s.client.SetNX(ctx, keyPrefix+key, pending, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if reserved {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, requestHash, ttl)
	}
	if err != nil {
		return nil, false, fmt.Errorf("get idempotency key: %w", err)
	}

	var existing Record
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	return &existing, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
