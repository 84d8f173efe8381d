package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/settlepay/settlement_service/internal/domain/entities"
)

const (
	leaseKeyPrefix   = "wallet_lease:"
	vacantKeyPrefix  = "wallet_lease:vacant:"
	occupiedIndexKey = "wallet_lease:occupied"

	defaultLeaseRetries = 5
)

var errLeaseUnchanged = errors.New("lease unchanged")

// WalletLeaseStore keeps wallet leases in Redis hashes. Redis has no conditional
// upsert, so every write runs under WATCH and is retried a bounded number of
// times when another writer touched the key first.
type WalletLeaseStore struct {
	client     *redis.Client
	maxRetries int
}

// NewWalletLeaseStore creates a Redis lease store
func NewWalletLeaseStore(client *redis.Client, maxRetries int) *WalletLeaseStore {
	if maxRetries <= 0 {
		maxRetries = defaultLeaseRetries
	}
	return &WalletLeaseStore{client: client, maxRetries: maxRetries}
}

func leaseKey(address string, blockchain entities.BlockchainType) string {
	return leaseKeyPrefix + string(blockchain) + ":" + address
}

func vacantKey(blockchain entities.BlockchainType) string {
	return vacantKeyPrefix + string(blockchain)
}

func indexMember(address string, blockchain entities.BlockchainType) string {
	return string(blockchain) + "|" + address
}

// TryLock leases the wallet if it is unknown or vacant. Exhausted retries are
// reported as a denial.
func (s *WalletLeaseStore) TryLock(ctx context.Context, lease *entities.WalletLease) (bool, error) {
	key := leaseKey(lease.WalletAddress, lease.Blockchain)
	member := indexMember(lease.WalletAddress, lease.Blockchain)

	var version int64
	locked, err := s.update(ctx, key, func(tx *redis.Tx, current *entities.WalletLease) error {
		if current != nil && !current.IsVacant() {
			return errLeaseUnchanged
		}
		version = 1
		if current != nil {
			version = current.Version + 1
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"occupied_by", lease.OccupiedBy,
				"since", lease.Since.UTC().Format(time.RFC3339Nano),
				"version", version)
			pipe.ZRem(ctx, vacantKey(lease.Blockchain), lease.WalletAddress)
			pipe.SAdd(ctx, occupiedIndexKey, member)
			return nil
		})
		return err
	})
	if err != nil || !locked {
		return false, err
	}

	lease.Version = version
	return true, nil
}

// Release marks the wallet vacant. Unknown or vacant wallets are left untouched.
func (s *WalletLeaseStore) Release(ctx context.Context, address string, blockchain entities.BlockchainType, at time.Time) error {
	released, err := s.release(ctx, address, blockchain, "", at)
	if err != nil {
		return err
	}
	if !released {
		// lost every retry to concurrent writers; the lease is still held
		current, getErr := s.Get(ctx, address, blockchain)
		if getErr != nil {
			return getErr
		}
		if current != nil && !current.IsVacant() {
			return fmt.Errorf("release wallet %s: too many concurrent writers", address)
		}
	}
	return nil
}

// ReleaseHeldBy marks the wallet vacant only while occupiedBy holds it
func (s *WalletLeaseStore) ReleaseHeldBy(ctx context.Context, address string, blockchain entities.BlockchainType, occupiedBy string, at time.Time) (bool, error) {
	return s.release(ctx, address, blockchain, occupiedBy, at)
}

func (s *WalletLeaseStore) release(ctx context.Context, address string, blockchain entities.BlockchainType, holder string, at time.Time) (bool, error) {
	key := leaseKey(address, blockchain)
	member := indexMember(address, blockchain)

	return s.update(ctx, key, func(tx *redis.Tx, current *entities.WalletLease) error {
		if current == nil || current.IsVacant() {
			return errLeaseUnchanged
		}
		if holder != "" && current.OccupiedBy != holder {
			return errLeaseUnchanged
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"occupied_by", "",
				"since", at.UTC().Format(time.RFC3339Nano),
				"version", current.Version+1)
			pipe.ZAdd(ctx, vacantKey(blockchain), &redis.Z{Score: float64(at.UnixNano()), Member: address})
			pipe.SRem(ctx, occupiedIndexKey, member)
			return nil
		})
		return err
	})
}

// update runs fn under WATCH on key. It returns true when fn committed, false
// when fn declined or every attempt lost to a concurrent writer.
func (s *WalletLeaseStore) update(ctx context.Context, key string, fn func(tx *redis.Tx, current *entities.WalletLease) error) (bool, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			values, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			current, err := parseLease(key, values)
			if err != nil {
				return err
			}
			return fn(tx, current)
		}, key)

		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, errLeaseUnchanged):
			return false, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return false, fmt.Errorf("redis wallet lease %s: %w", key, err)
		}
	}
	return false, nil
}

// Get returns the lease or nil
func (s *WalletLeaseStore) Get(ctx context.Context, address string, blockchain entities.BlockchainType) (*entities.WalletLease, error) {
	key := leaseKey(address, blockchain)
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet lease: %w", err)
	}
	return parseLease(key, values)
}

// GetVacant lists vacant wallets on blockchain, longest idle first
func (s *WalletLeaseStore) GetVacant(ctx context.Context, blockchain entities.BlockchainType) ([]*entities.WalletLease, error) {
	addresses, err := s.client.ZRange(ctx, vacantKey(blockchain), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list vacant wallets: %w", err)
	}

	leases := make([]*entities.WalletLease, 0, len(addresses))
	for _, address := range addresses {
		lease, err := s.Get(ctx, address, blockchain)
		if err != nil {
			return nil, err
		}
		// the index may lag behind a concurrent lock
		if lease != nil && lease.IsVacant() {
			leases = append(leases, lease)
		}
	}
	return leases, nil
}

// GetOccupied lists held wallets on every blockchain
func (s *WalletLeaseStore) GetOccupied(ctx context.Context) ([]*entities.WalletLease, error) {
	members, err := s.client.SMembers(ctx, occupiedIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list occupied wallets: %w", err)
	}

	leases := make([]*entities.WalletLease, 0, len(members))
	for _, member := range members {
		blockchain, address, ok := strings.Cut(member, "|")
		if !ok {
			continue
		}
		lease, err := s.Get(ctx, address, entities.BlockchainType(blockchain))
		if err != nil {
			return nil, err
		}
		if lease != nil && !lease.IsVacant() {
			leases = append(leases, lease)
		}
	}
	return leases, nil
}

func parseLease(key string, values map[string]string) (*entities.WalletLease, error) {
	if len(values) == 0 {
		return nil, nil
	}

	rest := strings.TrimPrefix(key, leaseKeyPrefix)
	blockchain, address, _ := strings.Cut(rest, ":")

	lease := &entities.WalletLease{
		WalletAddress: address,
		Blockchain:    entities.BlockchainType(blockchain),
		OccupiedBy:    values["occupied_by"],
	}

	if raw := values["since"]; raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt wallet lease %s: %w", key, err)
		}
		lease.Since = since
	}
	if raw := values["version"]; raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt wallet lease %s: %w", key, err)
		}
		lease.Version = version
	}
	return lease, nil
}
