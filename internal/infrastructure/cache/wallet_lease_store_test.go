package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlepay/settlement_service/internal/domain/entities"
)

func TestParseLease(t *testing.T) {
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	lease, err := parseLease(leaseKey("0xabc", entities.BlockchainEthereum), map[string]string{
		"occupied_by": "holder",
		"since":       since.Format(time.RFC3339Nano),
		"version":     "7",
	})

	require.NoError(t, err)
	assert.Equal(t, "0xabc", lease.WalletAddress)
	assert.Equal(t, entities.BlockchainEthereum, lease.Blockchain)
	assert.Equal(t, "holder", lease.OccupiedBy)
	assert.True(t, lease.Since.Equal(since))
	assert.Equal(t, int64(7), lease.Version)

	missing, err := parseLease(leaseKey("0xabc", entities.BlockchainEthereum), map[string]string{})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = parseLease(leaseKey("0xabc", entities.BlockchainEthereum), map[string]string{"version": "x"})
	assert.Error(t, err)
}

func TestWalletLeaseStore_Redis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Environment variable TEST_REDIS_ADDR is required for integration tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	store := NewWalletLeaseStore(client, 10)
	ctx := context.Background()
	address := "addr-" + uuid.NewString()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			holder := uuid.NewString()
			locked, err := store.TryLock(ctx, &entities.WalletLease{
				WalletAddress: address,
				Blockchain:    entities.BlockchainBitcoin,
				OccupiedBy:    holder,
				Since:         time.Now().UTC(),
			})
			assert.NoError(t, err)
			if locked {
				mu.Lock()
				winners = append(winners, holder)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, winners, 1)

	occupied, err := store.GetOccupied(ctx)
	require.NoError(t, err)
	var held bool
	for _, l := range occupied {
		held = held || l.WalletAddress == address
	}
	assert.True(t, held)

	released, err := store.ReleaseHeldBy(ctx, address, entities.BlockchainBitcoin, "someone-else", time.Now())
	require.NoError(t, err)
	assert.False(t, released)

	released, err = store.ReleaseHeldBy(ctx, address, entities.BlockchainBitcoin, winners[0], time.Now())
	require.NoError(t, err)
	assert.True(t, released)

	require.NoError(t, store.Release(ctx, address, entities.BlockchainBitcoin, time.Now()))

	lease, err := store.Get(ctx, address, entities.BlockchainBitcoin)
	require.NoError(t, err)
	assert.True(t, lease.IsVacant())
	assert.Equal(t, int64(2), lease.Version)
}
