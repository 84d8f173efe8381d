package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/entities"
)

// AssetSource is the upstream asset registry
type AssetSource interface {
	GetAsset(ctx context.Context, id string) (*entities.Asset, error)
	GetAssetPairByID(ctx context.Context, id string) (*entities.AssetPair, error)
	ListAssetPairs(ctx context.Context) ([]*entities.AssetPair, error)
}

// AssetCacheConfig bounds the local asset cache
type AssetCacheConfig struct {
	ExpiresAfter time.Duration
	MaxCacheSize int
}

// DefaultAssetCacheConfig returns sane defaults
func DefaultAssetCacheConfig() AssetCacheConfig {
	return AssetCacheConfig{
		ExpiresAfter: 5 * time.Minute,
		MaxCacheSize: 512,
	}
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

const pairListKey = "*"

// AssetCache keeps asset and asset pair metadata in process
type AssetCache struct {
	cfg    AssetCacheConfig
	source AssetSource
	logger *zap.Logger

	mu     sync.Mutex
	assets *lru.Cache[string, cacheEntry[*entities.Asset]]
	pairs  *lru.Cache[string, cacheEntry[[]*entities.AssetPair]]
	now    func() time.Time
}

// NewAssetCache wraps source with an expiring LRU
func NewAssetCache(source AssetSource, cfg AssetCacheConfig, logger *zap.Logger) *AssetCache {
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = DefaultAssetCacheConfig().MaxCacheSize
	}
	if cfg.ExpiresAfter <= 0 {
		cfg.ExpiresAfter = DefaultAssetCacheConfig().ExpiresAfter
	}

	assets, err := lru.New[string, cacheEntry[*entities.Asset]](cfg.MaxCacheSize)
	if err != nil {
		panic("failed to create asset LRU cache: " + err.Error())
	}
	pairs, err := lru.New[string, cacheEntry[[]*entities.AssetPair]](1)
	if err != nil {
		panic("failed to create asset pair LRU cache: " + err.Error())
	}

	return &AssetCache{
		cfg:    cfg,
		source: source,
		logger: logger,
		assets: assets,
		pairs:  pairs,
		now:    time.Now,
	}
}

// GetAsset returns the asset, loading it on miss or expiry
func (c *AssetCache) GetAsset(ctx context.Context, id string) (*entities.Asset, error) {
	c.mu.Lock()
	entry, ok := c.assets.Get(id)
	c.mu.Unlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	asset, err := c.source.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.assets.Add(id, cacheEntry[*entities.Asset]{value: asset, expiresAt: c.now().Add(c.cfg.ExpiresAfter)})
	c.mu.Unlock()
	return asset, nil
}

func (c *AssetCache) listPairs(ctx context.Context) ([]*entities.AssetPair, error) {
	c.mu.Lock()
	entry, ok := c.pairs.Get(pairListKey)
	c.mu.Unlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	pairs, err := c.source.ListAssetPairs(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pairs.Add(pairListKey, cacheEntry[[]*entities.AssetPair]{value: pairs, expiresAt: c.now().Add(c.cfg.ExpiresAfter)})
	c.mu.Unlock()
	c.logger.Debug("Asset pair cache refreshed", zap.Int("count", len(pairs)))
	return pairs, nil
}

// GetAssetPair finds the pair for base/quoting, or nil when none is listed
func (c *AssetCache) GetAssetPair(ctx context.Context, baseAssetID, quotingAssetID string) (*entities.AssetPair, error) {
	pairs, err := c.listPairs(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if p.BaseAssetID == baseAssetID && p.QuotingAssetID == quotingAssetID {
			return p, nil
		}
	}
	return nil, nil
}

// GetAssetPairByID returns the listed pair or asks the registry directly
func (c *AssetCache) GetAssetPairByID(ctx context.Context, id string) (*entities.AssetPair, error) {
	pairs, err := c.listPairs(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if p.ID == id {
			return p, nil
		}
	}
	return c.source.GetAssetPairByID(ctx, id)
}
