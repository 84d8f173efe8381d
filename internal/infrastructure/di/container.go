package di

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/adapters/assets"
	"github.com/settlepay/settlement_service/internal/adapters/blockchain"
	"github.com/settlepay/settlement_service/internal/adapters/marketprofile"
	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainrepos "github.com/settlepay/settlement_service/internal/domain/repositories"
	"github.com/settlepay/settlement_service/internal/domain/services/assetavailability"
	"github.com/settlepay/settlement_service/internal/domain/services/markup"
	"github.com/settlepay/settlement_service/internal/domain/services/order"
	"github.com/settlepay/settlement_service/internal/domain/services/paymentrequest"
	"github.com/settlepay/settlement_service/internal/domain/services/pricing"
	"github.com/settlepay/settlement_service/internal/domain/services/refund"
	"github.com/settlepay/settlement_service/internal/domain/services/transaction"
	"github.com/settlepay/settlement_service/internal/domain/services/transfer"
	"github.com/settlepay/settlement_service/internal/domain/services/wallet"
	"github.com/settlepay/settlement_service/internal/domain/services/walletlease"
	"github.com/settlepay/settlement_service/internal/infrastructure/adapters/apiclient"
	"github.com/settlepay/settlement_service/internal/infrastructure/cache"
	"github.com/settlepay/settlement_service/internal/infrastructure/config"
	"github.com/settlepay/settlement_service/internal/infrastructure/events"
	"github.com/settlepay/settlement_service/internal/infrastructure/repositories"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Repositories
	PaymentRequestRepo *repositories.PaymentRequestRepository
	OrderRepo          *repositories.OrderRepository
	TransactionRepo    *repositories.TransactionRepository
	RefundRepo         *repositories.RefundRepository
	MarkupRepo         *repositories.MarkupRepository
	MerchantWalletRepo *repositories.MerchantWalletRepository
	AvailabilityRepo   *repositories.AssetAvailabilityRepository
	MerchantAssetsRepo *repositories.MerchantAssetAvailabilityRepository
	WalletLeaseStore   domainrepos.WalletLeaseStore

	// External Services
	AssetsClient        *assets.Client
	AssetCache          *cache.AssetCache
	MarketProfileClient *marketprofile.Client
	Gateway             *blockchain.Gateway
	EventPublisher      *events.RedisPublisher

	// Domain Services
	PricingService        *pricing.Service
	MarkupService         *markup.Service
	OrderService          *order.Service
	WalletLeaseService    *walletlease.Service
	WalletService         *wallet.Service
	PaymentRequestService *paymentrequest.Service
	TransactionService    *transaction.Service
	TransferService       *transfer.Service
	RefundService         *refund.Service
	AvailabilityService   *assetavailability.Service
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, log *logger.Logger) (*Container, error) {
	zapLog := log.Zap()

	c := &Container{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Logger: log,
		ZapLog: zapLog,
	}

	c.PaymentRequestRepo = repositories.NewPaymentRequestRepository(db, log)
	c.OrderRepo = repositories.NewOrderRepository(db)
	c.TransactionRepo = repositories.NewTransactionRepository(db)
	c.RefundRepo = repositories.NewRefundRepository(db)
	c.MarkupRepo = repositories.NewMarkupRepository(db)
	c.MerchantWalletRepo = repositories.NewMerchantWalletRepository(db)
	c.AvailabilityRepo = repositories.NewAssetAvailabilityRepository(db)
	c.MerchantAssetsRepo = repositories.NewMerchantAssetAvailabilityRepository(db)

	store, err := c.walletLeaseStore()
	if err != nil {
		return nil, err
	}
	c.WalletLeaseStore = store

	if err := c.initializeExternalServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize external services: %w", err)
	}

	c.initializeDomainServices()

	log.Info("Container initialized",
		"wallet_lease_store", cfg.Settlement.WalletLeaseStore,
		"bitcoin_network", cfg.Bitcoin.Network)
	return c, nil
}

func (c *Container) walletLeaseStore() (domainrepos.WalletLeaseStore, error) {
	switch c.Config.Settlement.WalletLeaseStore {
	case "", "postgres":
		return repositories.NewWalletLeaseRepository(c.DB), nil
	case "redis":
		if c.Redis == nil {
			return nil, fmt.Errorf("redis wallet lease store requires a redis client")
		}
		return cache.NewWalletLeaseStore(c.Redis, c.Config.Redis.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unsupported wallet lease store: %s", c.Config.Settlement.WalletLeaseStore)
	}
}

func (c *Container) upstream(name string, cfg config.UpstreamConfig) *apiclient.Client {
	return apiclient.NewClient(apiclient.Config{
		Name:              name,
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, c.ZapLog.Named(name))
}

func (c *Container) initializeExternalServices() error {
	c.AssetsClient = assets.NewClient(c.upstream("assets", c.Config.Assets), c.ZapLog)
	c.AssetCache = cache.NewAssetCache(c.AssetsClient, cache.AssetCacheConfig{
		ExpiresAfter: c.Config.AssetCache.ExpiresAfter,
		MaxCacheSize: c.Config.AssetCache.MaxSize,
	}, c.ZapLog)
	c.MarketProfileClient = marketprofile.NewClient(c.upstream("market_profile", c.Config.MarketProfile), c.ZapLog)

	bitcoin, err := blockchain.NewBitcoinClient(c.upstream("bitcoin", c.Config.Bitcoin.UpstreamConfig), blockchain.BitcoinConfig{
		Network:  c.Config.Bitcoin.Network,
		FeeRate:  c.Config.Bitcoin.FeeRate,
		FixedFee: decimal.NewFromFloat(c.Config.Bitcoin.FixedFee),
	}, c.ZapLog)
	if err != nil {
		return fmt.Errorf("bitcoin client: %w", err)
	}
	ethereum := blockchain.NewEthereumClient(c.upstream("ethereum", c.Config.Ethereum), c.AssetCache, c.ZapLog)
	c.Gateway = blockchain.NewGateway(c.ZapLog, bitcoin, ethereum)

	if c.Redis != nil {
		c.EventPublisher = events.NewRedisPublisher(c.Redis, c.Config.Settlement.EventChannel, c.ZapLog)
	}
	return nil
}

func (c *Container) initializeDomainServices() {
	settlement := c.Config.Settlement

	calculator := pricing.NewCalculator(entities.LpMarkup{
		Percent: decimal.NewFromFloat(settlement.LpMarkup.Percent),
		Pips:    settlement.LpMarkup.Pips,
	})
	c.PricingService = pricing.NewService(calculator, c.AssetCache, c.MarketProfileClient, c.Logger.Named("pricing"))
	c.MarkupService = markup.NewService(c.MarkupRepo, c.Logger.Named("markup"))
	c.OrderService = order.NewService(c.OrderRepo, c.PricingService, c.MarkupService, order.Config{
		Primary:  settlement.Expiration.OrderPrimary,
		Extended: settlement.Expiration.OrderExtended,
	}, c.Logger.Named("order"))

	c.WalletLeaseService = walletlease.NewService(c.WalletLeaseStore, c.Logger.Named("wallet_lease"))
	c.WalletService = wallet.NewService(c.WalletLeaseService, c.Gateway, c.MerchantWalletRepo, c.ZapLog.Named("wallet"))

	var statusEvents paymentrequest.EventPublisher
	var transactionEvents transaction.Publisher
	if c.EventPublisher != nil {
		statusEvents = c.EventPublisher
		transactionEvents = c.EventPublisher
	}

	c.PaymentRequestService = paymentrequest.NewService(
		c.PaymentRequestRepo,
		c.OrderService,
		c.WalletService,
		c.WalletLeaseService,
		c.TransactionRepo,
		c.AssetCache,
		statusEvents,
		paymentrequest.Config{
			TransactionConfirmationCount: settlement.TransactionConfirmationCount,
			WalletExtra:                  settlement.Expiration.WalletExtra,
			SweepBatchSize:               c.Config.Workers.SweepBatchSize,
		},
		c.Logger.Named("payment_request"),
	)

	c.TransactionService = transaction.NewService(
		c.TransactionRepo,
		c.PaymentRequestService,
		c.PaymentRequestService,
		transactionEvents,
		c.Logger.Named("transaction"),
	)

	c.TransferService = transfer.NewService(c.Gateway, c.TransactionRepo, c.ZapLog.Named("transfer"))
	c.RefundService = refund.NewService(
		c.RefundRepo,
		c.PaymentRequestService,
		c.WalletService,
		c.TransactionRepo,
		c.Gateway,
		c.TransferService,
		refund.Config{Period: settlement.Expiration.Refund},
		c.Logger.Named("refund"),
	)
	c.AvailabilityService = assetavailability.NewService(
		c.AvailabilityRepo,
		c.MerchantAssetsRepo,
		c.MarkupService,
		assetavailability.Defaults{
			PaymentAssets:    settlement.AssetsAvailability.PaymentAssets,
			SettlementAssets: settlement.AssetsAvailability.SettlementAssets,
		},
		c.Logger.Named("asset_availability"),
	)
}
