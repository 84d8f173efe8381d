package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment   string           `mapstructure:"environment"`
	LogLevel      string           `mapstructure:"log_level"`
	Server        ServerConfig     `mapstructure:"server"`
	Database      DatabaseConfig   `mapstructure:"database"`
	Redis         RedisConfig      `mapstructure:"redis"`
	Tracing       TracingConfig    `mapstructure:"tracing"`
	Settlement    SettlementConfig `mapstructure:"settlement"`
	Bitcoin       BitcoinConfig    `mapstructure:"bitcoin"`
	Ethereum      UpstreamConfig   `mapstructure:"ethereum"`
	Assets        UpstreamConfig   `mapstructure:"assets"`
	MarketProfile UpstreamConfig   `mapstructure:"market_profile"`
	AssetCache    AssetCacheConfig `mapstructure:"asset_cache"`
	Workers       WorkerConfig     `mapstructure:"workers"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Insecure     bool    `mapstructure:"insecure"`
}

// SettlementConfig holds the payment engine settings
type SettlementConfig struct {
	TransactionConfirmationCount int              `mapstructure:"transaction_confirmation_count"`
	LpMarkup                     LpMarkupConfig   `mapstructure:"lp_markup"`
	Expiration                   ExpirationConfig `mapstructure:"expiration"`
	WalletLeaseStore             string           `mapstructure:"wallet_lease_store"` // "postgres" or "redis"
	EventChannel                 string           `mapstructure:"event_channel"`      // redis pub/sub channel prefix
	AssetsAvailability           AssetsConfig     `mapstructure:"assets_availability"`
}

// AssetsConfig holds the ';' separated default asset lists
type AssetsConfig struct {
	PaymentAssets    string `mapstructure:"payment_assets"`
	SettlementAssets string `mapstructure:"settlement_assets"`
}

type LpMarkupConfig struct {
	Percent float64 `mapstructure:"percent"`
	Pips    int32   `mapstructure:"pips"`
}

type ExpirationConfig struct {
	OrderPrimary  time.Duration `mapstructure:"order_primary"`
	OrderExtended time.Duration `mapstructure:"order_extended"`
	Refund        time.Duration `mapstructure:"refund"`
	WalletExtra   time.Duration `mapstructure:"wallet_extra"`
}

// UpstreamConfig describes an upstream JSON service
type UpstreamConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type BitcoinConfig struct {
	UpstreamConfig `mapstructure:",squash"`
	Network        string  `mapstructure:"network"`
	FeeRate        int     `mapstructure:"fee_rate"`
	FixedFee       float64 `mapstructure:"fixed_fee"`
}

type AssetCacheConfig struct {
	ExpiresAfter time.Duration `mapstructure:"expires_after"`
	MaxSize      int           `mapstructure:"max_size"`
}

type WorkerConfig struct {
	ExpirationSchedule string `mapstructure:"expiration_schedule"`
	SweepBatchSize     int    `mapstructure:"sweep_batch_size"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 600)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "settlement_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 50)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", 3600)
	viper.SetDefault("database.migrations_path", "migrations")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collector_url", "localhost:4317")
	viper.SetDefault("tracing.sample_rate", 0.1)

	// Settlement defaults
	viper.SetDefault("settlement.transaction_confirmation_count", 6)
	viper.SetDefault("settlement.lp_markup.percent", 0)
	viper.SetDefault("settlement.lp_markup.pips", 0)
	viper.SetDefault("settlement.expiration.order_primary", "10m")
	viper.SetDefault("settlement.expiration.order_extended", "20m")
	viper.SetDefault("settlement.expiration.refund", "24h")
	viper.SetDefault("settlement.expiration.wallet_extra", "1h")
	viper.SetDefault("settlement.wallet_lease_store", "postgres")
	viper.SetDefault("settlement.event_channel", "settlement")
	viper.SetDefault("settlement.assets_availability.payment_assets", "BTC;ETH")
	viper.SetDefault("settlement.assets_availability.settlement_assets", "CHF;USD;EUR")

	// Upstream services
	viper.SetDefault("bitcoin.network", "mainnet")
	viper.SetDefault("bitcoin.fee_rate", 0)
	viper.SetDefault("bitcoin.timeout", "30s")
	viper.SetDefault("ethereum.timeout", "30s")
	viper.SetDefault("assets.timeout", "10s")
	viper.SetDefault("market_profile.timeout", "10s")

	viper.SetDefault("asset_cache.expires_after", "5m")
	viper.SetDefault("asset_cache.max_size", 512)

	// Workers
	viper.SetDefault("workers.expiration_schedule", "@every 1m")
	viper.SetDefault("workers.sweep_batch_size", 500)
}

func overrideFromEnv() {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	// Database
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	// Redis
	if redisURL := os.Getenv("REDIS_HOST"); redisURL != "" {
		viper.Set("redis.host", redisURL)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		viper.Set("redis.password", redisPassword)
	}

	// Upstream services
	if btcURL := os.Getenv("BITCOIN_SERVICE_URL"); btcURL != "" {
		viper.Set("bitcoin.base_url", btcURL)
	}
	if btcNetwork := os.Getenv("BITCOIN_NETWORK"); btcNetwork != "" {
		viper.Set("bitcoin.network", btcNetwork)
	}
	if ethURL := os.Getenv("ETHEREUM_SERVICE_URL"); ethURL != "" {
		viper.Set("ethereum.base_url", ethURL)
	}
	if ethKey := os.Getenv("ETHEREUM_SERVICE_API_KEY"); ethKey != "" {
		viper.Set("ethereum.api_key", ethKey)
	}
	if assetsURL := os.Getenv("ASSETS_SERVICE_URL"); assetsURL != "" {
		viper.Set("assets.base_url", assetsURL)
	}
	if marketURL := os.Getenv("MARKET_PROFILE_SERVICE_URL"); marketURL != "" {
		viper.Set("market_profile.base_url", marketURL)
	}

	if otelURL := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); otelURL != "" {
		viper.Set("tracing.collector_url", otelURL)
		viper.Set("tracing.enabled", true)
	}

	if store := os.Getenv("WALLET_LEASE_STORE"); store != "" {
		viper.Set("settlement.wallet_lease_store", strings.ToLower(store))
	}
}

func validate(config *Config) error {
	if config.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	s := config.Settlement
	if s.TransactionConfirmationCount < 0 {
		return fmt.Errorf("transaction confirmation count must not be negative")
	}
	if s.LpMarkup.Percent < 0 || s.LpMarkup.Pips < 0 {
		return fmt.Errorf("lp markup must not be negative")
	}
	if s.Expiration.OrderPrimary <= 0 {
		return fmt.Errorf("order primary expiration must be positive")
	}
	if s.Expiration.OrderExtended < s.Expiration.OrderPrimary {
		return fmt.Errorf("order extended expiration must not be shorter than primary")
	}
	if s.Expiration.Refund <= 0 {
		return fmt.Errorf("refund expiration must be positive")
	}
	if s.Expiration.WalletExtra < 0 {
		return fmt.Errorf("wallet extra expiration must not be negative")
	}

	switch s.WalletLeaseStore {
	case "postgres", "redis":
	default:
		return fmt.Errorf("unsupported wallet lease store %q", s.WalletLeaseStore)
	}

	if config.Environment == "production" {
		for name, upstream := range map[string]string{
			"bitcoin":        config.Bitcoin.BaseURL,
			"ethereum":       config.Ethereum.BaseURL,
			"assets":         config.Assets.BaseURL,
			"market_profile": config.MarketProfile.BaseURL,
		} {
			if upstream == "" {
				return fmt.Errorf("%s base URL is required in production", name)
			}
		}
	}

	return nil
}
