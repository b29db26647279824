package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Env                string
	LocalStackEndpoint string
	Polymarket         PolymarketConfig
	Trading            TradingConfig
	Signer             SignerConfig
	DB                 DBConfig
	Redis              RedisConfig
}

// PolymarketConfig holds endpoints and credentials for the Polymarket
// protocol client.
type PolymarketConfig struct {
	WSURL    string
	RESTURL  string
	GammaURL string

	// AssetIDs is the comma-separated initial market-channel subscription.
	AssetIDs []string

	APIKey     string
	Passphrase string

	// Secret is the base64 HMAC secret; SecretCiphertext, when set, is a
	// base64 KMS ciphertext decrypted at startup instead.
	Secret           string
	SecretCiphertext string

	HeartbeatInterval time.Duration
}

// TradingConfig holds the decision-pipeline tunables.
type TradingConfig struct {
	EventChannelSize int
	TickInterval     time.Duration

	// MinArbProfit is the worst-case per-contract profit floor, as a
	// decimal string.
	MinArbProfit string

	// MatchedPairs is the comma-separated list of cross-venue pairs in
	// name:polymarket_id:kalshi_id form.
	MatchedPairs []string

	StaleThreshold time.Duration
	CoolOff        time.Duration

	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectMaxAttempts  int
}

// SignerConfig holds pre-signing session settings.
type SignerConfig struct {
	SessionTTL time.Duration

	// SessionKeyCiphertext is the base64 KMS ciphertext of the session
	// private key; empty disables pre-signing.
	SessionKeyCiphertext string

	// MaxValueLimit is the cumulative USDC limit in atomic units, as a
	// decimal string.
	MaxValueLimit string

	MakerAddress     string
	ExchangeContract string
	ChainID          int64
	KMSKeyID         string
	AWSRegion        string
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	PoolSize int
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables prefixed with PMWS_.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PMWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")

	// Polymarket defaults
	v.SetDefault("polymarket.ws_url", "wss://ws-subscriptions-clob.polymarket.com")
	v.SetDefault("polymarket.rest_url", "https://clob.polymarket.com")
	v.SetDefault("polymarket.gamma_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.asset_ids", "")
	v.SetDefault("polymarket.heartbeat_interval", "10s")

	// Trading defaults
	v.SetDefault("trading.event_channel_size", 1024)
	v.SetDefault("trading.tick_interval", "1s")
	v.SetDefault("trading.min_arb_profit", "0.01")
	v.SetDefault("trading.matched_pairs", "")
	v.SetDefault("trading.stale_threshold", "1s")
	v.SetDefault("trading.cool_off", "2s")
	v.SetDefault("trading.reconnect_initial_delay", "500ms")
	v.SetDefault("trading.reconnect_max_delay", "30s")
	v.SetDefault("trading.reconnect_max_attempts", 0)

	// Signer defaults
	v.SetDefault("signer.session_ttl", "1h")
	v.SetDefault("signer.max_value_limit", "1000000000") // 1000 USDC
	v.SetDefault("signer.chain_id", 137)                 // Polygon
	v.SetDefault("signer.aws_region", "us-east-1")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "trader")
	v.SetDefault("db.password", "trader")
	v.SetDefault("db.dbname", "trader")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.pool_size", 4)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	cfg := &Config{}

	cfg.Env = v.GetString("env")
	cfg.LocalStackEndpoint = v.GetString("localstack_endpoint")

	cfg.Polymarket = PolymarketConfig{
		WSURL:             v.GetString("polymarket.ws_url"),
		RESTURL:           v.GetString("polymarket.rest_url"),
		GammaURL:          v.GetString("polymarket.gamma_url"),
		AssetIDs:          splitList(v.GetString("polymarket.asset_ids")),
		APIKey:            v.GetString("polymarket.api_key"),
		Passphrase:        v.GetString("polymarket.passphrase"),
		Secret:            v.GetString("polymarket.secret"),
		SecretCiphertext:  v.GetString("polymarket.secret_ciphertext"),
		HeartbeatInterval: v.GetDuration("polymarket.heartbeat_interval"),
	}

	cfg.Trading = TradingConfig{
		EventChannelSize:      v.GetInt("trading.event_channel_size"),
		TickInterval:          v.GetDuration("trading.tick_interval"),
		MinArbProfit:          v.GetString("trading.min_arb_profit"),
		MatchedPairs:          splitList(v.GetString("trading.matched_pairs")),
		StaleThreshold:        v.GetDuration("trading.stale_threshold"),
		CoolOff:               v.GetDuration("trading.cool_off"),
		ReconnectInitialDelay: v.GetDuration("trading.reconnect_initial_delay"),
		ReconnectMaxDelay:     v.GetDuration("trading.reconnect_max_delay"),
		ReconnectMaxAttempts:  v.GetInt("trading.reconnect_max_attempts"),
	}

	cfg.Signer = SignerConfig{
		SessionTTL:           v.GetDuration("signer.session_ttl"),
		SessionKeyCiphertext: v.GetString("signer.session_key_ciphertext"),
		MaxValueLimit:        v.GetString("signer.max_value_limit"),
		MakerAddress:         v.GetString("signer.maker_address"),
		ExchangeContract:     v.GetString("signer.exchange_contract"),
		ChainID:              v.GetInt64("signer.chain_id"),
		KMSKeyID:             v.GetString("signer.kms_key_id"),
		AWSRegion:            v.GetString("signer.aws_region"),
	}

	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		DBName:   v.GetString("db.dbname"),
		SSLMode:  v.GetString("db.sslmode"),
		PoolSize: v.GetInt("db.pool_size"),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}

	return cfg, nil
}

// splitList parses a comma-separated env value, trimming whitespace and
// skipping empties.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
