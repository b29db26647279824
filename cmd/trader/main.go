package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/config"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/engine"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/kms"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/polymarket"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/signer"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/store"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/strategy"
)

func main() {
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trader: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Printf("trader starting (env=%s)", cfg.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	secret, err := resolveSecret(ctx, cfg)
	if err != nil {
		return err
	}

	var creds *polymarket.Credentials
	if cfg.Polymarket.APIKey != "" {
		creds, err = polymarket.NewCredentials(cfg.Polymarket.APIKey, secret, cfg.Polymarket.Passphrase)
		if err != nil {
			return fmt.Errorf("credentials: %w", err)
		}
	}

	events := make(chan market.Event, cfg.Trading.EventChannelSize)

	wsCfg := polymarket.DefaultWSConfig(cfg.Polymarket.WSURL)
	wsCfg.HeartbeatInterval = cfg.Polymarket.HeartbeatInterval
	client := polymarket.NewMarketChannel(wsCfg)

	gate := engine.NewGate(engine.GateConfig{
		StaleThreshold: cfg.Trading.StaleThreshold,
		CoolOff:        cfg.Trading.CoolOff,
	})
	gate.WatchConnection(market.PlatformPolymarket, client.IsConnected)

	minProfit, err := decimal.NewFromString(cfg.Trading.MinArbProfit)
	if err != nil {
		return fmt.Errorf("parse min_arb_profit: %w", err)
	}

	pairs, err := parsePairs(cfg.Trading.MatchedPairs)
	if err != nil {
		return err
	}

	calc := strategy.NewMemorySizeCalculator()
	trader := engine.NewTrader(engine.TraderConfig{
		TickInterval: cfg.Trading.TickInterval,
		MinArbProfit: minProfit,
	}, events, gate, calc, engine.NewPairRegistry(pairs))

	if len(pairs) > 0 {
		trader.AddStrategy(strategy.NewArbitrageStrategy(pairs, minProfit))
	}

	// Book tap into Redis.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	books := store.NewBookWriter(rdb, cfg.Trading.EventChannelSize)
	trader.AddTap(books)
	go books.Run(ctx)

	// Intent journal.
	pool, err := store.NewPool(ctx, store.PoolConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.DBName,
		PoolSize: cfg.DB.PoolSize,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	journal, err := store.NewJournal(ctx, pool)
	if err != nil {
		return err
	}
	trader.AddSink(journal)

	// Pre-signing session, when a session key is configured.
	if cfg.Signer.SessionKeyCiphertext != "" {
		presigner, err := setupPresigner(ctx, cfg)
		if err != nil {
			return err
		}
		trader.AddSink(presigner)
	}

	sup := engine.NewSupervisor(market.PlatformPolymarket, client, cfg.Polymarket.AssetIDs,
		engine.ReconnectPolicy{
			InitialDelay: cfg.Trading.ReconnectInitialDelay,
			MaxDelay:     cfg.Trading.ReconnectMaxDelay,
			MaxAttempts:  cfg.Trading.ReconnectMaxAttempts,
		}, events)
	go func() {
		if err := sup.Run(ctx); err != nil {
			log.Printf("trader: %v", err)
			cancel()
		}
	}()

	if creds != nil {
		rest := polymarket.NewRESTClient(cfg.Polymarket.RESTURL, 10*time.Second).WithCredentials(creds)
		if _, err := rest.GetServerTime(ctx); err != nil {
			log.Printf("trader: rest probe failed: %v", err)
		}
	}

	trader.Run(ctx)
	log.Println("trader stopped")
	return nil
}

// parsePairs decodes name:polymarket_id:kalshi_id entries.
func parsePairs(entries []string) ([]strategy.MatchedPair, error) {
	pairs := make([]strategy.MatchedPair, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad matched pair %q, want name:polymarket_id:kalshi_id", entry)
		}
		pairs = append(pairs, strategy.MatchedPair{
			Name:               parts[0],
			PolymarketMarketID: parts[1],
			KalshiMarketID:     parts[2],
		})
	}
	return pairs, nil
}

// resolveSecret returns the Polymarket API secret, decrypting the KMS
// ciphertext when one is configured.
func resolveSecret(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Polymarket.SecretCiphertext == "" {
		return cfg.Polymarket.Secret, nil
	}
	kc, err := kms.New(ctx, cfg.Signer.AWSRegion, cfg.LocalStackEndpoint)
	if err != nil {
		return "", err
	}
	plaintext, err := kc.DecryptBase64(ctx, cfg.Polymarket.SecretCiphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// setupPresigner decrypts the session key via KMS, activates the signing
// session, and returns the intent sink.
func setupPresigner(ctx context.Context, cfg *config.Config) (*signer.Presigner, error) {
	kc, err := kms.New(ctx, cfg.Signer.AWSRegion, cfg.LocalStackEndpoint)
	if err != nil {
		return nil, err
	}
	keyBytes, err := kc.DecryptBase64(ctx, cfg.Signer.SessionKeyCiphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt session key: %w", err)
	}

	limit, ok := new(big.Int).SetString(cfg.Signer.MaxValueLimit, 10)
	if !ok {
		return nil, fmt.Errorf("parse max_value_limit %q", cfg.Signer.MaxValueLimit)
	}

	session := signer.NewSessionManager(cfg.Signer.SessionTTL)
	err = session.Activate(keyBytes, limit)
	for i := range keyBytes {
		keyBytes[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("activate session: %w", err)
	}
	log.Printf("signer: session active for %s", session.Address())

	return signer.NewPresigner(signer.PresignerConfig{
		Domain: signer.DomainData{
			Name:              "ClobExchange",
			Version:           "1",
			ChainID:           big.NewInt(cfg.Signer.ChainID),
			VerifyingContract: common.HexToAddress(cfg.Signer.ExchangeContract),
		},
		Maker: common.HexToAddress(cfg.Signer.MakerAddress),
	}, session), nil
}
