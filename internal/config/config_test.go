package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("expected env=development, got %s", cfg.Env)
	}

	if cfg.Polymarket.WSURL != "wss://ws-subscriptions-clob.polymarket.com" {
		t.Errorf("unexpected ws url: %s", cfg.Polymarket.WSURL)
	}

	if cfg.Polymarket.HeartbeatInterval != 10*time.Second {
		t.Errorf("unexpected heartbeat interval: %s", cfg.Polymarket.HeartbeatInterval)
	}

	if cfg.Trading.EventChannelSize != 1024 {
		t.Errorf("expected event channel size 1024, got %d", cfg.Trading.EventChannelSize)
	}

	if cfg.Trading.CoolOff != 2*time.Second {
		t.Errorf("unexpected cool-off: %s", cfg.Trading.CoolOff)
	}

	if cfg.Signer.SessionTTL != time.Hour {
		t.Errorf("unexpected session ttl: %s", cfg.Signer.SessionTTL)
	}

	if cfg.Signer.ChainID != 137 {
		t.Errorf("expected chain id 137, got %d", cfg.Signer.ChainID)
	}

	if cfg.DB.Port != 5432 {
		t.Errorf("expected db port 5432, got %d", cfg.DB.Port)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected redis addr localhost:6379, got %s", cfg.Redis.Addr)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PMWS_ENV", "production")
	os.Setenv("PMWS_POLYMARKET_API_KEY", "key-123")
	os.Setenv("PMWS_POLYMARKET_ASSET_IDS", "1111, 2222,3333")
	os.Setenv("PMWS_TRADING_RECONNECT_MAX_ATTEMPTS", "5")
	defer os.Unsetenv("PMWS_ENV")
	defer os.Unsetenv("PMWS_POLYMARKET_API_KEY")
	defer os.Unsetenv("PMWS_POLYMARKET_ASSET_IDS")
	defer os.Unsetenv("PMWS_TRADING_RECONNECT_MAX_ATTEMPTS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("expected env=production, got %s", cfg.Env)
	}

	if cfg.Polymarket.APIKey != "key-123" {
		t.Errorf("unexpected api key: %s", cfg.Polymarket.APIKey)
	}

	want := []string{"1111", "2222", "3333"}
	if len(cfg.Polymarket.AssetIDs) != len(want) {
		t.Fatalf("asset ids = %v, want %v", cfg.Polymarket.AssetIDs, want)
	}
	for i, id := range want {
		if cfg.Polymarket.AssetIDs[i] != id {
			t.Errorf("asset id[%d] = %s, want %s", i, cfg.Polymarket.AssetIDs[i], id)
		}
	}

	if cfg.Trading.ReconnectMaxAttempts != 5 {
		t.Errorf("expected 5 reconnect attempts, got %d", cfg.Trading.ReconnectMaxAttempts)
	}
}

func TestDBDSN(t *testing.T) {
	cfg := DBConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "trader",
		Password: "secret",
		DBName:   "trader",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=trader password=secret dbname=trader sslmode=disable"
	if cfg.DSN() != expected {
		t.Errorf("unexpected DSN:\ngot:  %s\nwant: %s", cfg.DSN(), expected)
	}
}
