package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// mockRedis records every HSet call for assertion.
type mockRedis struct {
	mu    sync.Mutex
	calls []hsetCall
}

type hsetCall struct {
	Key    string
	Fields map[string]any
}

func (m *mockRedis) HSet(ctx context.Context, key string, values ...any) *redis.IntCmd {
	fields := make(map[string]any)
	for i := 0; i+1 < len(values); i += 2 {
		k, _ := values[i].(string)
		fields[k] = values[i+1]
	}
	m.mu.Lock()
	m.calls = append(m.calls, hsetCall{Key: key, Fields: fields})
	m.mu.Unlock()
	return redis.NewIntResult(1, nil)
}

func (m *mockRedis) getCalls() []hsetCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hsetCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshotEvent(marketID string, bid, ask string, ts time.Time) market.Event {
	return market.NewBookEvent(&market.OrderBook{
		Platform: market.PlatformPolymarket,
		MarketID: marketID,
		Bids: []market.PriceLevel{
			{Price: dec(bid), Size: dec("30")},
		},
		Asks: []market.PriceLevel{
			{Price: dec(ask), Size: dec("25")},
		},
		Timestamp: ts,
	})
}

func waitForCalls(t *testing.T, mock *mockRedis, n int) []hsetCall {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if calls := mock.getCalls(); len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("fewer than %d HSet calls observed", n)
	return nil
}

func TestBookWriter_WritesBestLevels(t *testing.T) {
	mock := &mockRedis{}
	w := NewBookWriter(mock, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	ts := time.UnixMilli(1700000000000)
	w.Consume(market.NewBookEvent(&market.OrderBook{
		Platform: market.PlatformPolymarket,
		MarketID: "0xabc",
		Bids: []market.PriceLevel{
			{Price: dec("0.48"), Size: dec("30")},
			{Price: dec("0.52"), Size: dec("10")},
		},
		Asks: []market.PriceLevel{
			{Price: dec("0.55"), Size: dec("25")},
			{Price: dec("0.60"), Size: dec("15")},
		},
		Timestamp: ts,
	}))

	calls := waitForCalls(t, mock, 1)
	call := calls[0]
	if call.Key != "book:polymarket:0xabc" {
		t.Errorf("key = %q", call.Key)
	}
	if call.Fields["bid"] != "0.52" {
		t.Errorf("bid = %v, want 0.52", call.Fields["bid"])
	}
	if call.Fields["ask"] != "0.55" {
		t.Errorf("ask = %v, want 0.55", call.Fields["ask"])
	}
	if call.Fields["ts"] != int64(1700000000000) {
		t.Errorf("ts = %v", call.Fields["ts"])
	}
}

func TestBookWriter_SuppressesDuplicates(t *testing.T) {
	mock := &mockRedis{}
	w := NewBookWriter(mock, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	ts := time.Now()
	w.Consume(snapshotEvent("0xabc", "0.50", "0.55", ts))
	w.Consume(snapshotEvent("0xabc", "0.50", "0.55", ts.Add(time.Second)))
	w.Consume(snapshotEvent("0xabc", "0.51", "0.55", ts.Add(2*time.Second)))

	calls := waitForCalls(t, mock, 2)
	time.Sleep(20 * time.Millisecond)
	if got := len(mock.getCalls()); got != 2 {
		t.Fatalf("got %d writes, want 2 (duplicate suppressed)", got)
	}
	if calls[1].Fields["bid"] != "0.51" {
		t.Errorf("second write bid = %v, want 0.51", calls[1].Fields["bid"])
	}
}

func TestBookWriter_IgnoresNonBookEvents(t *testing.T) {
	mock := &mockRedis{}
	w := NewBookWriter(mock, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Consume(market.NewHeartbeatEvent(market.PlatformPolymarket))
	w.Consume(market.NewUpdateEvent(&market.OrderBookUpdate{
		Platform: market.PlatformPolymarket,
		MarketID: "0xabc",
		Bids:     []market.PriceLevel{{Price: dec("0.50"), Size: dec("5")}},
	}))
	w.Consume(snapshotEvent("0xdef", "0.30", "0.35", time.Now()))

	calls := waitForCalls(t, mock, 1)
	time.Sleep(20 * time.Millisecond)
	if got := len(mock.getCalls()); got != 1 {
		t.Fatalf("got %d writes, want 1 (deltas and heartbeats ignored)", got)
	}
	if calls[0].Key != "book:polymarket:0xdef" {
		t.Errorf("key = %q", calls[0].Key)
	}
}

func TestBookWriter_EmptySideWritesZero(t *testing.T) {
	mock := &mockRedis{}
	w := NewBookWriter(mock, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Consume(market.NewBookEvent(&market.OrderBook{
		Platform:  market.PlatformKalshi,
		MarketID:  "kal-1",
		Bids:      []market.PriceLevel{{Price: dec("0.40"), Size: dec("10")}},
		Timestamp: time.Now(),
	}))

	calls := waitForCalls(t, mock, 1)
	if calls[0].Fields["ask"] != "0" {
		t.Errorf("ask = %v, want 0 for an empty side", calls[0].Fields["ask"])
	}
}
