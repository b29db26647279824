package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func level(price, size string) PriceLevel {
	return PriceLevel{
		Price: decimal.RequireFromString(price),
		Size:  decimal.RequireFromString(size),
	}
}

func TestOrderBook_MidpointAndSpread(t *testing.T) {
	book := OrderBook{
		Platform:  PlatformPolymarket,
		MarketID:  "cond-1",
		AssetID:   "tok-1",
		Bids:      []PriceLevel{level("0.45", "100"), level("0.40", "50")},
		Asks:      []PriceLevel{level("0.55", "80"), level("0.60", "30")},
		Timestamp: time.Now(),
		Sequence:  1,
	}

	mid, ok := book.Midpoint()
	if !ok {
		t.Fatal("expected midpoint for non-empty book")
	}
	if !mid.Equal(decimal.RequireFromString("0.50")) {
		t.Fatalf("midpoint = %s, want 0.50", mid)
	}

	spread, ok := book.Spread()
	if !ok {
		t.Fatal("expected spread for non-empty book")
	}
	if !spread.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("spread = %s, want 0.10", spread)
	}
}

func TestOrderBook_Empty(t *testing.T) {
	book := OrderBook{Platform: PlatformPolymarket, MarketID: "cond-1"}

	if _, ok := book.BestBid(); ok {
		t.Fatal("BestBid on empty book should be absent")
	}
	if _, ok := book.BestAsk(); ok {
		t.Fatal("BestAsk on empty book should be absent")
	}
	if _, ok := book.Midpoint(); ok {
		t.Fatal("Midpoint on empty book should be absent")
	}
	if _, ok := book.Spread(); ok {
		t.Fatal("Spread on empty book should be absent")
	}
}

func TestOrderBook_OneSided(t *testing.T) {
	book := OrderBook{
		Bids: []PriceLevel{level("0.45", "100")},
	}
	if _, ok := book.Midpoint(); ok {
		t.Fatal("Midpoint should be absent without asks")
	}
	if _, ok := book.BestBid(); !ok {
		t.Fatal("BestBid should be present")
	}
}

func TestParseSide(t *testing.T) {
	cases := []struct {
		token string
		want  Side
		ok    bool
	}{
		{"buy", Buy, true},
		{"BUY", Buy, true},
		{"bid", Buy, true},
		{"sell", Sell, true},
		{"ask", Sell, true},
		{"Ask", Sell, true},
		{"hold", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseSide(c.token)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseSide(%q) = (%v, %v), want (%v, %v)", c.token, got, ok, c.want, c.ok)
		}
	}
}

func TestEvent_PlatformAndMarketID(t *testing.T) {
	trade := &Trade{Platform: PlatformKalshi, MarketID: "INXD-23", TradeID: "t1"}
	ev := NewTradeEvent(trade)
	if ev.Platform() != PlatformKalshi {
		t.Fatalf("Platform() = %s, want kalshi", ev.Platform())
	}
	if ev.MarketID() != "INXD-23" {
		t.Fatalf("MarketID() = %s, want INXD-23", ev.MarketID())
	}

	raw := NewRawEvent(PlatformPolymarket, "???")
	if raw.Platform() != PlatformPolymarket {
		t.Fatalf("raw Platform() = %s", raw.Platform())
	}
	if raw.MarketID() != "" {
		t.Fatalf("raw MarketID() = %q, want empty", raw.MarketID())
	}

	status := NewStatusEvent(ConnectionStatus{Platform: PlatformPolymarket, State: Connected})
	if status.Kind != KindConnectionStatus || status.Status.State != Connected {
		t.Fatal("status event not constructed as expected")
	}
}
