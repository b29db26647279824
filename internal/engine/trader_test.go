package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/strategy"
)

// stubStrategy returns a fixed decision for every matching event.
type stubStrategy struct {
	strategy.BaseStrategy
	name   string
	subs   []strategy.MarketSubscription
	decide func(ev market.Event) strategy.Decision
	seen   []market.Event
	tick   *strategy.Decision
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) SubscribedMarkets() []strategy.MarketSubscription { return s.subs }

func (s *stubStrategy) OnMarketEvent(ev market.Event, _ *strategy.StrategyContext) strategy.Decision {
	s.seen = append(s.seen, ev)
	if s.decide == nil {
		return strategy.NoGo
	}
	return s.decide(ev)
}

func (s *stubStrategy) OnTick(_ *strategy.StrategyContext) strategy.Decision {
	if s.tick == nil {
		return strategy.NoGo
	}
	return *s.tick
}

// captureSink records every approved intent.
type captureSink struct {
	intents []strategy.SizedIntent
}

func (c *captureSink) Record(_ context.Context, intent strategy.SizedIntent) error {
	c.intents = append(c.intents, intent)
	return nil
}

func seedCalc(legs ...strategy.SizedLeg) *strategy.MemorySizeCalculator {
	calc := strategy.NewMemorySizeCalculator()
	for _, leg := range legs {
		calc.SetSize(strategy.ComputedSize{
			Platform:   leg.Platform,
			MarketID:   leg.MarketID,
			Side:       leg.Side,
			Size:       leg.Size,
			Price:      leg.Price,
			ComputedAt: time.Now(),
		})
	}
	return calc
}

// runTrader feeds the events through a trader and returns once the loop
// has drained them.
func runTrader(t *testing.T, trader *Trader, events chan market.Event, feed ...market.Event) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		trader.Run(context.Background())
		close(done)
	}()
	for _, ev := range feed {
		events <- ev
	}
	close(events)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trader did not drain the feed")
	}
}

func openTestGate() *Gate {
	// No cool-off and a generous staleness window so the event under test
	// itself opens the gate.
	return NewGate(GateConfig{StaleThreshold: time.Minute, CoolOff: 0})
}

func arbIntent() strategy.TradeIntent {
	return strategy.MultiIntent([]strategy.TradeLeg{
		strategy.NewLeg(market.PlatformPolymarket, "poly-1", market.Buy).WithPrice(dec("0.45")),
		strategy.NewLeg(market.PlatformKalshi, "kal-1", market.Sell).WithPrice(dec("0.52")),
	}, "test edge")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTrader_GoDecisionReachesSink(t *testing.T) {
	events := make(chan market.Event, 8)
	calc := seedCalc(
		sizedLeg(market.PlatformPolymarket, "poly-1", market.Buy, "0.45", "100"),
		sizedLeg(market.PlatformKalshi, "kal-1", market.Sell, "0.52", "80"),
	)
	trader := NewTrader(TraderConfig{}, events, openTestGate(), calc, nil)

	intent := arbIntent()
	strat := &stubStrategy{
		name: "stub",
		subs: []strategy.MarketSubscription{strategy.SubscribeAllOnPlatform(market.PlatformPolymarket)},
		decide: func(market.Event) strategy.Decision {
			return strategy.Go(intent)
		},
	}
	trader.AddStrategy(strat)
	sink := &captureSink{}
	trader.AddSink(sink)

	// Warm the gate for both legs, then trigger.
	runTrader(t, trader, events,
		bookUpdate(market.PlatformKalshi, "kal-1"),
		bookUpdate(market.PlatformPolymarket, "poly-1"),
	)

	if len(sink.intents) != 1 {
		t.Fatalf("sink got %d intents, want 1", len(sink.intents))
	}
	got := sink.intents[0]
	if got.Reason != "test edge" {
		t.Errorf("reason = %q", got.Reason)
	}
	// Legs are clamped to the smaller side.
	for _, leg := range got.Legs {
		if !leg.Size.Equal(dec("80")) {
			t.Errorf("leg %s size = %s, want 80", leg.MarketID, leg.Size)
		}
	}
}

func TestTrader_FiltersBySubscription(t *testing.T) {
	events := make(chan market.Event, 8)
	trader := NewTrader(TraderConfig{}, events, openTestGate(), strategy.NewMemorySizeCalculator(), nil)

	strat := &stubStrategy{
		name: "narrow",
		subs: []strategy.MarketSubscription{strategy.SubscribeSpecific(market.PlatformPolymarket, "poly-1")},
	}
	trader.AddStrategy(strat)

	runTrader(t, trader, events,
		bookUpdate(market.PlatformPolymarket, "poly-1"),
		bookUpdate(market.PlatformPolymarket, "poly-2"),
		bookUpdate(market.PlatformKalshi, "kal-1"),
	)

	if len(strat.seen) != 1 {
		t.Fatalf("strategy saw %d events, want 1", len(strat.seen))
	}
	if strat.seen[0].MarketID() != "poly-1" {
		t.Errorf("saw %s, want poly-1", strat.seen[0].MarketID())
	}
}

func TestTrader_MatchedPairSubscription(t *testing.T) {
	events := make(chan market.Event, 8)
	pairs := NewPairRegistry([]strategy.MatchedPair{{
		Name: "p", PolymarketMarketID: "poly-1", KalshiMarketID: "kal-1",
	}})
	trader := NewTrader(TraderConfig{}, events, openTestGate(), strategy.NewMemorySizeCalculator(), pairs)

	strat := &stubStrategy{
		name: "pairs",
		subs: []strategy.MarketSubscription{strategy.SubscribeAllMatchedPairs()},
	}
	trader.AddStrategy(strat)

	runTrader(t, trader, events,
		bookUpdate(market.PlatformPolymarket, "poly-1"),
		bookUpdate(market.PlatformKalshi, "kal-1"),
		bookUpdate(market.PlatformKalshi, "kal-other"),
	)

	if len(strat.seen) != 2 {
		t.Fatalf("strategy saw %d events, want the 2 pair markets", len(strat.seen))
	}
}

func TestTrader_UnprofitableIntentDropped(t *testing.T) {
	events := make(chan market.Event, 8)
	// Crossed the wrong way: buying above the sell price.
	calc := seedCalc(
		sizedLeg(market.PlatformPolymarket, "poly-1", market.Buy, "0.52", "100"),
		sizedLeg(market.PlatformKalshi, "kal-1", market.Sell, "0.45", "100"),
	)
	trader := NewTrader(TraderConfig{}, events, openTestGate(), calc, nil)

	intent := strategy.MultiIntent([]strategy.TradeLeg{
		strategy.NewLeg(market.PlatformPolymarket, "poly-1", market.Buy),
		strategy.NewLeg(market.PlatformKalshi, "kal-1", market.Sell),
	}, "bad edge")
	strat := &stubStrategy{
		name: "stub",
		subs: []strategy.MarketSubscription{strategy.SubscribeAllOnPlatform(market.PlatformPolymarket)},
		decide: func(market.Event) strategy.Decision {
			return strategy.Go(intent)
		},
	}
	trader.AddStrategy(strat)
	sink := &captureSink{}
	trader.AddSink(sink)

	runTrader(t, trader, events,
		bookUpdate(market.PlatformKalshi, "kal-1"),
		bookUpdate(market.PlatformPolymarket, "poly-1"),
	)

	if len(sink.intents) != 0 {
		t.Fatalf("sink got %d intents, want 0", len(sink.intents))
	}
}

func TestTrader_UnsizedIntentDropped(t *testing.T) {
	events := make(chan market.Event, 8)
	trader := NewTrader(TraderConfig{}, events, openTestGate(), strategy.NewMemorySizeCalculator(), nil)

	intent := arbIntent()
	strat := &stubStrategy{
		name: "stub",
		subs: []strategy.MarketSubscription{strategy.SubscribeAllOnPlatform(market.PlatformPolymarket)},
		decide: func(market.Event) strategy.Decision {
			return strategy.Go(intent)
		},
	}
	trader.AddStrategy(strat)
	sink := &captureSink{}
	trader.AddSink(sink)

	runTrader(t, trader, events, bookUpdate(market.PlatformPolymarket, "poly-1"))

	if len(sink.intents) != 0 {
		t.Fatalf("sink got %d intents, want 0 with an empty size cache", len(sink.intents))
	}
}

func TestTrader_GateBlocksUnseenMarket(t *testing.T) {
	events := make(chan market.Event, 8)
	calc := seedCalc(
		sizedLeg(market.PlatformPolymarket, "poly-2", market.Buy, "0.45", "100"),
	)
	trader := NewTrader(TraderConfig{}, events, openTestGate(), calc, nil)

	// The intent targets a market the gate has never seen data for.
	intent := strategy.SingleIntent(
		strategy.NewLeg(market.PlatformPolymarket, "poly-2", market.Buy), "cold market")
	strat := &stubStrategy{
		name: "stub",
		subs: []strategy.MarketSubscription{strategy.SubscribeAllOnPlatform(market.PlatformPolymarket)},
		decide: func(market.Event) strategy.Decision {
			return strategy.Go(intent)
		},
	}
	trader.AddStrategy(strat)
	sink := &captureSink{}
	trader.AddSink(sink)

	runTrader(t, trader, events, bookUpdate(market.PlatformPolymarket, "poly-1"))

	if len(sink.intents) != 0 {
		t.Fatalf("sink got %d intents, want 0 for a gate-blocked market", len(sink.intents))
	}
}

func TestTrader_OnTickDecisions(t *testing.T) {
	events := make(chan market.Event, 8)
	calc := seedCalc(
		sizedLeg(market.PlatformPolymarket, "poly-1", market.Buy, "0.45", "100"),
	)
	gate := openTestGate()
	trader := NewTrader(TraderConfig{TickInterval: 10 * time.Millisecond}, events, gate, calc, nil)

	tick := strategy.Go(strategy.SingleIntent(
		strategy.NewLeg(market.PlatformPolymarket, "poly-1", market.Buy), "tick entry"))
	strat := &stubStrategy{name: "ticker", tick: &tick}
	trader.AddStrategy(strat)
	sink := &captureSink{}
	trader.AddSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trader.Run(ctx)
		close(done)
	}()

	// Open the gate for poly-1, then give the ticker time to fire.
	events <- bookUpdate(market.PlatformPolymarket, "poly-1")
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if len(sink.intents) == 0 {
		t.Fatal("sink got no intents from OnTick")
	}
	if sink.intents[0].Reason != "tick entry" {
		t.Errorf("reason = %q", sink.intents[0].Reason)
	}
}
