package engine

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/strategy"
)

// EventTap receives every event the trader drains, for side channels like
// the book writer. Consume must not block the dispatch loop.
type EventTap interface {
	Consume(ev market.Event)
}

// IntentSink receives every approved sized intent, in approval order.
// Signing sessions and the journal implement this.
type IntentSink interface {
	Record(ctx context.Context, intent strategy.SizedIntent) error
}

// TraderConfig holds tunable parameters for the dispatch loop.
type TraderConfig struct {
	// TickInterval drives OnTick for registered strategies; zero disables
	// ticking.
	TickInterval time.Duration

	// MinArbProfit is the worst-case per-contract profit a two-leg intent
	// must clear after sizing, on top of whatever threshold the strategy
	// applied. Zero accepts any non-negative edge.
	MinArbProfit decimal.Decimal
}

// Trader is the decision pipeline: it drains the event channel, filters
// events by each strategy's subscriptions, and walks every Go decision
// through gate, sizing, validation and fee-adjusted profitability before
// handing the sized intent to the sinks.
//
// AddStrategy, AddTap and AddSink are wiring-time calls; the loop reads
// the slices without locking once Run has started.
type Trader struct {
	cfg       TraderConfig
	events    <-chan market.Event
	gate      *Gate
	validator *Validator
	calc      strategy.SizeCalculator
	pairs     *PairRegistry
	sctx      *strategy.StrategyContext

	strategies []strategy.Strategy
	taps       []EventTap
	sinks      []IntentSink
}

// NewTrader wires the pipeline around a shared event channel.
func NewTrader(cfg TraderConfig, events <-chan market.Event, gate *Gate, calc strategy.SizeCalculator, pairs *PairRegistry) *Trader {
	return &Trader{
		cfg:       cfg,
		events:    events,
		gate:      gate,
		validator: NewValidator(gate),
		calc:      calc,
		pairs:     pairs,
		sctx:      strategy.NewContext(),
	}
}

// AddStrategy registers a strategy and runs its OnRegister hook.
func (t *Trader) AddStrategy(s strategy.Strategy) {
	t.strategies = append(t.strategies, s)
	s.OnRegister(t.sctx)
	log.Printf("trader: registered strategy %s", s.Name())
}

// AddTap registers an event side channel.
func (t *Trader) AddTap(tap EventTap) {
	t.taps = append(t.taps, tap)
}

// AddSink registers a destination for approved sized intents.
func (t *Trader) AddSink(sink IntentSink) {
	t.sinks = append(t.sinks, sink)
}

// Run drains events until ctx is cancelled or the channel closes. Every
// strategy's OnShutdown runs on the way out.
func (t *Trader) Run(ctx context.Context) {
	defer func() {
		for _, s := range t.strategies {
			s.OnShutdown()
		}
	}()

	var tick <-chan time.Time
	if t.cfg.TickInterval > 0 {
		ticker := time.NewTicker(t.cfg.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-t.events:
			if !ok {
				return
			}
			t.handleEvent(ctx, ev)
		case <-tick:
			for _, s := range t.strategies {
				t.act(ctx, s, s.OnTick(t.sctx))
			}
		}
	}
}

func (t *Trader) handleEvent(ctx context.Context, ev market.Event) {
	t.gate.Observe(ev)

	for _, tap := range t.taps {
		tap.Consume(ev)
	}

	for _, s := range t.strategies {
		if !t.wants(s.SubscribedMarkets(), ev) {
			continue
		}
		t.act(ctx, s, s.OnMarketEvent(ev, t.sctx))
	}
}

// wants reports whether an event matches any of the subscriptions. Events
// without a market identity (status, heartbeats) reach every strategy.
func (t *Trader) wants(subs []strategy.MarketSubscription, ev market.Event) bool {
	marketID := ev.MarketID()
	if marketID == "" {
		return true
	}
	platform := ev.Platform()

	for _, sub := range subs {
		switch sub.Kind {
		case strategy.SubSpecific:
			if sub.Platform == platform && sub.MarketID == marketID {
				return true
			}
		case strategy.SubAllOnPlatform:
			if sub.Platform == platform {
				return true
			}
		case strategy.SubMatchedPair:
			if (platform == market.PlatformKalshi && sub.KalshiMarketID == marketID) ||
				(platform == market.PlatformPolymarket && sub.PolymarketMarketID == marketID) {
				return true
			}
		case strategy.SubAllMatchedPairs:
			if t.pairs != nil {
				if _, ok := t.pairs.ByMarket(platform, marketID); ok {
					return true
				}
			}
		}
	}
	return false
}

// act walks a decision through the rest of the pipeline: sizing,
// validation, profitability, then the sinks.
func (t *Trader) act(ctx context.Context, s strategy.Strategy, d strategy.Decision) {
	if !d.IsGo() {
		return
	}

	sized, ok := t.calc.SizedIntent(*d.Intent)
	if !ok {
		log.Printf("trader: %s: no size for intent, skipping: %s", s.Name(), d.Intent.Reason)
		return
	}
	if sized = matchLegSizes(sized); !sized.IsValid() {
		log.Printf("trader: %s: sized intent invalid, skipping: %s", s.Name(), sized.Reason)
		return
	}

	if err := t.validator.Validate(sized); err != nil {
		log.Printf("trader: %s: rejected: %v", s.Name(), err)
		return
	}

	if profit, checked := worstCaseProfit(sized); checked && profit.LessThan(t.cfg.MinArbProfit) {
		log.Printf("trader: %s: worst-case profit %s below floor, skipping: %s",
			s.Name(), profit, sized.Reason)
		return
	}

	for _, sink := range t.sinks {
		if err := sink.Record(ctx, sized); err != nil {
			log.Printf("trader: %s: sink failed: %v", s.Name(), err)
		}
	}
	log.Printf("trader: %s: approved: %s", s.Name(), sized.Reason)
}

// matchLegSizes clamps a two-leg intent to its smaller leg, since an
// arbitrage only holds with equal size on both sides. Other intents pass
// through unchanged.
func matchLegSizes(sized strategy.SizedIntent) strategy.SizedIntent {
	if len(sized.Legs) != 2 {
		return sized
	}
	smaller := sized.Legs[0].Size
	if sized.Legs[1].Size.LessThan(smaller) {
		smaller = sized.Legs[1].Size
	}
	sized.Legs[0].Size = smaller
	sized.Legs[1].Size = smaller
	return sized
}

// worstCaseProfit evaluates the fee-adjusted worst case per contract for a
// two-leg buy/sell intent. checked is false for shapes the fee model does
// not cover (single legs, same-side pairs), which pass on the strategy's
// own judgment.
func worstCaseProfit(sized strategy.SizedIntent) (decimal.Decimal, bool) {
	if len(sized.Legs) != 2 {
		return decimal.Decimal{}, false
	}
	buy, sell := sized.Legs[0], sized.Legs[1]
	if buy.Side == market.Sell {
		buy, sell = sell, buy
	}
	if buy.Side != market.Buy || sell.Side != market.Sell {
		return decimal.Decimal{}, false
	}
	profit := strategy.ArbitrageProfit(buy.Platform, buy.Price, sell.Platform, sell.Price, decimal.NewFromInt(1))
	return profit, true
}
