// Package strategy defines the decision pipeline: strategies turn market
// events into Go/NoGo decisions, the size cache resolves intents into
// concrete sizes, and the fee model validates worst-case profitability.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// TradeLeg is one atomic action: buy or sell on a specific platform/market.
// SuggestedPrice, when set, overrides the cached price during sizing.
type TradeLeg struct {
	Platform       market.Platform
	MarketID       string
	Side           market.Side
	SuggestedPrice *decimal.Decimal
}

// NewLeg creates a leg with no price suggestion.
func NewLeg(platform market.Platform, marketID string, side market.Side) TradeLeg {
	return TradeLeg{Platform: platform, MarketID: marketID, Side: side}
}

// WithPrice returns a copy of the leg carrying a price suggestion.
func (l TradeLeg) WithPrice(price decimal.Decimal) TradeLeg {
	l.SuggestedPrice = &price
	return l
}

// TradeIntent is one or more legs executed atomically: all legs fill or the
// intent is abandoned. A single leg is a directional trade; multiple legs
// denote cross-venue arbitrage.
type TradeIntent struct {
	Legs   []TradeLeg
	Reason string
}

// SingleIntent builds a one-leg intent.
func SingleIntent(leg TradeLeg, reason string) TradeIntent {
	return TradeIntent{Legs: []TradeLeg{leg}, Reason: reason}
}

// MultiIntent builds a multi-leg (arbitrage) intent.
func MultiIntent(legs []TradeLeg, reason string) TradeIntent {
	return TradeIntent{Legs: legs, Reason: reason}
}

// IsArbitrage reports whether the intent spans more than one leg.
func (ti TradeIntent) IsArbitrage() bool {
	return len(ti.Legs) > 1
}

// Decision is the output of one strategy invocation: NoGo, or Go carrying
// the intent to execute.
type Decision struct {
	Intent *TradeIntent
}

// NoGo is the zero decision: take no action.
var NoGo = Decision{}

// Go wraps an intent for execution.
func Go(intent TradeIntent) Decision {
	return Decision{Intent: &intent}
}

// IsGo reports whether the decision carries an intent.
func (d Decision) IsGo() bool {
	return d.Intent != nil
}

// Position is the running exposure in one market. Read-only to strategies.
// Positive size is long; negative is short.
type Position struct {
	Platform      market.Platform
	MarketID      string
	Size          decimal.Decimal
	AvgEntryPrice decimal.Decimal
}

// PositionKey identifies a position in the context map.
type PositionKey struct {
	Platform market.Platform
	MarketID string
}

// StrategyContext is the read-only snapshot of positions and balances
// supplied to a strategy on each invocation. Strategies inspect it, never
// mutate it.
type StrategyContext struct {
	Positions map[PositionKey]Position
	Balances  map[market.Platform]decimal.Decimal
}

// NewContext returns an empty context.
func NewContext() *StrategyContext {
	return &StrategyContext{
		Positions: make(map[PositionKey]Position),
		Balances:  make(map[market.Platform]decimal.Decimal),
	}
}

// Position looks up the position for a market, if any.
func (c *StrategyContext) Position(platform market.Platform, marketID string) (Position, bool) {
	p, ok := c.Positions[PositionKey{Platform: platform, MarketID: marketID}]
	return p, ok
}

// Balance returns the available balance on a platform, zero if unknown.
func (c *StrategyContext) Balance(platform market.Platform) decimal.Decimal {
	return c.Balances[platform]
}

// HasPosition reports whether a non-zero position exists in a market.
func (c *StrategyContext) HasPosition(platform market.Platform, marketID string) bool {
	p, ok := c.Position(platform, marketID)
	return ok && !p.Size.IsZero()
}

// SubscriptionKind discriminates MarketSubscription variants.
type SubscriptionKind uint8

const (
	// SubSpecific targets one (platform, market) pair.
	SubSpecific SubscriptionKind = iota + 1
	// SubAllOnPlatform targets every market on one platform.
	SubAllOnPlatform
	// SubMatchedPair targets one explicit cross-venue pair.
	SubMatchedPair
	// SubAllMatchedPairs targets every pair the orchestrator knows.
	SubAllMatchedPairs
)

// MarketSubscription declares which markets a strategy wants events for.
// The orchestrator filters the stream with it before dispatch.
type MarketSubscription struct {
	Kind     SubscriptionKind
	Platform market.Platform // SubSpecific, SubAllOnPlatform
	MarketID string          // SubSpecific

	// SubMatchedPair fields.
	KalshiMarketID     string
	PolymarketMarketID string
}

// SubscribeSpecific targets one market on one platform.
func SubscribeSpecific(platform market.Platform, marketID string) MarketSubscription {
	return MarketSubscription{Kind: SubSpecific, Platform: platform, MarketID: marketID}
}

// SubscribeAllOnPlatform targets a whole platform.
func SubscribeAllOnPlatform(platform market.Platform) MarketSubscription {
	return MarketSubscription{Kind: SubAllOnPlatform, Platform: platform}
}

// SubscribeMatchedPair targets one cross-venue pair.
func SubscribeMatchedPair(kalshiMarketID, polymarketMarketID string) MarketSubscription {
	return MarketSubscription{
		Kind:               SubMatchedPair,
		KalshiMarketID:     kalshiMarketID,
		PolymarketMarketID: polymarketMarketID,
	}
}

// SubscribeAllMatchedPairs targets every matched pair.
func SubscribeAllMatchedPairs() MarketSubscription {
	return MarketSubscription{Kind: SubAllMatchedPairs}
}
