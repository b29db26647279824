package strategy

import (
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// Strategy turns market events into Go/NoGo decisions.
//
// OnMarketEvent is the synchronous hot path and must not perform blocking
// I/O; any state the strategy needs (price history, indicators) is owned by
// the strategy instance between calls. Positions and balances come from the
// read-only context, and size calculation is handled separately by
// SizeCalculator.
type Strategy interface {
	// Name uniquely identifies this strategy.
	Name() string

	// OnMarketEvent is called for every event matching the strategy's
	// subscriptions.
	OnMarketEvent(ev market.Event, ctx *StrategyContext) Decision

	// OnTick runs time-based logic independent of market events.
	OnTick(ctx *StrategyContext) Decision

	// SubscribedMarkets declares which events should reach OnMarketEvent.
	// The trader uses it to filter the stream before dispatch.
	SubscribedMarkets() []MarketSubscription

	// OnRegister is called once when the strategy joins the trader.
	OnRegister(ctx *StrategyContext)

	// OnShutdown is called when the strategy is removed or the system
	// stops.
	OnShutdown()
}

// BaseStrategy provides the no-op lifecycle and tick defaults so concrete
// strategies only implement what they need.
type BaseStrategy struct{}

func (BaseStrategy) OnTick(*StrategyContext) Decision { return NoGo }
func (BaseStrategy) OnRegister(*StrategyContext)      {}
func (BaseStrategy) OnShutdown()                      {}
