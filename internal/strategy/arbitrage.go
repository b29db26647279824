package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// MatchedPair links two markets on different venues representing the same
// real-world outcome.
type MatchedPair struct {
	Name               string // human-readable label, e.g. "BTC > $100k"
	PolymarketMarketID string
	KalshiMarketID     string
}

// venueQuote holds the latest best bid/ask seen for one side of a pair.
type venueQuote struct {
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
	HasBid  bool
	HasAsk  bool
	Updated time.Time
}

// pairQuote is the merged two-venue view for a single pair.
type pairQuote struct {
	Pair       MatchedPair
	Polymarket venueQuote
	Kalshi     venueQuote
}

// ArbitrageStrategy watches matched pairs across venues and emits a two-leg
// Go intent whenever the worst-case fee-adjusted profit per contract
// exceeds the threshold. Book state lives inside the strategy instance;
// only full snapshots move the quotes, since deltas would require a
// maintained depth book to re-derive best levels.
type ArbitrageStrategy struct {
	BaseStrategy

	threshold decimal.Decimal
	quotes    map[string]*pairQuote

	// byMarket resolves an event's (platform, market) to its pair.
	byMarket map[PositionKey]*pairQuote
}

// NewArbitrageStrategy creates the strategy for a fixed set of pairs.
// threshold is the minimum worst-case profit per contract required to act;
// zero emits on any profitable crossing.
func NewArbitrageStrategy(pairs []MatchedPair, threshold decimal.Decimal) *ArbitrageStrategy {
	s := &ArbitrageStrategy{
		threshold: threshold,
		quotes:    make(map[string]*pairQuote, len(pairs)),
		byMarket:  make(map[PositionKey]*pairQuote, 2*len(pairs)),
	}
	for _, pair := range pairs {
		pq := &pairQuote{Pair: pair}
		s.quotes[pair.Name] = pq
		s.byMarket[PositionKey{Platform: market.PlatformPolymarket, MarketID: pair.PolymarketMarketID}] = pq
		s.byMarket[PositionKey{Platform: market.PlatformKalshi, MarketID: pair.KalshiMarketID}] = pq
	}
	return s
}

func (s *ArbitrageStrategy) Name() string { return "cross-venue-arb" }

func (s *ArbitrageStrategy) SubscribedMarkets() []MarketSubscription {
	subs := make([]MarketSubscription, 0, len(s.quotes))
	for _, pq := range s.quotes {
		subs = append(subs, SubscribeMatchedPair(pq.Pair.KalshiMarketID, pq.Pair.PolymarketMarketID))
	}
	return subs
}

func (s *ArbitrageStrategy) OnMarketEvent(ev market.Event, _ *StrategyContext) Decision {
	var (
		platform  market.Platform
		marketID  string
		bids      []market.PriceLevel
		asks      []market.PriceLevel
		timestamp time.Time
	)

	switch ev.Kind {
	case market.KindOrderBook:
		platform, marketID = ev.Book.Platform, ev.Book.MarketID
		bids, asks = ev.Book.Bids, ev.Book.Asks
		timestamp = ev.Book.Timestamp
	case market.KindOrderBookUpdate:
		if !ev.Update.IsSnapshot {
			return NoGo
		}
		platform, marketID = ev.Update.Platform, ev.Update.MarketID
		bids, asks = ev.Update.Bids, ev.Update.Asks
		timestamp = ev.Update.Timestamp
	default:
		return NoGo
	}

	pq, ok := s.byMarket[PositionKey{Platform: platform, MarketID: marketID}]
	if !ok {
		return NoGo
	}

	quote := venueQuote{Updated: timestamp}
	if best, ok := bestHigh(bids); ok {
		quote.BestBid, quote.HasBid = best, true
	}
	if best, ok := bestLow(asks); ok {
		quote.BestAsk, quote.HasAsk = best, true
	}
	if platform == market.PlatformPolymarket {
		pq.Polymarket = quote
	} else {
		pq.Kalshi = quote
	}

	return s.check(pq)
}

// check evaluates both directions and goes with the more profitable one.
func (s *ArbitrageStrategy) check(pq *pairQuote) Decision {
	best := NoGo
	bestProfit := s.threshold

	// Buy Polymarket ask, sell into the Kalshi bid.
	if pq.Polymarket.HasAsk && pq.Kalshi.HasBid {
		profit := ArbitrageProfit(
			market.PlatformPolymarket, pq.Polymarket.BestAsk,
			market.PlatformKalshi, pq.Kalshi.BestBid,
			one,
		)
		if profit.GreaterThan(bestProfit) {
			bestProfit = profit
			best = s.intent(pq, market.PlatformPolymarket, pq.Polymarket.BestAsk,
				market.PlatformKalshi, pq.Kalshi.BestBid, profit)
		}
	}

	// Buy Kalshi ask, sell into the Polymarket bid.
	if pq.Kalshi.HasAsk && pq.Polymarket.HasBid {
		profit := ArbitrageProfit(
			market.PlatformKalshi, pq.Kalshi.BestAsk,
			market.PlatformPolymarket, pq.Polymarket.BestBid,
			one,
		)
		if profit.GreaterThan(bestProfit) {
			best = s.intent(pq, market.PlatformKalshi, pq.Kalshi.BestAsk,
				market.PlatformPolymarket, pq.Polymarket.BestBid, profit)
		}
	}

	return best
}

func (s *ArbitrageStrategy) intent(pq *pairQuote, buyPlatform market.Platform, buyPrice decimal.Decimal, sellPlatform market.Platform, sellPrice decimal.Decimal, profit decimal.Decimal) Decision {
	buyLeg := NewLeg(buyPlatform, s.marketOn(pq, buyPlatform), market.Buy).WithPrice(buyPrice)
	sellLeg := NewLeg(sellPlatform, s.marketOn(pq, sellPlatform), market.Sell).WithPrice(sellPrice)
	reason := fmt.Sprintf("%s: buy %s@%s, sell %s@%s, worst-case %s/contract",
		pq.Pair.Name, buyPlatform, buyPrice, sellPlatform, sellPrice, profit)
	return Go(MultiIntent([]TradeLeg{buyLeg, sellLeg}, reason))
}

func (s *ArbitrageStrategy) marketOn(pq *pairQuote, platform market.Platform) string {
	if platform == market.PlatformPolymarket {
		return pq.Pair.PolymarketMarketID
	}
	return pq.Pair.KalshiMarketID
}

// bestHigh returns the highest price among bids.
func bestHigh(levels []market.PriceLevel) (decimal.Decimal, bool) {
	if len(levels) == 0 {
		return decimal.Decimal{}, false
	}
	best := levels[0].Price
	for _, l := range levels[1:] {
		if l.Price.GreaterThan(best) {
			best = l.Price
		}
	}
	return best, true
}

// bestLow returns the lowest price among asks.
func bestLow(levels []market.PriceLevel) (decimal.Decimal, bool) {
	if len(levels) == 0 {
		return decimal.Decimal{}, false
	}
	best := levels[0].Price
	for _, l := range levels[1:] {
		if l.Price.LessThan(best) {
			best = l.Price
		}
	}
	return best, true
}
