package engine

import (
	"sync"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/strategy"
)

// PairRegistry holds the matched cross-venue pairs known to the trader and
// resolves an event's market back to its pair for subscription filtering.
type PairRegistry struct {
	mu       sync.RWMutex
	pairs    []strategy.MatchedPair
	byMarket map[marketKey]strategy.MatchedPair
}

// NewPairRegistry creates a registry seeded with the given pairs.
func NewPairRegistry(pairs []strategy.MatchedPair) *PairRegistry {
	r := &PairRegistry{
		byMarket: make(map[marketKey]strategy.MatchedPair, 2*len(pairs)),
	}
	for _, pair := range pairs {
		r.Add(pair)
	}
	return r
}

// Add registers a pair under both of its market IDs.
func (r *PairRegistry) Add(pair strategy.MatchedPair) {
	r.mu.Lock()
	r.pairs = append(r.pairs, pair)
	r.byMarket[marketKey{Platform: market.PlatformPolymarket, MarketID: pair.PolymarketMarketID}] = pair
	r.byMarket[marketKey{Platform: market.PlatformKalshi, MarketID: pair.KalshiMarketID}] = pair
	r.mu.Unlock()
}

// ByMarket resolves a (platform, market) to its pair.
func (r *PairRegistry) ByMarket(platform market.Platform, marketID string) (strategy.MatchedPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pair, ok := r.byMarket[marketKey{Platform: platform, MarketID: marketID}]
	return pair, ok
}

// Pairs returns a copy of the registered pairs.
func (r *PairRegistry) Pairs() []strategy.MatchedPair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]strategy.MatchedPair, len(r.pairs))
	copy(out, r.pairs)
	return out
}

// Len returns the number of registered pairs.
func (r *PairRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}
