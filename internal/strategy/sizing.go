package strategy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// SizeKey identifies one cached size computation.
type SizeKey struct {
	Platform market.Platform
	MarketID string
	Side     market.Side
}

// KeyFromLeg derives the cache key for a trade leg.
func KeyFromLeg(leg TradeLeg) SizeKey {
	return SizeKey{Platform: leg.Platform, MarketID: leg.MarketID, Side: leg.Side}
}

// ComputedSize is one pre-computed size/price pair. A background process
// watching balances and liquidity publishes these; the hot path only reads.
type ComputedSize struct {
	Platform   market.Platform
	MarketID   string
	Side       market.Side
	Size       decimal.Decimal
	Price      decimal.Decimal
	ComputedAt time.Time
}

// SizedLeg is a leg resolved to a concrete size and price.
type SizedLeg struct {
	Platform market.Platform
	MarketID string
	Side     market.Side
	Size     decimal.Decimal
	Price    decimal.Decimal
}

// SizedIntent is a TradeIntent with every leg resolved.
type SizedIntent struct {
	Legs   []SizedLeg
	Reason string
}

// IsValid reports whether the intent is non-empty with strictly positive
// sizes on every leg.
func (si SizedIntent) IsValid() bool {
	if len(si.Legs) == 0 {
		return false
	}
	for _, leg := range si.Legs {
		if !leg.Size.IsPositive() {
			return false
		}
	}
	return true
}

// SizeCalculator decouples slow size computation from the synchronous
// decision path: sizes are published into a cache by a background updater
// and the hot path's latency is bounded by a lookup. Implementations must
// make reads safe under concurrent writes: a read returns either the pre-
// or post-update value, never a torn one.
type SizeCalculator interface {
	// GetSize returns the cached size for a key. Absence means not yet
	// computed or evicted, not an error.
	GetSize(key SizeKey) (ComputedSize, bool)

	// SizedIntent resolves every leg of an intent. If any leg is
	// unresolved it returns false, never a partial result; sizing is as
	// atomic as execution. A leg's suggested price overrides the cached
	// price.
	SizedIntent(intent TradeIntent) (SizedIntent, bool)

	// CanSize reports whether every leg of the intent has a cached size.
	CanSize(intent TradeIntent) bool

	// OldestComputationAge returns the age of the stalest contributing
	// computation, or false when any leg is unresolved.
	OldestComputationAge(intent TradeIntent) (time.Duration, bool)
}

// MemorySizeCalculator is the reference SizeCalculator: a keyed in-memory
// store written by SetSize/RemoveSize and read from the hot path under a
// read lock.
type MemorySizeCalculator struct {
	mu      sync.RWMutex
	sizes   map[SizeKey]ComputedSize
	nowFunc func() time.Time // injectable clock for testing
}

// NewMemorySizeCalculator returns an empty cache.
func NewMemorySizeCalculator() *MemorySizeCalculator {
	return &MemorySizeCalculator{
		sizes:   make(map[SizeKey]ComputedSize),
		nowFunc: time.Now,
	}
}

// SetSize inserts or replaces a computed size. Called by the background
// updater, never by the hot path.
func (m *MemorySizeCalculator) SetSize(size ComputedSize) {
	key := SizeKey{Platform: size.Platform, MarketID: size.MarketID, Side: size.Side}
	m.mu.Lock()
	m.sizes[key] = size
	m.mu.Unlock()
}

// RemoveSize evicts a cache entry.
func (m *MemorySizeCalculator) RemoveSize(key SizeKey) {
	m.mu.Lock()
	delete(m.sizes, key)
	m.mu.Unlock()
}

// Clear drops every entry.
func (m *MemorySizeCalculator) Clear() {
	m.mu.Lock()
	m.sizes = make(map[SizeKey]ComputedSize)
	m.mu.Unlock()
}

// Len returns the number of cached entries.
func (m *MemorySizeCalculator) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sizes)
}

func (m *MemorySizeCalculator) GetSize(key SizeKey) (ComputedSize, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	size, ok := m.sizes[key]
	return size, ok
}

func (m *MemorySizeCalculator) SizedIntent(intent TradeIntent) (SizedIntent, bool) {
	legs := make([]SizedLeg, 0, len(intent.Legs))
	for _, leg := range intent.Legs {
		computed, ok := m.GetSize(KeyFromLeg(leg))
		if !ok {
			return SizedIntent{}, false
		}
		price := computed.Price
		if leg.SuggestedPrice != nil {
			price = *leg.SuggestedPrice
		}
		legs = append(legs, SizedLeg{
			Platform: leg.Platform,
			MarketID: leg.MarketID,
			Side:     leg.Side,
			Size:     computed.Size,
			Price:    price,
		})
	}
	return SizedIntent{Legs: legs, Reason: intent.Reason}, true
}

func (m *MemorySizeCalculator) CanSize(intent TradeIntent) bool {
	for _, leg := range intent.Legs {
		if _, ok := m.GetSize(KeyFromLeg(leg)); !ok {
			return false
		}
	}
	return true
}

func (m *MemorySizeCalculator) OldestComputationAge(intent TradeIntent) (time.Duration, bool) {
	now := m.nowFunc()
	var oldest time.Duration
	for _, leg := range intent.Legs {
		computed, ok := m.GetSize(KeyFromLeg(leg))
		if !ok {
			return 0, false
		}
		if age := now.Sub(computed.ComputedAt); age > oldest {
			oldest = age
		}
	}
	return oldest, true
}
