package engine

import (
	"sync"
	"time"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// GateConfig holds tunable parameters for the Gate.
type GateConfig struct {
	// StaleThreshold is the maximum age of market data before the market
	// is considered stale. Default: 1000ms.
	StaleThreshold time.Duration

	// CoolOff is the duration of continuous healthy data required after a
	// recovery before trading is re-enabled. Default: 2s.
	CoolOff time.Duration
}

// DefaultGateConfig returns production-tuned defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		StaleThreshold: 1000 * time.Millisecond,
		CoolOff:        2 * time.Second,
	}
}

// marketKey identifies one (platform, market) pair.
type marketKey struct {
	Platform market.Platform
	MarketID string
}

// marketState tracks health for a single market.
type marketState struct {
	LastUpdate time.Time
	// RecoveredAt is set when a market transitions from unhealthy to
	// healthy. Trading is blocked until CoolOff has elapsed since then.
	RecoveredAt time.Time
	Healthy     bool
}

// Gate monitors connection liveness and data freshness, gating every acted-
// upon decision behind CanTrade. It enforces:
//   - Transport health via registered liveness probes
//   - Data staleness via event timestamps, fed through Observe
//   - Cool-off after a market recovers from an unhealthy state
//   - Manual emergency halt
type Gate struct {
	cfg GateConfig

	// probes report per-platform transport liveness.
	probeMu sync.RWMutex
	probes  map[market.Platform]func() bool

	mu      sync.RWMutex
	markets map[marketKey]*marketState

	haltMu sync.RWMutex
	halted bool

	nowFunc func() time.Time // injectable clock for testing
}

// NewGate creates a Gate. Connections are registered separately via
// WatchConnection and market data arrives through Observe.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{
		cfg:     cfg,
		probes:  make(map[market.Platform]func() bool),
		markets: make(map[marketKey]*marketState),
		nowFunc: time.Now,
	}
}

// WatchConnection registers a liveness probe for a platform, typically a
// client's IsConnected method.
func (g *Gate) WatchConnection(platform market.Platform, alive func() bool) {
	g.probeMu.Lock()
	g.probes[platform] = alive
	g.probeMu.Unlock()
}

// ManualHalt blocks all trading until Resume is called.
func (g *Gate) ManualHalt() {
	g.haltMu.Lock()
	g.halted = true
	g.haltMu.Unlock()
}

// Resume clears the manual halt. Markets still need to pass staleness and
// cool-off checks before CanTrade returns true.
func (g *Gate) Resume() {
	g.haltMu.Lock()
	g.halted = false
	g.haltMu.Unlock()
}

// CanTrade returns true only if ALL of the following hold:
//  1. No manual halt is active.
//  2. The platform's liveness probe, if registered, reports connected.
//  3. The market has received data within StaleThreshold.
//  4. The cool-off period has elapsed since the last recovery.
func (g *Gate) CanTrade(platform market.Platform, marketID string) bool {
	g.haltMu.RLock()
	if g.halted {
		g.haltMu.RUnlock()
		return false
	}
	g.haltMu.RUnlock()

	g.probeMu.RLock()
	alive, ok := g.probes[platform]
	g.probeMu.RUnlock()
	if ok && !alive() {
		return false
	}

	key := marketKey{Platform: platform, MarketID: marketID}
	now := g.nowFunc()

	g.mu.RLock()
	ms, exists := g.markets[key]
	g.mu.RUnlock()

	if !exists {
		return false // no data received yet
	}

	if now.Sub(ms.LastUpdate) > g.cfg.StaleThreshold {
		return false
	}

	if !ms.RecoveredAt.IsZero() && now.Sub(ms.RecoveredAt) < g.cfg.CoolOff {
		return false
	}

	return true
}

// Observe records an event's effect on health state. Market-data events
// refresh their market's timestamp; a non-Connected status event marks
// every market on that platform unhealthy so recovery triggers a cool-off.
func (g *Gate) Observe(ev market.Event) {
	switch ev.Kind {
	case market.KindOrderBook, market.KindOrderBookUpdate, market.KindTrade:
		g.recordUpdate(ev.Platform(), ev.MarketID())
	case market.KindConnectionStatus:
		if ev.Status.State != market.Connected {
			g.markPlatformStale(ev.Status.Platform)
		}
	}
}

func (g *Gate) recordUpdate(platform market.Platform, marketID string) {
	key := marketKey{Platform: platform, MarketID: marketID}
	now := g.nowFunc()

	g.mu.Lock()
	ms, exists := g.markets[key]
	if !exists {
		ms = &marketState{}
		g.markets[key] = ms
	}

	wasHealthy := ms.Healthy
	ms.LastUpdate = now
	ms.Healthy = true

	if !wasHealthy {
		ms.RecoveredAt = now
	}
	g.mu.Unlock()
}

// MarkStale forces a market into an unhealthy state; the next update
// starts a fresh cool-off.
func (g *Gate) MarkStale(platform market.Platform, marketID string) {
	key := marketKey{Platform: platform, MarketID: marketID}

	g.mu.Lock()
	if ms, exists := g.markets[key]; exists {
		ms.Healthy = false
	}
	g.mu.Unlock()
}

func (g *Gate) markPlatformStale(platform market.Platform) {
	g.mu.Lock()
	for key, ms := range g.markets {
		if key.Platform == platform {
			ms.Healthy = false
		}
	}
	g.mu.Unlock()
}
