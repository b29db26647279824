// Package market defines the platform-agnostic event model shared by every
// component downstream of the protocol clients.
package market

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies the source venue of market data.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// Side represents the direction of an order or the taker side of a trade.
type Side uint8

const (
	Buy  Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide maps a wire token to a Side. Tokens are case-insensitive and
// venue synonyms are accepted: "buy"/"bid" and "sell"/"ask".
func ParseSide(token string) (Side, bool) {
	switch strings.ToLower(token) {
	case "buy", "bid":
		return Buy, true
	case "sell", "ask":
		return Sell, true
	default:
		return 0, false
	}
}

// PriceLevel is a single bid or ask at a given price. Prediction-market
// prices live in [0, 1] by convention; the type does not enforce it.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is a full book snapshot for one asset.
// Bids are sorted by price descending, asks ascending.
type OrderBook struct {
	Platform  Platform
	MarketID  string
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
	Sequence  uint64
}

// BestBid returns the highest bid, or false for an empty bid side.
func (ob *OrderBook) BestBid() (PriceLevel, bool) {
	if len(ob.Bids) == 0 {
		return PriceLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the lowest ask, or false for an empty ask side.
func (ob *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(ob.Asks) == 0 {
		return PriceLevel{}, false
	}
	return ob.Asks[0], true
}

// Midpoint returns (best_bid + best_ask) / 2, or false when either side
// of the book is empty.
func (ob *OrderBook) Midpoint() (decimal.Decimal, bool) {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Spread returns best_ask - best_bid, or false when either side is empty.
func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// OrderBookUpdate is a book delta or snapshot. For deltas, a level with
// size zero removes that price from a previously maintained book.
// Updates are ephemeral: produced by the normalizer and owned by the event
// channel until consumed.
type OrderBookUpdate struct {
	Platform   Platform
	MarketID   string
	AssetID    string
	Bids       []PriceLevel
	Asks       []PriceLevel
	Timestamp  time.Time
	IsSnapshot bool
	Sequence   uint64
}

// Trade is a single execution. Immutable once constructed.
type Trade struct {
	Platform  Platform
	MarketID  string
	AssetID   string
	TradeID   string
	Price     decimal.Decimal
	Size      decimal.Decimal
	Side      Side // taker side
	Timestamp time.Time
}

// MarketInfo is market metadata returned by discovery endpoints.
type MarketInfo struct {
	Platform    Platform
	MarketID    string
	Title       string
	Description string
	TokenIDs    []string
	IsActive    bool
	EndDate     *time.Time
	TickSize    *decimal.Decimal
	NegRisk     bool
}

// ConnState enumerates transport states reported as events.
type ConnState uint8

const (
	Connected ConnState = iota + 1
	Disconnected
	Reconnecting
	ConnError
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Reconnecting:
		return "reconnecting"
	case ConnError:
		return "error"
	default:
		return "unknown"
	}
}

// ConnectionStatus reports transport state as data, not control flow.
// Reason is set for Disconnected and ConnError; Attempt for Reconnecting.
type ConnectionStatus struct {
	Platform Platform
	State    ConnState
	Reason   string
	Attempt  int
}
