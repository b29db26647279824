package polymarket

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// Normalize converts one venue message into a market.Event. It never fails:
// dispatch tries the event_type tag first, then sniffs for a book shape
// (bid/ask arrays present), and finally degrades to a Raw event carrying
// the original text.
func Normalize(text string) market.Event {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return market.NewRawEvent(market.PlatformPolymarket, text)
	}

	var eventType string
	if tag, ok := raw["event_type"]; ok {
		// Ignore a malformed tag; structural sniffing below still applies.
		_ = json.Unmarshal(tag, &eventType)
	}

	switch eventType {
	case "book":
		if ev, ok := normalizeBook([]byte(text), true); ok {
			return ev
		}
	case "price_change":
		if ev, ok := normalizePriceChange([]byte(text)); ok {
			return ev
		}
	case "trade", "last_trade_price":
		// A last_trade_price message shares the trade shape but has no id;
		// it carries too little to build a Trade, so it passes through raw.
		if _, hasID := raw["id"]; hasID {
			if ev, ok := normalizeTrade([]byte(text)); ok {
				return ev
			}
		}
		return market.NewRawEvent(market.PlatformPolymarket, text)
	}

	// Structural fallback: anything with bid and ask arrays is book-like.
	if _, hasBids := raw["bids"]; hasBids {
		if _, hasAsks := raw["asks"]; hasAsks {
			if ev, ok := normalizeBook([]byte(text), eventType == "book"); ok {
				return ev
			}
		}
	}

	return market.NewRawEvent(market.PlatformPolymarket, text)
}

func normalizeBook(data []byte, isSnapshot bool) (market.Event, bool) {
	var ev bookEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return market.Event{}, false
	}

	return market.NewUpdateEvent(&market.OrderBookUpdate{
		Platform:   market.PlatformPolymarket,
		MarketID:   ev.Market,
		AssetID:    ev.AssetID,
		Bids:       parseLevels(ev.Bids),
		Asks:       parseLevels(ev.Asks),
		Timestamp:  parseTimestamp(ev.Timestamp),
		IsSnapshot: isSnapshot,
	}), true
}

func normalizePriceChange(data []byte) (market.Event, bool) {
	var ev priceChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return market.Event{}, false
	}

	var bids, asks []market.PriceLevel
	for _, change := range ev.Changes {
		side, ok := market.ParseSide(change.Side)
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(change.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(change.Size)
		if err != nil {
			continue
		}
		level := market.PriceLevel{Price: price, Size: size}
		if side == market.Buy {
			bids = append(bids, level)
		} else {
			asks = append(asks, level)
		}
	}

	return market.NewUpdateEvent(&market.OrderBookUpdate{
		Platform:   market.PlatformPolymarket,
		MarketID:   ev.Market,
		AssetID:    ev.AssetID,
		Bids:       bids,
		Asks:       asks,
		Timestamp:  parseTimestamp(ev.Timestamp),
		IsSnapshot: false,
	}), true
}

func normalizeTrade(data []byte) (market.Event, bool) {
	var ev tradeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return market.Event{}, false
	}

	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return market.Event{}, false
	}
	size, err := decimal.NewFromString(ev.Size)
	if err != nil {
		return market.Event{}, false
	}

	// Unrecognized side tokens default to Sell, matching the venue's
	// convention of reporting the taker side.
	side, ok := market.ParseSide(ev.Side)
	if !ok {
		side = market.Sell
	}

	return market.NewTradeEvent(&market.Trade{
		Platform:  market.PlatformPolymarket,
		MarketID:  ev.Market,
		AssetID:   ev.AssetID,
		TradeID:   ev.ID,
		Price:     price,
		Size:      size,
		Side:      side,
		Timestamp: parseTimestamp(ev.Timestamp),
	}), true
}

// parseLevels converts raw string price/size pairs into PriceLevels.
// A level whose price or size fails to parse is dropped, not an error.
func parseLevels(raw []bookLevel) []market.PriceLevel {
	levels := make([]market.PriceLevel, 0, len(raw))
	for _, r := range raw {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(r.Size)
		if err != nil {
			continue
		}
		levels = append(levels, market.PriceLevel{Price: price, Size: size})
	}
	return levels
}

// parseTimestamp converts a Unix-millisecond string to time.Time,
// falling back to the receive time when absent or malformed.
func parseTimestamp(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
