package market

// EventKind discriminates the Event union.
type EventKind uint8

const (
	KindOrderBook EventKind = iota + 1
	KindOrderBookUpdate
	KindTrade
	KindMarketInfo
	KindConnectionStatus
	KindHeartbeat
	KindRaw
)

func (k EventKind) String() string {
	switch k {
	case KindOrderBook:
		return "order_book"
	case KindOrderBookUpdate:
		return "order_book_update"
	case KindTrade:
		return "trade"
	case KindMarketInfo:
		return "market_info"
	case KindConnectionStatus:
		return "connection_status"
	case KindHeartbeat:
		return "heartbeat"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Event is the single payload type carried on every event channel.
// Exactly the field matching Kind is non-nil; Raw events carry the original
// unparsed text so nothing received on the wire is ever lost.
type Event struct {
	Kind EventKind

	Book   *OrderBook
	Update *OrderBookUpdate
	Trade  *Trade
	Info   *MarketInfo
	Status *ConnectionStatus

	// Heartbeat and Raw carry no struct payload beyond the platform and,
	// for Raw, the original message text.
	RawPlatform Platform
	RawMessage  string
}

// NewBookEvent wraps a full snapshot.
func NewBookEvent(book *OrderBook) Event {
	return Event{Kind: KindOrderBook, Book: book}
}

// NewUpdateEvent wraps a book update.
func NewUpdateEvent(update *OrderBookUpdate) Event {
	return Event{Kind: KindOrderBookUpdate, Update: update}
}

// NewTradeEvent wraps a trade execution.
func NewTradeEvent(trade *Trade) Event {
	return Event{Kind: KindTrade, Trade: trade}
}

// NewInfoEvent wraps market metadata.
func NewInfoEvent(info *MarketInfo) Event {
	return Event{Kind: KindMarketInfo, Info: info}
}

// NewStatusEvent wraps a connection status change.
func NewStatusEvent(status ConnectionStatus) Event {
	return Event{Kind: KindConnectionStatus, Status: &status}
}

// NewHeartbeatEvent marks a liveness reply from the venue.
func NewHeartbeatEvent(platform Platform) Event {
	return Event{Kind: KindHeartbeat, RawPlatform: platform}
}

// NewRawEvent carries text that matched no known message shape.
func NewRawEvent(platform Platform, message string) Event {
	return Event{Kind: KindRaw, RawPlatform: platform, RawMessage: message}
}

// Platform returns the venue this event originated from.
func (e Event) Platform() Platform {
	switch e.Kind {
	case KindOrderBook:
		return e.Book.Platform
	case KindOrderBookUpdate:
		return e.Update.Platform
	case KindTrade:
		return e.Trade.Platform
	case KindMarketInfo:
		return e.Info.Platform
	case KindConnectionStatus:
		return e.Status.Platform
	default:
		return e.RawPlatform
	}
}

// MarketID returns the market identifier for events that carry one,
// or "" for connection-level events.
func (e Event) MarketID() string {
	switch e.Kind {
	case KindOrderBook:
		return e.Book.MarketID
	case KindOrderBookUpdate:
		return e.Update.MarketID
	case KindTrade:
		return e.Trade.MarketID
	case KindMarketInfo:
		return e.Info.MarketID
	default:
		return ""
	}
}
