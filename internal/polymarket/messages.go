package polymarket

// Wire shapes for the Polymarket CLOB WebSocket and REST APIs. Price and
// size fields arrive as decimal-formatted strings and are parsed by the
// normalizer; everything here mirrors the JSON exactly.

// ChannelType selects the WebSocket channel on subscription.
type ChannelType string

const (
	// ChannelMarket is the public market-data channel.
	ChannelMarket ChannelType = "market"
	// ChannelUser is the authenticated account-data channel.
	ChannelUser ChannelType = "user"
)

// wsAuth is the credential object embedded in user-channel subscriptions.
type wsAuth struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// wsSubscribeMessage is the initial subscription control message.
// Market channel carries assets_ids; user channel carries markets and auth.
type wsSubscribeMessage struct {
	Type      ChannelType `json:"type"`
	AssetsIDs []string    `json:"assets_ids,omitempty"`
	Markets   []string    `json:"markets,omitempty"`
	Auth      *wsAuth     `json:"auth,omitempty"`
}

// wsOperationMessage subscribes or unsubscribes assets on a live connection.
type wsOperationMessage struct {
	Operation string   `json:"operation"` // "subscribe" or "unsubscribe"
	AssetsIDs []string `json:"assets_ids,omitempty"`
	Markets   []string `json:"markets,omitempty"`
}

// wsEnvelope is decoded first for event-type dispatch.
type wsEnvelope struct {
	EventType string `json:"event_type"`
}

// bookLevel is one price level on the wire.
type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// bookEvent is a full book snapshot (event_type "book") or a book-shaped
// message without a recognized tag.
type bookEvent struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Market    string      `json:"market"`
	Hash      string      `json:"hash"`
	Bids      []bookLevel `json:"bids"`
	Asks      []bookLevel `json:"asks"`
	Timestamp string      `json:"timestamp"`
}

// priceChange is a single level change within a price_change event.
type priceChange struct {
	Side  string `json:"side"`
	Price string `json:"price"`
	Size  string `json:"size"`
}

// priceChangeEvent is a book delta (event_type "price_change").
type priceChangeEvent struct {
	EventType string        `json:"event_type"`
	AssetID   string        `json:"asset_id"`
	Market    string        `json:"market"`
	Changes   []priceChange `json:"changes"`
	Timestamp string        `json:"timestamp"`
}

// tradeEvent is an execution (event_type "trade"). Messages tagged
// "last_trade_price" share the shape but carry no id.
type tradeEvent struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	ID        string `json:"id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// --- REST response shapes ---

type timeResponse struct {
	Timestamp string `json:"timestamp"`
}

type priceResponse struct {
	Price string `json:"price"`
}

type midpointResponse struct {
	Mid string `json:"mid"`
}

type spreadResponse struct {
	Spread string `json:"spread"`
}

type orderBookResponse struct {
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Hash      string      `json:"hash"`
	Timestamp string      `json:"timestamp"`
	Bids      []bookLevel `json:"bids"`
	Asks      []bookLevel `json:"asks"`
}

type tokenInfo struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

type marketResponse struct {
	ConditionID     string      `json:"condition_id"`
	Question        string      `json:"question"`
	Description     string      `json:"description"`
	Tokens          []tokenInfo `json:"tokens"`
	Active          bool        `json:"active"`
	Closed          bool        `json:"closed"`
	AcceptingOrders bool        `json:"accepting_orders"`
	EndDateISO      string      `json:"end_date_iso"`
	MinimumTickSize string      `json:"minimum_tick_size"`
	NegRisk         bool        `json:"neg_risk"`
}

type marketsResponse struct {
	Data       []marketResponse `json:"data"`
	NextCursor string           `json:"next_cursor"`
}
