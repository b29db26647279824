package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// ErrNotConnected is returned by operations that need a live connection
// before ConnectAndSubscribe has succeeded.
var ErrNotConnected = errors.New("polymarket: not connected")

// WSConfig holds tunable parameters for a WSClient.
type WSConfig struct {
	// URL is the WebSocket base URL; the channel path is appended.
	URL string

	// Buffer sizes for the underlying TCP connection.
	ReadBufferSize  int
	WriteBufferSize int

	// HeartbeatInterval is how often a PING frame is sent and how often the
	// liveness loop re-checks the connected flag.
	HeartbeatInterval time.Duration

	// WriteTimeout bounds every outbound write.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns defaults tuned for low-latency market data.
func DefaultWSConfig(url string) WSConfig {
	return WSConfig{
		URL:               url,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		HeartbeatInterval: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSClient owns one connection to a Polymarket WebSocket channel. It sends
// the initial subscription, normalizes every inbound frame onto the event
// channel handed to ConnectAndSubscribe, and tracks liveness in an atomic
// flag written only by the receive loop.
//
// The client never reconnects: transport failures surface as terminal
// ConnectionStatus events and the loops exit. Reconnection policy lives in
// the orchestrator (engine.Supervisor).
type WSClient struct {
	cfg     WSConfig
	channel ChannelType
	creds   *Credentials

	connected atomic.Bool

	// mu guards the subscribed-asset list: concurrent readers (status
	// queries), exclusive writers (subscribe/unsubscribe).
	mu     sync.RWMutex
	assets []string

	writeMu sync.Mutex
	conn    *websocket.Conn

	// shutdown is closed by the receive loop on exit; the heartbeat loop
	// selects on it.
	shutdown chan struct{}
}

// NewMarketChannel creates a client for the public market-data channel.
func NewMarketChannel(cfg WSConfig) *WSClient {
	return &WSClient{cfg: cfg, channel: ChannelMarket}
}

// NewUserChannel creates a client for the authenticated account-data
// channel. Credentials are embedded in the subscription payload.
func NewUserChannel(cfg WSConfig, creds *Credentials) *WSClient {
	return &WSClient{cfg: cfg, channel: ChannelUser, creds: creds}
}

// IsConnected reports transport liveness without touching the event channel.
func (c *WSClient) IsConnected() bool {
	return c.connected.Load()
}

// Done returns a channel closed when the current connection's receive loop
// exits. It is nil before the first successful ConnectAndSubscribe.
func (c *WSClient) Done() <-chan struct{} {
	return c.shutdown
}

// SubscribedAssets returns a copy of the current subscription list.
func (c *WSClient) SubscribedAssets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.assets))
	copy(out, c.assets)
	return out
}

// ConnectAndSubscribe dials the channel endpoint, sends the initial
// subscription, emits a Connected status event, and spawns the receive and
// heartbeat loops. A handshake or subscription-write failure is returned
// synchronously with no status event and nothing spawned; every later
// failure is reported as a ConnectionStatus event on the channel instead.
func (c *WSClient) ConnectAndSubscribe(ctx context.Context, assetIDs []string, events chan<- market.Event) error {
	url := strings.TrimSuffix(c.cfg.URL, "/") + "/ws/" + string(c.channel)

	dialer := websocket.Dialer{
		ReadBufferSize:  c.cfg.ReadBufferSize,
		WriteBufferSize: c.cfg.WriteBufferSize,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.SetNoDelay(true)
			}
			return conn, nil
		},
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("polymarket: dial %s: %w", url, err)
	}

	sub, err := c.subscribeMessage(assetIDs)
	if err != nil {
		conn.Close()
		return err
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.shutdown = make(chan struct{})
	c.connected.Store(true)

	c.mu.Lock()
	c.assets = append([]string(nil), assetIDs...)
	c.mu.Unlock()

	if err := c.writeJSON(sub); err != nil {
		c.connected.Store(false)
		conn.Close()
		c.writeMu.Lock()
		c.conn = nil
		c.writeMu.Unlock()
		return fmt.Errorf("polymarket: send subscription: %w", err)
	}

	events <- market.NewStatusEvent(market.ConnectionStatus{
		Platform: market.PlatformPolymarket,
		State:    market.Connected,
	})

	go c.receiveLoop(events)
	go c.heartbeatLoop()

	return nil
}

// Subscribe adds assets to the live subscription.
func (c *WSClient) Subscribe(assetIDs []string) error {
	if err := c.writeJSON(wsOperationMessage{Operation: "subscribe", AssetsIDs: assetIDs}); err != nil {
		return fmt.Errorf("polymarket: subscribe: %w", err)
	}
	c.mu.Lock()
	c.assets = append(c.assets, assetIDs...)
	c.mu.Unlock()
	return nil
}

// Unsubscribe removes assets from the live subscription.
func (c *WSClient) Unsubscribe(assetIDs []string) error {
	if err := c.writeJSON(wsOperationMessage{Operation: "unsubscribe", AssetsIDs: assetIDs}); err != nil {
		return fmt.Errorf("polymarket: unsubscribe: %w", err)
	}
	drop := make(map[string]struct{}, len(assetIDs))
	for _, id := range assetIDs {
		drop[id] = struct{}{}
	}
	c.mu.Lock()
	kept := c.assets[:0]
	for _, id := range c.assets {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	c.assets = kept
	c.mu.Unlock()
	return nil
}

// Disconnect performs a clean close. The receive loop observes the closed
// transport and emits the terminal Disconnected event.
func (c *WSClient) Disconnect() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return nil
	}
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}

// receiveLoop is the sole writer of the liveness flag. It selects over the
// next inbound frame and the PING ticker; frames are delivered in receive
// order and a full event channel blocks here rather than dropping.
func (c *WSClient) receiveLoop(events chan<- market.Event) {
	defer close(c.shutdown)

	type frame struct {
		data []byte
		err  error
	}
	frames := make(chan frame)
	go func() {
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				frames <- frame{err: err}
				return
			}
			frames <- frame{data: data}
		}
	}()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-frames:
			if f.err != nil {
				c.connected.Store(false)
				events <- c.terminalStatus(f.err)
				return
			}
			text := string(f.data)
			if text == "PONG" || text == "pong" {
				events <- market.NewHeartbeatEvent(market.PlatformPolymarket)
				continue
			}
			events <- Normalize(text)

		case <-ticker.C:
			if err := c.writeText("PING"); err != nil {
				log.Printf("polymarket: ping write failed: %v", err)
			}
		}
	}
}

// heartbeatLoop watches the liveness flag and exits within one tick of the
// receive loop clearing it, or immediately on shutdown.
func (c *WSClient) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			if !c.connected.Load() {
				return
			}
		}
	}
}

func (c *WSClient) terminalStatus(err error) market.Event {
	state := market.ConnError
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		state = market.Disconnected
	}
	return market.NewStatusEvent(market.ConnectionStatus{
		Platform: market.PlatformPolymarket,
		State:    state,
		Reason:   err.Error(),
	})
}

func (c *WSClient) subscribeMessage(assetIDs []string) (wsSubscribeMessage, error) {
	switch c.channel {
	case ChannelUser:
		if c.creds == nil {
			return wsSubscribeMessage{}, fmt.Errorf("polymarket: user channel requires credentials")
		}
		auth, err := c.creds.subscriptionAuth()
		if err != nil {
			return wsSubscribeMessage{}, err
		}
		return wsSubscribeMessage{Type: ChannelUser, Markets: assetIDs, Auth: auth}, nil
	default:
		return wsSubscribeMessage{Type: ChannelMarket, AssetsIDs: assetIDs}, nil
	}
}

func (c *WSClient) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *WSClient) writeText(s string) error {
	return c.write(websocket.TextMessage, []byte(s))
}

func (c *WSClient) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}
