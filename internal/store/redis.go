package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// RedisClient abstracts the Redis operations used by BookWriter.
// In production this is satisfied by *redis.Client; in tests by a mock.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// bookSnapshot holds the last-written best bid/ask for a market so
// duplicate writes can be skipped.
type bookSnapshot struct {
	Bid string
	Ask string
}

// BookWriter persists the best bid/ask of every full book the trader sees
// into Redis using the schema:
//
//	Key:    book:{platform}:{market_id}
//	Fields: bid, ask, ts
//
// It hangs off the trader as an event tap: Consume buffers into an
// internal channel and never blocks the dispatch loop; a dedicated
// goroutine flushes to Redis. Duplicate prices are suppressed.
type BookWriter struct {
	client RedisClient
	buf    chan market.Event

	mu   sync.Mutex
	last map[string]bookSnapshot // keyed by Redis key
}

// NewBookWriter creates a BookWriter with the given buffer capacity.
func NewBookWriter(client RedisClient, bufSize int) *BookWriter {
	if bufSize <= 0 {
		bufSize = 1024
	}
	return &BookWriter{
		client: client,
		buf:    make(chan market.Event, bufSize),
		last:   make(map[string]bookSnapshot),
	}
}

// Consume enqueues an event for writing. When the buffer is full the event
// is dropped; a lagging Redis must not back up the dispatch loop.
func (w *BookWriter) Consume(ev market.Event) {
	switch ev.Kind {
	case market.KindOrderBook:
	case market.KindOrderBookUpdate:
		if !ev.Update.IsSnapshot {
			return
		}
	default:
		return
	}

	select {
	case w.buf <- ev:
	default:
	}
}

// Run flushes buffered events to Redis until ctx is cancelled.
func (w *BookWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.buf:
			if !ok {
				return
			}
			w.write(ctx, ev)
		}
	}
}

// write extracts best bid/ask, checks for duplicates, and issues an HSET.
func (w *BookWriter) write(ctx context.Context, ev market.Event) {
	var book market.OrderBook
	switch ev.Kind {
	case market.KindOrderBook:
		book = *ev.Book
	case market.KindOrderBookUpdate:
		book = market.OrderBook{
			Platform:  ev.Update.Platform,
			MarketID:  ev.Update.MarketID,
			Bids:      ev.Update.Bids,
			Asks:      ev.Update.Asks,
			Timestamp: ev.Update.Timestamp,
		}
	}

	bid := formatBest(book.BestBid())
	ask := formatBest(book.BestAsk())
	key := fmt.Sprintf("book:%s:%s", book.Platform, book.MarketID)

	w.mu.Lock()
	prev, exists := w.last[key]
	if exists && prev.Bid == bid && prev.Ask == ask {
		w.mu.Unlock()
		return
	}
	w.last[key] = bookSnapshot{Bid: bid, Ask: ask}
	w.mu.Unlock()

	ts := book.Timestamp.UnixMilli()
	w.client.HSet(ctx, key, "bid", bid, "ask", ask, "ts", ts)
}

// formatBest renders a best-level price, "0" for an empty side.
func formatBest(level market.PriceLevel, ok bool) string {
	if !ok {
		return "0"
	}
	return level.Price.String()
}
