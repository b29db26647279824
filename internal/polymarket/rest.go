package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// ErrMarketNotFound is returned for unknown market or token identifiers.
var ErrMarketNotFound = errors.New("polymarket: market not found")

// RESTClient talks to the CLOB discovery/history endpoints.
type RESTClient struct {
	http    *http.Client
	baseURL string
	creds   *Credentials
}

// NewRESTClient creates an unauthenticated client.
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithCredentials enables authenticated endpoints.
func (c *RESTClient) WithCredentials(creds *Credentials) *RESTClient {
	c.creds = creds
	return c
}

// GetServerTime returns the venue clock.
func (c *RESTClient) GetServerTime(ctx context.Context) (time.Time, error) {
	var resp timeResponse
	if err := c.get(ctx, "/time", nil, &resp); err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(resp.Timestamp, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("polymarket: invalid server timestamp %q: %w", resp.Timestamp, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// GetPrice returns the best price for a token on the given side.
func (c *RESTClient) GetPrice(ctx context.Context, tokenID string, side market.Side) (decimal.Decimal, error) {
	var resp priceResponse
	query := url.Values{"token_id": {tokenID}, "side": {side.String()}}
	if err := c.get(ctx, "/price", query, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket: invalid price %q: %w", resp.Price, err)
	}
	return price, nil
}

// GetMidpoint returns the midpoint price for a token.
func (c *RESTClient) GetMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	var resp midpointResponse
	query := url.Values{"token_id": {tokenID}}
	if err := c.get(ctx, "/midpoint", query, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	mid, err := decimal.NewFromString(resp.Mid)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket: invalid midpoint %q: %w", resp.Mid, err)
	}
	return mid, nil
}

// GetSpread returns best_ask - best_bid for a token.
func (c *RESTClient) GetSpread(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	var resp spreadResponse
	query := url.Values{"token_id": {tokenID}}
	if err := c.get(ctx, "/spread", query, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	spread, err := decimal.NewFromString(resp.Spread)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("polymarket: invalid spread %q: %w", resp.Spread, err)
	}
	return spread, nil
}

// GetOrderBook fetches a full book snapshot. Bids are sorted descending and
// asks ascending regardless of wire order, preserving the OrderBook
// invariant at the producer.
func (c *RESTClient) GetOrderBook(ctx context.Context, tokenID string) (*market.OrderBook, error) {
	var resp orderBookResponse
	query := url.Values{"token_id": {tokenID}}
	if err := c.get(ctx, "/book", query, &resp); err != nil {
		return nil, err
	}

	bids := parseLevels(resp.Bids)
	asks := parseLevels(resp.Asks)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })

	return &market.OrderBook{
		Platform:  market.PlatformPolymarket,
		MarketID:  resp.Market,
		AssetID:   resp.AssetID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: parseTimestamp(resp.Timestamp),
	}, nil
}

// ListMarkets returns one page of markets plus the cursor for the next.
// An empty cursor starts from the beginning.
func (c *RESTClient) ListMarkets(ctx context.Context, cursor string) ([]market.MarketInfo, string, error) {
	var resp marketsResponse
	query := url.Values{}
	if cursor != "" {
		query.Set("next_cursor", cursor)
	}
	if err := c.get(ctx, "/markets", query, &resp); err != nil {
		return nil, "", err
	}

	infos := make([]market.MarketInfo, 0, len(resp.Data))
	for _, m := range resp.Data {
		infos = append(infos, convertMarket(m))
	}
	return infos, resp.NextCursor, nil
}

func convertMarket(m marketResponse) market.MarketInfo {
	info := market.MarketInfo{
		Platform:    market.PlatformPolymarket,
		MarketID:    m.ConditionID,
		Title:       m.Question,
		Description: m.Description,
		IsActive:    m.Active && !m.Closed,
		NegRisk:     m.NegRisk,
	}
	for _, tok := range m.Tokens {
		info.TokenIDs = append(info.TokenIDs, tok.TokenID)
	}
	if m.EndDateISO != "" {
		if end, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
			info.EndDate = &end
		}
	}
	if m.MinimumTickSize != "" {
		if tick, err := decimal.NewFromString(m.MinimumTickSize); err == nil {
			info.TickSize = &tick
		}
	}
	return info
}

func (c *RESTClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("polymarket: build request: %w", err)
	}
	if c.creds != nil {
		headers, err := c.creds.Headers(http.MethodGet, path, "")
		if err != nil {
			return err
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: GET %s", ErrMarketNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket: GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("polymarket: decode %s response: %w", path, err)
	}
	return nil
}
