package signer

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/strategy"
)

// usdcDecimals shifts a human-readable USDC amount to atomic units.
const usdcDecimals = 6

// PresignedOrder is a signed Polymarket order held ready for submission.
type PresignedOrder struct {
	MarketID  string
	Side      market.Side
	Price     decimal.Decimal
	Size      decimal.Decimal
	Signature []byte
	SignedAt  time.Time
}

// PresignerConfig holds the static order fields shared by every signed
// order.
type PresignerConfig struct {
	Domain DomainData
	Maker  common.Address

	// Taker is the zero address for open orders.
	Taker common.Address

	FeeRateBps int64

	// OrderTTL bounds each order's on-chain expiration; zero means no
	// expiration field is set.
	OrderTTL time.Duration
}

// Presigner turns approved sized intents into signed Polymarket orders.
// It is an intent sink for the trader: Polymarket legs are converted to
// EIP-712 Order structs and signed through the session; legs on other
// venues pass through untouched since only Polymarket settles on-chain.
type Presigner struct {
	cfg     PresignerConfig
	session *SessionManager

	mu     sync.Mutex
	orders []PresignedOrder
	nonce  uint64

	nowFunc func() time.Time
}

// NewPresigner wires a Presigner to an activated session.
func NewPresigner(cfg PresignerConfig, session *SessionManager) *Presigner {
	return &Presigner{
		cfg:     cfg,
		session: session,
		nowFunc: time.Now,
	}
}

// Record signs every Polymarket leg of the intent. A failed leg aborts the
// whole intent: a half-signed arbitrage must not reach submission.
func (p *Presigner) Record(_ context.Context, intent strategy.SizedIntent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	signed := make([]PresignedOrder, 0, len(intent.Legs))
	for _, leg := range intent.Legs {
		if leg.Platform != market.PlatformPolymarket {
			continue
		}
		order, err := p.signLeg(leg)
		if err != nil {
			return fmt.Errorf("presign %s %s: %w", leg.Side, leg.MarketID, err)
		}
		signed = append(signed, order)
	}

	p.orders = append(p.orders, signed...)
	if len(signed) > 0 {
		log.Printf("signer: presigned %d order(s) for: %s", len(signed), intent.Reason)
	}
	return nil
}

// signLeg builds and signs one order. Caller holds p.mu.
func (p *Presigner) signLeg(leg strategy.SizedLeg) (PresignedOrder, error) {
	tokenID, ok := new(big.Int).SetString(leg.MarketID, 10)
	if !ok {
		return PresignedOrder{}, fmt.Errorf("market id %q is not a token id", leg.MarketID)
	}

	now := p.nowFunc()
	usdc := atomicUnits(leg.Price.Mul(leg.Size))
	tokens := atomicUnits(leg.Size)

	// Buy: maker pays USDC for outcome tokens. Sell: the reverse.
	makerAmount, takerAmount := usdc, tokens
	if leg.Side == market.Sell {
		makerAmount, takerAmount = tokens, usdc
	}

	expiration := new(big.Int)
	if p.cfg.OrderTTL > 0 {
		expiration.SetInt64(now.Add(p.cfg.OrderTTL).Unix())
	}

	p.nonce++
	order := &OrderData{
		Salt:          big.NewInt(now.UnixNano()),
		Maker:         p.cfg.Maker,
		Signer:        p.cfg.Maker,
		Taker:         p.cfg.Taker,
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    expiration,
		Nonce:         new(big.Int).SetUint64(p.nonce),
		FeeRateBps:    big.NewInt(p.cfg.FeeRateBps),
		Side:          sideToUint8(leg.Side),
		SignatureType: 0, // EOA
	}

	// The cumulative value limit tracks USDC notional regardless of side.
	sig, err := p.session.Sign(usdc, &p.cfg.Domain, order)
	if err != nil {
		return PresignedOrder{}, err
	}

	return PresignedOrder{
		MarketID:  leg.MarketID,
		Side:      leg.Side,
		Price:     leg.Price,
		Size:      leg.Size,
		Signature: sig,
		SignedAt:  now,
	}, nil
}

// Orders returns a copy of every order signed so far.
func (p *Presigner) Orders() []PresignedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PresignedOrder, len(p.orders))
	copy(out, p.orders)
	return out
}

// atomicUnits converts a decimal amount to USDC/token atomic units,
// truncating sub-unit dust.
func atomicUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(usdcDecimals).Truncate(0).BigInt()
}

// sideToUint8 maps to the exchange contract convention: BUY=0, SELL=1.
func sideToUint8(s market.Side) uint8 {
	if s == market.Sell {
		return 1
	}
	return 0
}
