package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/strategy"
)

// Sentinel errors returned by Validate.
var (
	ErrEmptyIntent     = errors.New("intent has no legs")
	ErrInvalidSide     = errors.New("invalid leg side")
	ErrPriceOutOfRange = errors.New("price out of valid range")
	ErrSizeTooLow      = errors.New("size below minimum lot size")
	ErrGateClosed      = errors.New("gate: trading disabled for market")
)

// PlatformConstraints defines per-venue validation limits. Prices on
// binary outcome markets live strictly inside (MinPrice, MaxPrice).
type PlatformConstraints struct {
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	MinLotSize decimal.Decimal
}

// DefaultConstraints maps each platform to its validation rules.
var DefaultConstraints = map[market.Platform]PlatformConstraints{
	market.PlatformPolymarket: {
		MinPrice:   decimal.Zero,
		MaxPrice:   decimal.NewFromInt(1),
		MinLotSize: decimal.NewFromInt(1),
	},
	market.PlatformKalshi: {
		MinPrice:   decimal.Zero,
		MaxPrice:   decimal.NewFromInt(1),
		MinLotSize: decimal.NewFromInt(1),
	},
}

// TradingGate is the interface for checking whether trading is allowed.
// Satisfied by Gate.
type TradingGate interface {
	CanTrade(platform market.Platform, marketID string) bool
}

// Validator performs pre-flight checks on sized intents before they reach
// the signing and journaling taps. It fails fast: the first failing check
// returns an error and the intent is dropped.
type Validator struct {
	gate        TradingGate
	constraints map[market.Platform]PlatformConstraints
}

// NewValidator creates a Validator with the given gate and default
// platform constraints.
func NewValidator(gate TradingGate) *Validator {
	return &Validator{
		gate:        gate,
		constraints: DefaultConstraints,
	}
}

// Validate runs all pre-flight checks on every leg of the intent.
func (v *Validator) Validate(intent strategy.SizedIntent) error {
	if len(intent.Legs) == 0 {
		return ErrEmptyIntent
	}

	for i, leg := range intent.Legs {
		if err := v.validateLeg(leg); err != nil {
			return fmt.Errorf("leg %d (%s %s): %w", i, leg.Platform, leg.MarketID, err)
		}
	}
	return nil
}

func (v *Validator) validateLeg(leg strategy.SizedLeg) error {
	if leg.Side != market.Buy && leg.Side != market.Sell {
		return ErrInvalidSide
	}

	pc, ok := v.constraints[leg.Platform]
	if !ok {
		return fmt.Errorf("unknown platform: %s", leg.Platform)
	}

	if leg.Price.LessThanOrEqual(pc.MinPrice) || leg.Price.GreaterThanOrEqual(pc.MaxPrice) {
		return fmt.Errorf("%w: %s not in (%s, %s)",
			ErrPriceOutOfRange, leg.Price, pc.MinPrice, pc.MaxPrice)
	}

	if leg.Size.LessThan(pc.MinLotSize) {
		return fmt.Errorf("%w: %s < minimum %s",
			ErrSizeTooLow, leg.Size, pc.MinLotSize)
	}

	if !v.gate.CanTrade(leg.Platform, leg.MarketID) {
		return ErrGateClosed
	}

	return nil
}
