package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// PlatformFees is one venue's fee schedule: either a percentage of notional
// charged per trade, or a percentage of realized profit charged only on
// winning positions (never on losing ones).
type PlatformFees struct {
	Platform        market.Platform
	MakerFeePercent decimal.Decimal
	TakerFeePercent decimal.Decimal
	// ProfitBased selects the profit-fee model (Kalshi) over the
	// notional-fee model.
	ProfitBased bool
}

// KalshiFees: 7% of profit on winning trades, nothing on losers, no maker
// fee.
func KalshiFees() PlatformFees {
	return PlatformFees{
		Platform:        market.PlatformKalshi,
		TakerFeePercent: decimal.NewFromInt(7),
		ProfitBased:     true,
	}
}

// PolymarketFees: currently zero on most markets.
func PolymarketFees() PlatformFees {
	return PlatformFees{Platform: market.PlatformPolymarket}
}

// FeesFor returns the schedule for a platform.
func FeesFor(platform market.Platform) PlatformFees {
	if platform == market.PlatformKalshi {
		return KalshiFees()
	}
	return PolymarketFees()
}

// EntryCost is the total cash outlay (Buy) or proceeds (Sell) to enter a
// position, including any notional-based fee. Profit-based venues charge
// nothing at entry.
func EntryCost(platform market.Platform, price decimal.Decimal, side market.Side, size decimal.Decimal) decimal.Decimal {
	fees := FeesFor(platform)
	base := price.Mul(size)
	if fees.ProfitBased {
		return base
	}
	fee := base.Mul(fees.TakerFeePercent).Div(hundred)
	if side == market.Buy {
		return base.Add(fee)
	}
	return base.Sub(fee)
}

// ExitValue is the worst-case per-unit value at resolution assuming the
// position wins, net of any profit-based fee.
//
// Buy wins when the market resolves YES: per-unit profit is 1 - entry, so
// a profit-fee venue nets 1 - (1-entry)*rate. Sell wins when the market
// resolves NO: the seller keeps the entry proceeds, so a profit-fee venue
// nets entry - entry*rate.
func ExitValue(platform market.Platform, entryPrice decimal.Decimal, side market.Side) decimal.Decimal {
	fees := FeesFor(platform)

	if side == market.Buy {
		if !fees.ProfitBased {
			return one
		}
		profit := one.Sub(entryPrice)
		fee := profit.Mul(fees.TakerFeePercent).Div(hundred)
		return one.Sub(fee)
	}

	if !fees.ProfitBased {
		return entryPrice
	}
	fee := entryPrice.Mul(fees.TakerFeePercent).Div(hundred)
	return entryPrice.Sub(fee)
}

// NetProfit is the worst-case round-trip profit for a single position,
// assuming it wins (the worst case for profit-based fees).
func NetProfit(platform market.Platform, entryPrice decimal.Decimal, side market.Side, size decimal.Decimal) decimal.Decimal {
	entry := EntryCost(platform, entryPrice, side, size)
	exit := ExitValue(platform, entryPrice, side).Mul(size)
	if side == market.Buy {
		return exit.Sub(entry)
	}
	return entry.Sub(exit)
}

// ArbitrageProfit is the guaranteed worst-case net profit of a two-leg
// opposite-side arbitrage: buy at buyPrice on buyPlatform, sell the same
// outcome at sellPrice on sellPlatform, equal size on both legs.
//
// Gross profit per contract is sellPrice - buyPrice under either
// resolution; only the fees differ, since each profit-fee venue charges on
// its winning leg. Both resolutions are evaluated and the minimum returned:
//
//	YES (buy leg wins):  size*ExitValue(buy) - buyCost + sellProceeds - size
//	NO  (sell leg wins): sellProceeds - sellProfitFee - buyCost
func ArbitrageProfit(buyPlatform market.Platform, buyPrice decimal.Decimal, sellPlatform market.Platform, sellPrice decimal.Decimal, size decimal.Decimal) decimal.Decimal {
	buyCost := EntryCost(buyPlatform, buyPrice, market.Buy, size)
	sellProceeds := EntryCost(sellPlatform, sellPrice, market.Sell, size)

	// YES: the bought contracts pay out net of the buy venue's profit fee;
	// the sold contracts pay out one full unit each, with no fee on a loss.
	yesNet := ExitValue(buyPlatform, buyPrice, market.Buy).Mul(size).
		Sub(buyCost).
		Add(sellProceeds).
		Sub(size)

	// NO: the bought contracts expire worthless; the seller keeps the
	// proceeds minus the sell venue's profit fee (zero for notional-fee
	// venues, where ExitValue(sell) equals the entry price).
	sellProfitFee := sellPrice.Sub(ExitValue(sellPlatform, sellPrice, market.Sell)).Mul(size)
	noNet := sellProceeds.Sub(sellProfitFee).Sub(buyCost)

	if yesNet.LessThan(noNet) {
		return yesNet
	}
	return noNet
}
