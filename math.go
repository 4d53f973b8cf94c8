package clreplay

import (
	"math"
	"math/big"

	"github.com/daoleno/uniswapv3-sdk/utils"
	"github.com/sirupsen/logrus"
)

// tickBaseLog is log(sqrt(1.0001)), precomputed once for TickOf.
var tickBaseLog = math.Log(math.Sqrt(tickBase))

// roundTo rounds x to n decimal places, matching Python's round() used by
// the original cl_cpmm.py to absorb floating-point error near tick bounds.
func roundTo(x float64, n int) float64 {
	p := math.Pow(10, float64(n))
	return math.Round(x*p) / p
}

// TickOf converts a sqrtPrice to its containing tick: floor(round(log_b(p), 6))
// where b = sqrt(1.0001) (spec §4.1).
func TickOf(sqrtPrice float64) int {
	return int(math.Floor(roundTo(math.Log(sqrtPrice)/tickBaseLog, tickRoundingDecimals)))
}

// TickOfTowardZero matches the on-chain rounding convention for signed ticks
// (truncation toward zero), used only for comparison helpers (spec §4.1).
func TickOfTowardZero(sqrtPrice float64) int {
	t := roundTo(math.Log(sqrtPrice)/tickBaseLog, tickRoundingDecimals)
	if t < 0 {
		return int(math.Ceil(t))
	}
	return int(math.Floor(t))
}

// SqrtPriceOf converts a tick to sqrtPrice = 1.0001^(tick/2) (spec §4.1).
func SqrtPriceOf(tick int) float64 {
	return math.Pow(tickBase, float64(tick)/2)
}

// SqrtPriceX96ToSqrtPrice divides a Q96 fixed-point sqrtPriceX96 by 2^96.
func SqrtPriceX96ToSqrtPrice(x *big.Int) float64 {
	f := new(big.Float).SetInt(x)
	f.Quo(f, q96)
	v, _ := f.Float64()
	return v
}

// SqrtPriceToSqrtPriceX96 is the inverse of SqrtPriceX96ToSqrtPrice, used when
// a position or pool needs to report its price in the on-chain Q96 encoding.
func SqrtPriceToSqrtPriceX96(sqrtPrice float64) *big.Int {
	f := new(big.Float).SetFloat64(sqrtPrice)
	f.Mul(f, q96)
	out, _ := f.Int(nil)
	return out
}

// Price returns sqrtPrice^2, the price of token1 in terms of token0 (spec §4.1, §6).
func Price(sqrtPrice float64) float64 {
	return sqrtPrice * sqrtPrice
}

// TickRange returns (tick, lowerBoundary, upperBoundary) for the tick-spacing
// grid containing tick (spec §4.1).
func TickRange(tick, tickSpacing int) (int, int, int) {
	lower := floorDiv(tick, tickSpacing) * tickSpacing
	return tick, lower, lower + tickSpacing
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Amount0 returns the token0 reserves implied by liquidity L over [a, b],
// reordering a <= b internally (spec §4.1).
func Amount0(sqrtPriceA, sqrtPriceB, liquidity float64) float64 {
	if sqrtPriceA > sqrtPriceB {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	return liquidity * ((1 / sqrtPriceA) - (1 / sqrtPriceB))
}

// Amount1 returns the token1 reserves implied by liquidity L over [a, b],
// reordering a <= b internally (spec §4.1).
func Amount1(sqrtPriceA, sqrtPriceB, liquidity float64) float64 {
	if sqrtPriceA > sqrtPriceB {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	return liquidity * (sqrtPriceB - sqrtPriceA)
}

// Amounts splits liquidity L over [a, b] into (amount0, amount1) given the
// current sqrtPrice p, per spec §4.1's three-way case split.
func Amounts(sqrtPrice, sqrtPriceA, sqrtPriceB, liquidity float64) (float64, float64) {
	if sqrtPriceA > sqrtPriceB {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	switch {
	case sqrtPrice <= sqrtPriceA:
		return Amount0(sqrtPriceA, sqrtPriceB, liquidity), 0
	case sqrtPrice < sqrtPriceB:
		return Amount0(sqrtPrice, sqrtPriceB, liquidity), Amount1(sqrtPriceA, sqrtPrice, liquidity)
	default:
		return 0, Amount1(sqrtPriceA, sqrtPriceB, liquidity)
	}
}

// NextSqrtPrice returns the sqrtPrice after swapping amountIn of the input
// token against liquidity L at sqrtPrice p (spec §4.1).
func NextSqrtPrice(sqrtPrice, liquidity, amountIn float64, zeroForOne bool) float64 {
	if zeroForOne {
		return 1 / ((amountIn / liquidity) + (1 / sqrtPrice))
	}
	return sqrtPrice + (amountIn / liquidity)
}

// LFromAmount0 returns the liquidity implied by amount0 spread over [a, b].
func LFromAmount0(amount, sqrtPriceA, sqrtPriceB float64) float64 {
	if sqrtPriceA > sqrtPriceB {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	return amount / ((1 / sqrtPriceA) - (1 / sqrtPriceB))
}

// LFromAmount1 returns the liquidity implied by amount1 spread over [a, b].
func LFromAmount1(amount, sqrtPriceA, sqrtPriceB float64) float64 {
	if sqrtPriceB > sqrtPriceA {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	return amount / (sqrtPriceA - sqrtPriceB)
}

// LFromAmounts returns the liquidity addable with amount0/amount1 at the
// current sqrtPrice over [a, b], taking the binding side (spec §4.1).
func LFromAmounts(amount0, amount1, sqrtPrice, sqrtPriceA, sqrtPriceB float64) float64 {
	l0 := LFromAmount0(amount0, sqrtPrice, sqrtPriceB)
	l1 := LFromAmount1(amount1, sqrtPriceA, sqrtPrice)
	l := math.Min(l0, l1)
	return math.Floor(l)
}

// exactTickAtSqrtPriceX96 cross-checks a reported Q96 sqrtPrice against the
// exact on-chain integer tick math, logging a trace note if it disagrees with
// the float TickOf result beyond one tick, or if the toward-zero truncation
// convention used by signed on-chain tick encodings would have landed on a
// different tick than TickOf's floor convention. This is diagnostic only —
// the engine's own float computation remains authoritative (spec's non-goal
// on bit-for-bit parity); see SPEC_FULL.md §3.
func exactTickAtSqrtPriceX96(sqrtPriceX96 *big.Int, floatTick int) {
	if sqrtPriceX96 == nil {
		return
	}
	exact, err := utils.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return
	}
	if diff := exact - floatTick; diff < -1 || diff > 1 {
		logrus.Tracef("exact-tick cross-check diverges from float tick: exact=%d float=%d", exact, floatTick)
	}
	if towardZero := TickOfTowardZero(SqrtPriceX96ToSqrtPrice(sqrtPriceX96)); towardZero != floatTick {
		logrus.Tracef("toward-zero tick convention diverges from floor convention: towardZero=%d floor=%d", towardZero, floatTick)
	}
}
