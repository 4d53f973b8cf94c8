package clreplay

import "math/big"

const (
	// defaultTolerance is the fractional tolerance window (spec §6) applied to
	// swap reconciliation when the caller doesn't supply one.
	defaultTolerance = 0.025

	// burnNegativeLiquidityTolerance is the rounding residue up to which a
	// burn that leaves a position with negative last_L counts as ordinary
	// rounding. ApplyBurn clamps every negative last_L to 0; a residue beyond
	// this value is clamped too, with a warning that says it exceeds the
	// tolerance.
	burnNegativeLiquidityTolerance = 8184.0

	// maxSwapIterations bounds the tick-traversal loop (spec §5).
	maxSwapIterations = 1_000_000

	// feeRateScale is the ppm -> rational scaling factor (spec §3/§6): stored
	// fee inputs are integers in parts-per-million, divided by 1e6.
	feeRateScale = 1_000_000

	// tickBase is 1.0001, the per-tick price ratio; the per-tick sqrtPrice
	// ratio b = sqrt(1.0001) (spec §4.1) is derived from it in math.go.
	tickBase = 1.0001

	// tickRoundingDecimals absorbs floating-point error near tick boundaries
	// (spec §4.1: "Rounding to 6 decimals absorbs floating-point error").
	tickRoundingDecimals = 6

	// MinTick and MaxTick bound valid ticks, matching the real protocol's range.
	MinTick = -887272
	MaxTick = 887272
)

// q96 is 2^96, used to convert between sqrtPriceX96 and sqrtPrice.
var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
