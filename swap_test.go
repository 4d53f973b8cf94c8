package clreplay

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapInvalidAmountsRejected(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	err := p.Swap(SwapEvent{Amount0: decimal.NewFromInt(-1), Amount1: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrSwapAmount)
}

func TestSwapTerminalStepWithinRange(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	require.NoError(t, p.Mint(MintEvent{
		TokenID: 1, TickLower: -600, TickUpper: 600,
		Amount: decimal.NewFromInt(100000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x1"),
	}))

	err := p.Swap(SwapEvent{
		Amount0: decimal.NewFromInt(1000),
		Amount1: decimal.Zero,
		Sender:  addr("0x2"),
	})
	require.NoError(t, err)

	assert.Greater(t, p.Tick(), -600)
	assert.Less(t, p.SqrtPrice(), 1.0) // zeroForOne pushes price down
	fee0, _ := p.TotalFees()
	assert.Greater(t, fee0, 0.0)

	pos, _ := p.Positions.Get(1)
	assert.Greater(t, pos.Token0FeesAccrued, 0.0)
}

func TestSwapCrossesOneBoundaryAcrossTwoPositions(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{SqrtPrice: floatPtr(SqrtPriceOf(-60))}))

	require.NoError(t, p.Mint(MintEvent{
		TokenID: 1, TickLower: -120, TickUpper: 0,
		Amount: decimal.NewFromInt(1000000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x1"),
	}))
	require.NoError(t, p.Mint(MintEvent{
		TokenID: 2, TickLower: -180, TickUpper: -120,
		Amount: decimal.NewFromInt(2000000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x2"),
	}))

	// Liquidity large enough that each sub-range's fee rounds to a nonzero
	// integer (about 9 in [-120, -60] and 5 in [-180, -120]).
	available := Amount0(SqrtPriceOf(-60), SqrtPriceOf(-120), 1000000)
	extra := Amount0(SqrtPriceOf(-120), SqrtPriceOf(-180), 2000000) * 0.25
	feeRate := p.Config.FeeRate().InexactFloat64()
	gross := (available + extra) / (1 - feeRate)

	err := p.Swap(SwapEvent{
		Amount0: decimal.NewFromFloat(gross),
		Amount1: decimal.Zero,
		Sender:  addr("0x3"),
	})
	require.NoError(t, err)

	assert.Less(t, p.Tick(), -120)
	assert.Greater(t, p.Tick(), -180)

	posA, _ := p.Positions.Get(1)
	posB, _ := p.Positions.Get(2)
	assert.Greater(t, posA.Token0FeesAccrued, 0.0)
	assert.Greater(t, posB.Token0FeesAccrued, 0.0)
}

func TestSwapOneForZero(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	require.NoError(t, p.Mint(MintEvent{
		TokenID: 1, TickLower: -600, TickUpper: 600,
		Amount: decimal.NewFromInt(100000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x1"),
	}))

	err := p.Swap(SwapEvent{
		Amount0: decimal.Zero,
		Amount1: decimal.NewFromInt(1000),
		Sender:  addr("0x2"),
	})
	require.NoError(t, err)
	assert.Greater(t, p.SqrtPrice(), 1.0)

	fee0, fee1 := p.TotalFees()
	assert.Equal(t, 0.0, fee0)
	assert.Greater(t, fee1, 0.0)
}

func TestSwapReconciliationWarnsWithinTolerance(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	require.NoError(t, p.Mint(MintEvent{
		TokenID: 1, TickLower: -600, TickUpper: 600,
		Amount: decimal.NewFromInt(100000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x1"),
	}))

	feeRate := p.Config.FeeRate().InexactFloat64()
	net := 1000.0 * (1 - feeRate)
	trueSqrtNext := NextSqrtPrice(1.0, 100000, net, true)
	trueTick := TickOf(trueSqrtNext)

	reportedTick := trueTick + 1 // one tick off, within the default tolerance band
	reportedX96 := SqrtPriceToSqrtPriceX96(SqrtPriceOf(reportedTick))
	err := p.Swap(SwapEvent{
		Amount0:      decimal.NewFromInt(1000),
		Amount1:      decimal.Zero,
		Sender:       addr("0x2"),
		SqrtPriceX96: reportedX96,
		Tick:         &reportedTick,
	})
	require.NoError(t, err)
	assert.Equal(t, reportedTick, p.Tick())
}

func TestSwapReconciliationFailsBeyondTolerance(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	require.NoError(t, p.Mint(MintEvent{
		TokenID: 1, TickLower: -600, TickUpper: 600,
		Amount: decimal.NewFromInt(100000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x1"),
	}))

	reportedTick := -500 // wildly off from the true computed tick
	reportedX96 := SqrtPriceToSqrtPriceX96(SqrtPriceOf(reportedTick))
	err := p.Swap(SwapEvent{
		Amount0:      decimal.NewFromInt(1000),
		Amount1:      decimal.Zero,
		Sender:       addr("0x2"),
		SqrtPriceX96: reportedX96,
		Tick:         &reportedTick,
	})
	assert.ErrorIs(t, err, ErrSwapMisaligned)
}

func TestSwapReconciliationZeroToleranceFailsOnAnyMismatch(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	require.NoError(t, p.Mint(MintEvent{
		TokenID: 1, TickLower: -600, TickUpper: 600,
		Amount: decimal.NewFromInt(100000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x1"),
	}))

	feeRate := p.Config.FeeRate().InexactFloat64()
	net := 1000.0 * (1 - feeRate)
	trueSqrtNext := NextSqrtPrice(1.0, 100000, net, true)
	trueTick := TickOf(trueSqrtNext)

	reportedTick := trueTick + 1 // one tick off — within the default tolerance band
	reportedX96 := SqrtPriceToSqrtPriceX96(SqrtPriceOf(reportedTick))
	err := p.Swap(SwapEvent{
		Amount0:      decimal.NewFromInt(1000),
		Amount1:      decimal.Zero,
		Sender:       addr("0x2"),
		SqrtPriceX96: reportedX96,
		Tick:         &reportedTick,
		Tolerance:    floatPtr(0), // explicit zero must NOT fall back to the default
	})
	assert.ErrorIs(t, err, ErrSwapMisaligned)
}

func TestSwapExhaustsActiveLiquidityGracefully(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	// No Mint: the pool has zero active liquidity, so the very first
	// findActive call finds activeTickLowerMin absent. The traversal must
	// end with a warning and a clean commit, not ErrSwapNonTermination.
	err := p.Swap(SwapEvent{
		Amount0: decimal.NewFromInt(1000),
		Amount1: decimal.Zero,
		Sender:  addr("0x2"),
	})
	require.NoError(t, err)
	assert.NotErrorIs(t, err, ErrSwapNonTermination)
	assert.Equal(t, 0.0, p.Liquidity())
}

func TestSwapPassErrorTrustsReport(t *testing.T) {
	p := NewPool(testConfig())
	require.NoError(t, p.Initialize(InitializeEvent{Price: floatPtr(1.0)}))
	require.NoError(t, p.Mint(MintEvent{
		TokenID: 1, TickLower: -600, TickUpper: 600,
		Amount: decimal.NewFromInt(100000), Amount0: decimal.Zero, Amount1: decimal.Zero,
		Sender: addr("0x1"),
	}))

	reportedTick := -500
	reportedX96 := SqrtPriceToSqrtPriceX96(SqrtPriceOf(reportedTick))
	err := p.Swap(SwapEvent{
		Amount0:      decimal.NewFromInt(1000),
		Amount1:      decimal.Zero,
		Sender:       addr("0x2"),
		SqrtPriceX96: reportedX96,
		Tick:         &reportedTick,
		PassError:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, reportedTick, p.Tick())
}
