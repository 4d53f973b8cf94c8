package clreplay

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// swapTraversal holds the mutable state of one swap's tick-by-tick walk,
// replacing the original's nested while/if/continue (cl_cpmm.py's Swap)
// with four explicit states, per the redesign this replay engine adopts:
// findActive (locate the positions covering the current tick, realigning
// the tick to the nearest active boundary when none do), checkReserves
// (decide whether this sub-range's reserves can absorb the remaining
// input), crossBoundary (partially consume the sub-range and step to the
// next one), and commitState (reconcile and commit the final pool state).
type swapTraversal struct {
	pool       *Pool
	zeroForOne bool

	tick      int
	tickLower int // only meaningful for zeroForOne
	tickUpper int // only meaningful for !zeroForOne

	sqrtPrice  float64
	sqrtBound  float64 // sqrtPriceA for zeroForOne, sqrtPriceB for oneForZero

	remaining       float64 // amount0_a or amount1_a, whichever is the input side
	feeRate         float64
	feeTotal        float64
	activePositions []*Position

	// results, set by the terminal branch of checkReserves or by exhaustLiquidity
	sqrtPriceNext float64
	tickNext      int
	finalL        float64
	done          bool
}

// Swap implements spec §4.5: net the pool fee (Config.FeeRate) out of the gross input,
// walk active positions from the pool's current tick toward the direction
// of trade, attributing a pro-rata fee share to every position traversed,
// then reconcile against the caller-reported (sqrtPriceX96, tick,
// liquidity) triplet.
func (p *Pool) Swap(evt SwapEvent) error {
	amount0, _ := evt.Amount0.Float64()
	amount1, _ := evt.Amount1.Float64()

	var zeroForOne bool
	var fee float64
	var netAmount float64
	switch {
	case amount0 > 0 && amount1 <= 0:
		zeroForOne = true
		fee = amount0 * p.Config.FeeRate().InexactFloat64()
		netAmount = amount0 - fee
		p.totalFee0 += fee
	case amount1 > 0 && amount0 <= 0:
		zeroForOne = false
		fee = amount1 * p.Config.FeeRate().InexactFloat64()
		netAmount = amount1 - fee
		p.totalFee1 += fee
	default:
		return fmt.Errorf("swap amounts (%g, %g): %w", amount0, amount1, ErrSwapAmount)
	}

	t := newSwapTraversal(p, zeroForOne, netAmount)

	if logrus.GetLevel() >= logrus.DebugLevel {
		logrus.Debugf("Initiating swap: zeroForOne=%t, netAmount=%g, currentTick=%d, currentSqrtPrice=%g",
			zeroForOne, netAmount, p.tick, p.sqrtPrice)
	}

	iterations := 0
	for !t.done {
		iterations++
		if iterations > maxSwapIterations {
			return fmt.Errorf("swap traversal exceeded %d iterations: %w", maxSwapIterations, ErrSwapNonTermination)
		}
		advance, err := t.findActive()
		if err != nil {
			return err
		}
		if !advance {
			continue
		}
		t.checkReserves()
	}

	if err := t.commitState(evt); err != nil {
		return err
	}
	p.swapLog = append(p.swapLog, evt)
	return nil
}

func newSwapTraversal(p *Pool, zeroForOne bool, remaining float64) *swapTraversal {
	tick := p.tick
	if lo, ok := p.Positions.activeTickLowerMin(); ok && lo > tick {
		tick = lo
	}
	if hi, ok := p.Positions.activeTickUpperMax(); ok && hi < tick {
		tick = hi
	}
	_, tickLower, tickUpper := TickRange(tick, p.Config.TickSpacing)

	t := &swapTraversal{
		pool:       p,
		zeroForOne: zeroForOne,
		tick:       tick,
		tickLower:  tickLower,
		tickUpper:  tickUpper,
		sqrtPrice:  p.sqrtPrice,
		remaining:  remaining,
		feeRate:    p.Config.FeeRate().InexactFloat64(),
	}
	if zeroForOne {
		t.sqrtBound = SqrtPriceOf(tickLower)
	} else {
		t.sqrtBound = SqrtPriceOf(tickUpper)
	}
	return t
}

// findActive locates the positions covering the traversal's current tick
// under the direction-appropriate covering predicate, realigning the tick
// to the nearest active boundary when nothing covers it (spec §4.5's
// "snap to the nearest active boundary" rule). Returns advance=false when
// it only repositioned the tick and the caller should retry findActive
// without calling checkReserves.
func (t *swapTraversal) findActive() (advance bool, err error) {
	if t.remaining <= 0 {
		t.done = true
		return false, nil
	}

	active := t.pool.Positions.ActivePositionsInRange(t.tick, t.zeroForOne)
	if len(active) > 0 {
		t.activePositions = active
		return true, nil
	}

	if t.zeroForOne {
		minLower, ok := t.pool.Positions.activeTickLowerMin()
		if !ok {
			t.exhaustLiquidity()
			return false, nil
		}
		switch {
		case t.tick == minLower:
			t.activePositions = t.pool.Positions.positionsWithTickLower(t.tick)
			return true, nil
		case t.tick < minLower:
			t.tick = minLower
			t.tickLower = t.tick - t.pool.Config.TickSpacing
		default:
			t.tick = t.tickLower
			t.tickLower = t.tick - t.pool.Config.TickSpacing
		}
		t.sqrtPrice = SqrtPriceOf(t.tick)
		t.sqrtBound = SqrtPriceOf(t.tickLower)
		return false, nil
	}

	maxUpper, ok := t.pool.Positions.activeTickUpperMax()
	if !ok {
		t.exhaustLiquidity()
		return false, nil
	}
	switch {
	case t.tick == maxUpper:
		t.activePositions = t.pool.Positions.positionsWithTickUpper(t.tick)
		return true, nil
	case t.tick > maxUpper:
		t.tick = maxUpper
		t.tickUpper = t.tick + t.pool.Config.TickSpacing
	default:
		t.tick = t.tickUpper
		t.tickUpper = t.tick + t.pool.Config.TickSpacing
	}
	t.sqrtPrice = SqrtPriceOf(t.tick)
	t.sqrtBound = SqrtPriceOf(t.tickUpper)
	return false, nil
}

// exhaustLiquidity implements spec §4.5 step 3 ("if L <= 0, abort this swap
// with a warning"): no active liquidity remains in the direction of trade, so
// the traversal ends early with whatever price/tick it last reached and
// zero liquidity, leaving t.remaining undrained. This is a warning, not
// ErrSwapNonTermination — that sentinel is reserved for the
// maxSwapIterations ceiling in Swap.
func (t *swapTraversal) exhaustLiquidity() {
	logrus.Warnf("swap: no active liquidity remains in the direction of trade at tick=%d, %g of the input left unfilled", t.tick, t.remaining)
	t.sqrtPriceNext = t.sqrtPrice
	t.tickNext = t.tick
	t.finalL = 0
	t.done = true
}

// checkReserves decides whether the active sub-range's reserves can absorb
// the remaining input (spec §4.5): if so it computes the terminal price and
// attributes the final fee share, ending the traversal; otherwise it drains
// the sub-range fully, attributes its fee share, and calls crossBoundary.
func (t *swapTraversal) checkReserves() {
	ids := make([]uint64, len(t.activePositions))
	var L float64
	for i, pos := range t.activePositions {
		ids[i] = pos.TokenID
		L += pos.LastL
	}

	if t.zeroForOne {
		available := Amount0(t.sqrtPrice, t.sqrtBound, L)
		if available > t.remaining {
			sqrtPriceNext := NextSqrtPrice(t.sqrtPrice, L, t.remaining, true)
			fee := feeOnNetAmount(t.remaining, t.feeRate)
			t.feeTotal += fee
			t.pool.Positions.DistributeFees(ids, fee/L, true)
			t.sqrtPriceNext = sqrtPriceNext
			t.tickNext = TickOf(sqrtPriceNext)
			t.finalL = L
			t.done = true
			if logrus.GetLevel() >= logrus.TraceLevel {
				logrus.Tracef("Swap step: tick=%d, price=%g, amountIn=%g, feeAmount=%g, liquidityRemaining=%g",
					t.tickNext, sqrtPriceNext, t.remaining, fee, L)
			}
			return
		}
		amount0Diff := Amount0(t.sqrtPrice, t.sqrtBound, L)
		amount1Diff := Amount1(t.sqrtPrice, t.sqrtBound, L)
		fee := feeOnNetAmount(amount0Diff, t.feeRate)
		t.feeTotal += fee
		t.pool.Positions.DistributeFees(ids, fee/L, true)
		t.remaining -= amount0Diff
		_ = amount1Diff
		if logrus.GetLevel() >= logrus.TraceLevel {
			logrus.Tracef("Swap step: tick=%d, price=%g, amountIn=%g, feeAmount=%g, liquidityRemaining=%g",
				t.tick, t.sqrtPrice, t.remaining, fee, L)
		}
		t.crossBoundary()
		return
	}

	available := Amount1(t.sqrtPrice, t.sqrtBound, L)
	if available > t.remaining {
		sqrtPriceNext := NextSqrtPrice(t.sqrtPrice, L, t.remaining, false)
		fee := feeOnNetAmount(t.remaining, t.feeRate)
		t.feeTotal += fee
		t.pool.Positions.DistributeFees(ids, fee/L, false)
		t.sqrtPriceNext = sqrtPriceNext
		t.tickNext = TickOf(sqrtPriceNext)
		t.finalL = L
		t.done = true
		if logrus.GetLevel() >= logrus.TraceLevel {
			logrus.Tracef("Swap step: tick=%d, price=%g, amountIn=%g, feeAmount=%g, liquidityRemaining=%g",
				t.tickNext, sqrtPriceNext, t.remaining, fee, L)
		}
		return
	}
	amount0Diff := Amount0(t.sqrtPrice, t.sqrtBound, L)
	amount1Diff := Amount1(t.sqrtPrice, t.sqrtBound, L)
	fee := feeOnNetAmount(amount1Diff, t.feeRate)
	t.feeTotal += fee
	t.pool.Positions.DistributeFees(ids, fee/L, false)
	t.remaining -= amount1Diff
	_ = amount0Diff
	if logrus.GetLevel() >= logrus.TraceLevel {
		logrus.Tracef("Swap step: tick=%d, price=%g, amountIn=%g, feeAmount=%g, liquidityRemaining=%g",
			t.tick, t.sqrtPrice, t.remaining, fee, L)
	}
	t.crossBoundary()
}

// crossBoundary steps the traversal to the next tick-spacing sub-range in
// the direction of trade (spec §4.5).
func (t *swapTraversal) crossBoundary() {
	if t.zeroForOne {
		t.tick = t.tickLower
		t.tickLower = t.tick - t.pool.Config.TickSpacing
		t.sqrtPrice = SqrtPriceOf(t.tick)
		t.sqrtBound = SqrtPriceOf(t.tickLower)
		return
	}
	t.tick = t.tickUpper
	t.tickUpper = t.tick + t.pool.Config.TickSpacing
	t.sqrtPrice = SqrtPriceOf(t.tick)
	t.sqrtBound = SqrtPriceOf(t.tickUpper)
}

// feeOnNetAmount recovers the fee owed on a sub-range's net (post-fee)
// amount, rounding to the nearest integer unit as the original replay
// engine does to absorb floating point residue near tick bounds (spec
// §4.4): fee = round(net/(1-feeRate) - net).
func feeOnNetAmount(net, feeRate float64) float64 {
	return math.Round(net/(1-feeRate) - net)
}

// commitState reconciles the traversal's computed terminal state against
// whatever the caller reported (spec §4.5): no report commits the computed
// state outright; PassError trusts the report unconditionally; otherwise
// a mismatch beyond tolerance is a fatal ErrSwapMisaligned unless WarnAll
// downgrades every mismatch to a logged warning.
func (t *swapTraversal) commitState(evt SwapEvent) error {
	p := t.pool

	switch {
	case evt.SqrtPriceX96 == nil && evt.Tick == nil && evt.Liquidity == nil:
		p.sqrtPrice = t.sqrtPriceNext
		p.sqrtPriceX96 = SqrtPriceToSqrtPriceX96(t.sqrtPriceNext)
		p.tick = t.tickNext
		p.liquidity = t.finalL

	case evt.PassError:
		if evt.SqrtPriceX96 != nil {
			p.sqrtPriceX96 = evt.SqrtPriceX96
			p.sqrtPrice = SqrtPriceX96ToSqrtPrice(evt.SqrtPriceX96)
		} else {
			p.sqrtPrice = t.sqrtPriceNext
			p.sqrtPriceX96 = SqrtPriceToSqrtPriceX96(t.sqrtPriceNext)
		}
		if evt.Tick != nil {
			p.tick = *evt.Tick
		} else {
			p.tick = t.tickNext
		}
		p.liquidity = p.Positions.InRangeLiquidity(p.tick)

	default:
		exactTickAtSqrtPriceX96(evt.SqrtPriceX96, t.tickNext)

		if evt.Tick != nil && *evt.Tick != t.tickNext {
			mismatch := fmt.Errorf("swap tick reported=%d computed=%d: %w", *evt.Tick, t.tickNext, ErrSwapMisaligned)
			if evt.WarnAll {
				logrus.Warn(mismatch)
			} else if diff := absInt(*evt.Tick - t.tickNext); float64(diff) > math.Ceil(evt.tolerance()*100) {
				return mismatch
			} else {
				logrus.Warn(mismatch)
			}
		} else if evt.Liquidity != nil {
			reported, _ := evt.Liquidity.Float64()
			if reported != t.finalL {
				mismatch := fmt.Errorf("swap liquidity reported=%g computed=%g: %w", reported, t.finalL, ErrSwapMisaligned)
				if evt.WarnAll {
					logrus.Warn(mismatch)
				} else if relDiff(reported, t.finalL) > evt.tolerance() {
					return mismatch
				} else {
					logrus.Warn(mismatch)
				}
			}
		}

		if evt.SqrtPriceX96 != nil {
			p.sqrtPriceX96 = evt.SqrtPriceX96
			p.sqrtPrice = SqrtPriceX96ToSqrtPrice(evt.SqrtPriceX96)
		} else {
			p.sqrtPrice = t.sqrtPriceNext
			p.sqrtPriceX96 = SqrtPriceToSqrtPriceX96(t.sqrtPriceNext)
		}
		if evt.Tick != nil {
			p.tick = *evt.Tick
		} else {
			p.tick = t.tickNext
		}
		p.liquidity = t.finalL
	}

	p.Positions.RefreshHoldings(p.sqrtPrice)
	return nil
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func relDiff(a, b float64) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(a-b) / math.Abs(b)
}
