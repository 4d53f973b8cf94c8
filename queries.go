package clreplay

import (
	"fmt"
	"sort"
)

// ActiveLPPositions implements spec §4.6's get_active_LP_positions: every
// position currently carrying liquidity.
func (p *Pool) ActiveLPPositions() []*Position {
	return p.Positions.ActiveLP()
}

// Position returns the position for tokenId, or ErrPositionNotFound if the
// pool has never seen a Mint for it.
func (p *Pool) Position(tokenID uint64) (*Position, error) {
	pos, ok := p.Positions.Get(tokenID)
	if !ok {
		return nil, fmt.Errorf("tokenId %d: %w", tokenID, ErrPositionNotFound)
	}
	return pos, nil
}

// ViewAllPoolEvents implements spec §4.6's view_all_pool_events: every
// Mint/Burn/Collect/Swap event recorded against the pool, ordered by
// (blockNumber, logIndex). Initialize is excluded, matching the original's
// event log (which never folds Initialize into this view).
func (p *Pool) ViewAllPoolEvents() []Event {
	events := make([]Event, 0, len(p.mintLog)+len(p.burnLog)+len(p.collectLog)+len(p.swapLog))
	for _, e := range p.mintLog {
		events = append(events, e)
	}
	for _, e := range p.burnLog {
		events = append(events, e)
	}
	for _, e := range p.collectLog {
		events = append(events, e)
	}
	for _, e := range p.swapLog {
		events = append(events, e)
	}
	sort.SliceStable(events, func(i, j int) bool {
		ci, cj := events[i].Coords(), events[j].Coords()
		if ci.BlockNumber != cj.BlockNumber {
			return ci.BlockNumber < cj.BlockNumber
		}
		return ci.LogIndex < cj.LogIndex
	})
	return events
}

// LiquidityBucket is one row of a liquidity distribution snapshot.
type LiquidityBucket struct {
	TickLower int
	TickUpper int
	Liquidity float64
}

// LiquidityDistribution supplements the original's unimplemented
// get_liquidity_distribution stub: it returns the active liquidity grouped
// by (tickLower, tickUpper) range, sorted by tickLower then tickUpper, the
// shape a caller plotting a liquidity-depth chart needs (spec §5).
func (p *Pool) LiquidityDistribution() []LiquidityBucket {
	byRange := make(map[[2]int]float64)
	for _, pos := range p.Positions.ActiveLP() {
		byRange[[2]int{pos.TickLower, pos.TickUpper}] += pos.LastL
	}
	out := make([]LiquidityBucket, 0, len(byRange))
	for rng, liquidity := range byRange {
		out = append(out, LiquidityBucket{TickLower: rng[0], TickUpper: rng[1], Liquidity: liquidity})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TickLower != out[j].TickLower {
			return out[i].TickLower < out[j].TickLower
		}
		return out[i].TickUpper < out[j].TickUpper
	})
	return out
}
