package clreplay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// PositionStore is a keyed mapping from tokenId to Position, generalizing
// the teacher's TokenPositionManager (token_position_manager.go) — already
// keyed by tokenId — with the fuller field set spec §3's Position table
// requires. It owns the positions exclusively; a Pool never shares it
// (spec §5).
type PositionStore struct {
	positions map[uint64]*Position
	order     []uint64 // insertion order, for deterministic iteration
}

// NewPositionStore returns an empty position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[uint64]*Position)}
}

// Get returns the position for tokenId, if any.
func (s *PositionStore) Get(tokenID uint64) (*Position, bool) {
	p, ok := s.positions[tokenID]
	return p, ok
}

// All returns every position in first-seen order.
func (s *PositionStore) All() []*Position {
	out := make([]*Position, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.positions[id])
	}
	return out
}

// checkTicks validates a mint's tick range against the grid bounds the real
// protocol enforces (MinTick/MaxTick), matching the teacher's checkTicks.
func checkTicks(tickLower, tickUpper int) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("tickLower %d must be less than tickUpper %d: %w", tickLower, tickUpper, ErrInvalidTickRange)
	}
	if tickLower < MinTick {
		return fmt.Errorf("tickLower %d below MinTick %d: %w", tickLower, MinTick, ErrInvalidTickRange)
	}
	if tickUpper > MaxTick {
		return fmt.Errorf("tickUpper %d above MaxTick %d: %w", tickUpper, MaxTick, ErrInvalidTickRange)
	}
	return nil
}

// UpsertMint implements spec §4.2's upsert_mint: creating a position on an
// unseen tokenId (capturing start_* and the first event coordinates), or
// adding to an existing one's last_*/increase_* fields.
func (s *PositionStore) UpsertMint(tokenID uint64, tickLower, tickUpper int, amount, amount0, amount1 float64, owner common.Address, coords EventCoords) (*Position, error) {
	if err := checkTicks(tickLower, tickUpper); err != nil {
		return nil, err
	}

	if pos, ok := s.positions[tokenID]; ok {
		pos.LastL += amount
		pos.IncreaseL += amount
		pos.LastToken0Holdings += amount0
		pos.LastToken1Holdings += amount1
		pos.IncreaseToken0Holdings += amount0
		pos.IncreaseToken1Holdings += amount1
		pos.LastCoords = coords
		return pos, nil
	}

	pos := &Position{
		TokenID:             tokenID,
		Owner:               owner,
		TickLower:           tickLower,
		TickUpper:           tickUpper,
		StartL:              amount,
		LastL:               amount,
		StartToken0Holdings: amount0,
		StartToken1Holdings: amount1,
		LastToken0Holdings:  amount0,
		LastToken1Holdings:  amount1,
		StartCoords:         coords,
		LastCoords:          coords,
	}
	s.positions[tokenID] = pos
	s.order = append(s.order, tokenID)
	return pos, nil
}

// ApplyBurn implements spec §4.2's apply_burn: subtract amount from last_L,
// overwrite last_token{0,1}_holdings with the reported remaining reserves,
// and clamp a small negative residual to zero (spec §3/§9,
// burnNegativeLiquidityTolerance).
func (s *PositionStore) ApplyBurn(tokenID uint64, amount, amount0, amount1 float64, coords EventCoords) error {
	pos, ok := s.positions[tokenID]
	if !ok {
		return fmt.Errorf("burn tokenId %d: %w", tokenID, ErrBurnMintMismatch)
	}

	pos.LastL -= amount
	pos.LastToken0Holdings = amount0
	pos.LastToken1Holdings = amount1
	pos.LastCoords = coords

	if pos.LastL < 0 {
		if -pos.LastL <= burnNegativeLiquidityTolerance {
			logrus.Warnf("burn on tokenId %d left last_L=%g, clamping to 0", tokenID, pos.LastL)
			pos.LastL = 0
		} else {
			logrus.Warnf("burn on tokenId %d left last_L=%g beyond rounding tolerance, clamping to 0", tokenID, pos.LastL)
			pos.LastL = 0
		}
	}
	return nil
}

// ApplyCollect implements spec §4.2's apply_collect: add to token{0,1}_collected
// then recompute last_token{0,1}_holdings from the current sqrtPrice.
func (s *PositionStore) ApplyCollect(tokenID uint64, amount0, amount1, sqrtPrice float64, coords EventCoords) error {
	pos, ok := s.positions[tokenID]
	if !ok {
		logrus.Warnf("collect tokenId %d: %v", tokenID, ErrCollectMismatch)
		return nil
	}

	pos.Token0Collected += amount0
	pos.Token1Collected += amount1
	pos.LastToken0Holdings, pos.LastToken1Holdings = Amounts(
		sqrtPrice, SqrtPriceOf(pos.TickLower), SqrtPriceOf(pos.TickUpper), pos.LastL,
	)
	pos.LastCoords = coords
	return nil
}

// DistributeFees implements spec §4.2's distribute_fees: each position in
// ids gets last_L * feePerL added to its token{0,1}_fees_accrued.
func (s *PositionStore) DistributeFees(ids []uint64, feePerL float64, token0Side bool) {
	for _, id := range ids {
		pos, ok := s.positions[id]
		if !ok {
			continue
		}
		share := pos.LastL * feePerL
		if token0Side {
			pos.Token0FeesAccrued += share
		} else {
			pos.Token1FeesAccrued += share
		}
	}
}

// RefreshHoldings implements spec §4.2's refresh_holdings: recompute every
// position's last_token{0,1}_holdings from the current sqrtPrice.
func (s *PositionStore) RefreshHoldings(sqrtPrice float64) {
	for _, id := range s.order {
		pos := s.positions[id]
		pos.LastToken0Holdings, pos.LastToken1Holdings = Amounts(
			sqrtPrice, SqrtPriceOf(pos.TickLower), SqrtPriceOf(pos.TickUpper), pos.LastL,
		)
	}
}

// ActivePositionsInRange returns positions with last_L > 0 whose range
// covers tick, under the covering predicate for the given sweep direction
// (spec §4.5): tickLower < tick <= tickUpper for zeroForOne, tickLower <=
// tick < tickUpper for oneForZero.
func (s *PositionStore) ActivePositionsInRange(tick int, zeroForOne bool) []*Position {
	var out []*Position
	for _, id := range s.order {
		pos := s.positions[id]
		if pos.LastL <= 0 {
			continue
		}
		if zeroForOne {
			if pos.TickLower < tick && pos.TickUpper >= tick {
				out = append(out, pos)
			}
		} else {
			if pos.TickLower <= tick && pos.TickUpper > tick {
				out = append(out, pos)
			}
		}
	}
	return out
}

// ActiveLP returns every position with last_L > 0 (spec §4.2/§6).
func (s *PositionStore) ActiveLP() []*Position {
	var out []*Position
	for _, id := range s.order {
		if pos := s.positions[id]; pos.LastL > 0 {
			out = append(out, pos)
		}
	}
	return out
}

// InRangeLiquidity sums last_L over positions with tickLower <= tick <
// tickUpper (spec §3 invariant 3, §4.2).
func (s *PositionStore) InRangeLiquidity(tick int) float64 {
	var total float64
	for _, id := range s.order {
		pos := s.positions[id]
		if pos.TickLower <= tick && pos.TickUpper > tick {
			total += pos.LastL
		}
	}
	return total
}

// activeTickLowerMin/activeTickUpperMax support the pre-step tick
// realignment in spec §4.5 ("snap tick to the nearest active boundary").
func (s *PositionStore) activeTickLowerMin() (int, bool) {
	min := 0
	found := false
	for _, id := range s.order {
		pos := s.positions[id]
		if pos.LastL <= 0 {
			continue
		}
		if !found || pos.TickLower < min {
			min = pos.TickLower
			found = true
		}
	}
	return min, found
}

// positionsWithTickLower returns active positions whose tickLower equals
// tick exactly, used when the swap traversal's current tick sits on the
// lowest active tickLower boundary (spec §4.5).
func (s *PositionStore) positionsWithTickLower(tick int) []*Position {
	var out []*Position
	for _, id := range s.order {
		pos := s.positions[id]
		if pos.LastL > 0 && pos.TickLower == tick {
			out = append(out, pos)
		}
	}
	return out
}

// positionsWithTickUpper returns active positions whose tickUpper equals
// tick exactly, used when the swap traversal's current tick sits on the
// highest active tickUpper boundary (spec §4.5).
func (s *PositionStore) positionsWithTickUpper(tick int) []*Position {
	var out []*Position
	for _, id := range s.order {
		pos := s.positions[id]
		if pos.LastL > 0 && pos.TickUpper == tick {
			out = append(out, pos)
		}
	}
	return out
}

func (s *PositionStore) activeTickUpperMax() (int, bool) {
	max := 0
	found := false
	for _, id := range s.order {
		pos := s.positions[id]
		if pos.LastL <= 0 {
			continue
		}
		if !found || pos.TickUpper > max {
			max = pos.TickUpper
			found = true
		}
	}
	return max, found
}
