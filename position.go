package clreplay

import "github.com/ethereum/go-ethereum/common"

// EventCoords identifies the on-chain coordinates of an event (spec §6):
// the tuple callers use to order and deduplicate records.
type EventCoords struct {
	LogIndex         uint64
	BlockNumber      uint64
	TransactionIndex uint64
	TransactionHash  common.Hash
}

// Position is one liquidity-provider position, keyed by tokenId (spec §3).
// start_* fields freeze at first mint (spec §9's resolved open question);
// increase_* accumulate every subsequent mint to the same tokenId; last_*
// is the current state.
type Position struct {
	TokenID   uint64
	Owner     common.Address
	TickLower int
	TickUpper int

	StartL    float64
	IncreaseL float64
	LastL     float64

	StartToken0Holdings    float64
	StartToken1Holdings    float64
	IncreaseToken0Holdings float64
	IncreaseToken1Holdings float64
	LastToken0Holdings     float64
	LastToken1Holdings     float64

	Token0FeesAccrued float64
	Token1FeesAccrued float64
	Token0Collected   float64
	Token1Collected   float64

	StartCoords EventCoords
	LastCoords  EventCoords
}

// IsActive reports whether the position currently carries liquidity
// (spec §3 invariant 2).
func (p *Position) IsActive() bool {
	return p.LastL > 0
}

// Clone returns a deep copy, matching the teacher's Clone convention
// (TokenPosition.Clone) used for snapshotting.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}

// snapshotKey is the dedup tuple from spec §4.6 — every mutable field that
// the replay driver compares when deduplicating the end-of-stream position
// frame, keeping the earliest occurrence.
type snapshotKey struct {
	lastL, startL                             float64
	tickLower, tickUpper                      int
	owner                                     common.Address
	startToken0Holdings, startToken1Holdings  float64
	lastToken0Holdings, lastToken1Holdings    float64
	token0FeesAccrued, token1FeesAccrued      float64
	token0Collected, token1Collected          float64
	startLogIndex, startBlockNumber           uint64
	startTransactionIndex                     uint64
	startTransactionHash                      common.Hash
	tokenID                                   uint64
}

func (p *Position) snapshotKey() snapshotKey {
	return snapshotKey{
		lastL:                  p.LastL,
		startL:                 p.StartL,
		tickLower:              p.TickLower,
		tickUpper:              p.TickUpper,
		owner:                  p.Owner,
		startToken0Holdings:    p.StartToken0Holdings,
		startToken1Holdings:    p.StartToken1Holdings,
		lastToken0Holdings:     p.LastToken0Holdings,
		lastToken1Holdings:     p.LastToken1Holdings,
		token0FeesAccrued:      p.Token0FeesAccrued,
		token1FeesAccrued:      p.Token1FeesAccrued,
		token0Collected:        p.Token0Collected,
		token1Collected:        p.Token1Collected,
		startLogIndex:          p.StartCoords.LogIndex,
		startBlockNumber:       p.StartCoords.BlockNumber,
		startTransactionIndex:  p.StartCoords.TransactionIndex,
		startTransactionHash:   p.StartCoords.TransactionHash,
		tokenID:                p.TokenID,
	}
}
