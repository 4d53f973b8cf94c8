package clreplay

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventKind tags the variant of an Event, replacing the teacher's four
// heterogeneous per-kind tables with a single tagged-variant sequence
// (spec §9's redesign note).
type EventKind string

const (
	KindInitialize EventKind = "Initialize"
	KindMint       EventKind = "Mint"
	KindBurn       EventKind = "Burn"
	KindCollect    EventKind = "Collect"
	KindSwap       EventKind = "Swap"
)

// Event is implemented by every event kind the replay driver dispatches
// (spec §6/§9).
type Event interface {
	Kind() EventKind
	Coords() EventCoords
}

// InitializeEvent carries the fields spec §6's table requires for
// Initialize: sqrtPriceX96 and tick. SqrtPrice/Price are accepted as
// alternate inputs per spec §4.3 (at least one of the three is required).
type InitializeEvent struct {
	Coord        EventCoords
	SqrtPrice    *float64
	SqrtPriceX96 *big.Int
	Price        *float64
	Tick         *int
	// Warn downgrades a TickPriceMisalignment to a logged warning instead
	// of a fatal error (spec §4.3/§7).
	Warn bool
}

func (e InitializeEvent) Kind() EventKind    { return KindInitialize }
func (e InitializeEvent) Coords() EventCoords { return e.Coord }

// MintEvent carries the fields spec §6's table requires for Mint.
type MintEvent struct {
	Coord     EventCoords
	TickLower int
	TickUpper int
	Amount    decimal.Decimal
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	Sender    common.Address
	TokenID   uint64
}

func (e MintEvent) Kind() EventKind    { return KindMint }
func (e MintEvent) Coords() EventCoords { return e.Coord }

// BurnEvent carries the fields spec §6's table requires for Burn.
type BurnEvent struct {
	Coord     EventCoords
	TickLower int
	TickUpper int
	Amount    decimal.Decimal
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	Owner     common.Address
	TokenID   uint64
}

func (e BurnEvent) Kind() EventKind    { return KindBurn }
func (e BurnEvent) Coords() EventCoords { return e.Coord }

// CollectEvent carries the fields spec §6's table requires for Collect.
type CollectEvent struct {
	Coord     EventCoords
	TickLower int
	TickUpper int
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	Recipient common.Address
	TokenID   uint64
}

func (e CollectEvent) Kind() EventKind    { return KindCollect }
func (e CollectEvent) Coords() EventCoords { return e.Coord }

// SwapEvent carries the fields spec §6's table requires for Swap, plus the
// per-call swap knobs from spec §6 ("Configuration options").
type SwapEvent struct {
	Coord     EventCoords
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	Sender    common.Address
	Recipient common.Address

	// Reconciliation triplet reported by the external source; any/all may
	// be nil, in which case the engine commits its own computed state
	// (spec §4.5).
	SqrtPriceX96 *big.Int
	Tick         *int
	Liquidity    *decimal.Decimal

	// Tolerance is the fractional tolerance window for swap reconciliation
	// (spec §6, default 0.025). Nil means "use the default"; an explicit
	// 0 disables the window entirely (any mismatch is fatal).
	Tolerance *float64
	// WarnAll downgrades every reconciliation mismatch to a warning.
	WarnAll bool
	// PassError trusts the externally reported state unconditionally.
	PassError bool
}

func (e SwapEvent) Kind() EventKind    { return KindSwap }
func (e SwapEvent) Coords() EventCoords { return e.Coord }

func (e SwapEvent) tolerance() float64 {
	if e.Tolerance == nil {
		return defaultTolerance
	}
	return *e.Tolerance
}
