package clreplay

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayDriverRunsOrderedEvents(t *testing.T) {
	pool := NewPool(testConfig())
	driver := NewReplayDriver(pool)

	events := []Event{
		InitializeEvent{Coord: EventCoords{BlockNumber: 1, LogIndex: 0}, Price: floatPtr(1.0)},
		MintEvent{
			Coord: EventCoords{BlockNumber: 2, LogIndex: 0}, TokenID: 1,
			TickLower: -600, TickUpper: 600,
			Amount: decimal.NewFromInt(100000), Amount0: decimal.Zero, Amount1: decimal.Zero,
			Sender: addr("0x1"),
		},
		SwapEvent{
			Coord: EventCoords{BlockNumber: 3, LogIndex: 0},
			Amount0: decimal.NewFromInt(1000), Amount1: decimal.Zero,
			Sender: addr("0x2"), Recipient: addr("0x2"),
		},
		BurnEvent{
			Coord: EventCoords{BlockNumber: 4, LogIndex: 0}, TokenID: 1,
			TickLower: -600, TickUpper: 600,
			Amount: decimal.NewFromInt(50000), Amount0: decimal.Zero, Amount1: decimal.Zero,
			Owner: addr("0x1"),
		},
	}

	err := driver.Run(events)
	require.NoError(t, err)

	active := pool.ActiveLPPositions()
	require.Len(t, active, 1)
	assert.Equal(t, 50000.0, active[0].LastL)
}

func TestReplayDriverViewAllPoolEventsOrdering(t *testing.T) {
	pool := NewPool(testConfig())
	driver := NewReplayDriver(pool)

	events := []Event{
		InitializeEvent{Price: floatPtr(1.0)},
		MintEvent{
			Coord: EventCoords{BlockNumber: 5, LogIndex: 2}, TokenID: 1,
			TickLower: -600, TickUpper: 600,
			Amount: decimal.NewFromInt(1000), Amount0: decimal.Zero, Amount1: decimal.Zero,
			Sender: addr("0x1"),
		},
		MintEvent{
			Coord: EventCoords{BlockNumber: 5, LogIndex: 1}, TokenID: 2,
			TickLower: -600, TickUpper: 600,
			Amount: decimal.NewFromInt(1000), Amount0: decimal.Zero, Amount1: decimal.Zero,
			Sender: addr("0x1"),
		},
	}
	require.NoError(t, driver.Run(events))

	all := pool.ViewAllPoolEvents()
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].Coords().LogIndex)
	assert.Equal(t, uint64(2), all[1].Coords().LogIndex)
}

func TestReplayDriverPositionHistoryDedups(t *testing.T) {
	pool := NewPool(testConfig())
	driver := NewReplayDriver(pool)

	events := []Event{
		InitializeEvent{Price: floatPtr(1.0)},
		MintEvent{
			TokenID: 1, TickLower: -600, TickUpper: 600,
			Amount: decimal.NewFromInt(1000), Amount0: decimal.Zero, Amount1: decimal.Zero,
			Sender: addr("0x1"),
		},
		MintEvent{
			TokenID: 2, TickLower: -600, TickUpper: 600,
			Amount: decimal.NewFromInt(500), Amount0: decimal.Zero, Amount1: decimal.Zero,
			Sender: addr("0x2"),
		},
	}
	require.NoError(t, driver.Run(events))

	history := driver.PositionHistory()
	// Mint 1 snapshots token 1 alone; Mint 2 snapshots both token 1 (state
	// unchanged, so it dedups away) and token 2 (new state, kept) — two
	// distinct states survive, not three raw snapshots.
	assert.Len(t, history, 2)
}

func TestReplayDriverPropagatesErrors(t *testing.T) {
	pool := NewPool(testConfig())
	driver := NewReplayDriver(pool)

	events := []Event{
		BurnEvent{TokenID: 1, Amount: decimal.NewFromInt(1)},
	}
	err := driver.Run(events)
	assert.ErrorIs(t, err, ErrBurnMintMismatch)
}
