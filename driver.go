package clreplay

// ReplayDriver feeds an ordered event stream into a Pool, dispatching each
// event by kind and capturing a position snapshot afterward, generalizing
// cl_cpmm.py's replay_from_logs_for_LP_profit from a single DataFrame loop
// into a typed event sequence.
type ReplayDriver struct {
	Pool      *Pool
	snapshots []*Position
}

// NewReplayDriver wraps an already-constructed pool.
func NewReplayDriver(pool *Pool) *ReplayDriver {
	return &ReplayDriver{Pool: pool}
}

// Run dispatches every event in order, returning the first error
// encountered (spec §4.6). PassError on a SwapEvent is honored as supplied
// by the caller; it is not forced on here.
func (d *ReplayDriver) Run(events []Event) error {
	for _, evt := range events {
		if err := d.apply(evt); err != nil {
			return err
		}
		d.snapshot()
	}
	return nil
}

func (d *ReplayDriver) apply(evt Event) error {
	switch e := evt.(type) {
	case InitializeEvent:
		return d.Pool.Initialize(e)
	case MintEvent:
		return d.Pool.Mint(e)
	case BurnEvent:
		return d.Pool.Burn(e)
	case CollectEvent:
		return d.Pool.Collect(e)
	case SwapEvent:
		return d.Pool.Swap(e)
	default:
		return nil
	}
}

func (d *ReplayDriver) snapshot() {
	for _, pos := range d.Pool.Positions.All() {
		d.snapshots = append(d.snapshots, pos.Clone())
	}
}

// PositionHistory implements spec §4.6's replay_from_logs_for_LP_profit
// return value: every distinct position state observed across the replay,
// deduplicated by content (keeping the earliest occurrence) rather than by
// tokenId — the same snapshot can recur across several events when a
// position sits untouched while other events are replayed.
func (d *ReplayDriver) PositionHistory() []*Position {
	seen := make(map[snapshotKey]bool, len(d.snapshots))
	out := make([]*Position, 0, len(d.snapshots))
	for _, pos := range d.snapshots {
		key := pos.snapshotKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, pos)
	}
	return out
}
