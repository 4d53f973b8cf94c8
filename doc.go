// Package clreplay replays an ordered stream of concentrated-liquidity pool
// events (Initialize, Mint, Burn, Collect, Swap) and reconstructs pool price,
// in-range liquidity, per-position reserves, and per-position accrued swap
// fees well enough to attribute LP profit and loss.
//
// The package does not ingest events from a chain, decode logs, or persist
// state; it only replays an already-ordered sequence of decoded event
// structs supplied by the caller. Price and tick math is floating point —
// matching the on-chain fixed-point result to the last integer unit is not
// a goal.
package clreplay
