// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package counters implements the lock-free per-window counters that back
// the Collector: a count of events and the summed duration of those events,
// packed into a single 64-bit word so one atomic compare-and-swap updates
// both fields together. Without packing, a reader could observe a new count
// alongside a stale duration sum (or vice versa) because two independent
// atomics cannot be updated as one operation.
package counters

import "sync/atomic"

const (
	// countBits is the width of the count field (low bits). 2^40 events in
	// one collection window is unreachable in practice — exceeding it is
	// treated as a programming error, not a runtime condition to guard.
	countBits = 40
	countMask = (uint64(1) << countBits) - 1

	// durationBits is the width of the summed-duration-in-milliseconds
	// field (high bits). A window accumulating more than ~4.66 hours of
	// total duration saturates rather than wrapping.
	durationBits = 64 - countBits
	durationMask = (uint64(1) << durationBits) - 1
	maxDuration  = durationMask
)

// encode packs count and durationMs into a single word: low countBits bits
// hold count, the remaining high bits hold durationMs. durationMs is clamped
// to maxDuration by the caller before this is invoked.
func encode(count, durationMs uint64) uint64 {
	return (durationMs << countBits) | (count & countMask)
}

// decode unpacks a word into its count and duration-in-milliseconds parts.
func decode(word uint64) (count, durationMs uint64) {
	return word & countMask, (word >> countBits) & durationMask
}

// Pair is one (count, summed-duration-ms) cell, updated atomically by a
// compare-and-swap retry loop. The zero value is a valid, zeroed Pair.
type Pair struct {
	word atomic.Uint64
}

// Add increments the count by 1 and the duration sum by durationMs,
// saturating the duration sum at 2^24-1 rather than wrapping. Retries the
// compare-and-swap under contention until it succeeds.
func (p *Pair) Add(durationMs int64) {
	if durationMs < 0 {
		durationMs = 0
	}
	for {
		old := p.word.Load()
		count, sum := decode(old)

		count++ // an overflow here is an unreachable programming error per spec

		sum += uint64(durationMs)
		if sum > maxDuration {
			sum = maxDuration
		}

		if p.word.CompareAndSwap(old, encode(count, sum)) {
			return
		}
	}
}

// SnapshotAndReset atomically swaps the cell to zero and returns the
// pre-swap (count, summed-duration-ms) values.
func (p *Pair) SnapshotAndReset() (count, durationMs int64) {
	old := p.word.Swap(0)
	c, d := decode(old)
	return int64(c), int64(d)
}

// Snapshot returns the current (count, summed-duration-ms) values without
// resetting the cell.
func (p *Pair) Snapshot() (count, durationMs int64) {
	c, d := decode(p.word.Load())
	return int64(c), int64(d)
}
