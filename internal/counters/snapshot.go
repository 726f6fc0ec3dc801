// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package counters

import "sync/atomic"

// Snapshot is the decoded, scalar form of one collection window's counters.
type Snapshot struct {
	Requests              int64
	UnsuccessfulRequests  int64
	RequestsDurationMs    int64
	Rdds                  int64
	UnsuccessfulRdds      int64
	RddsDurationMs        int64
	Exceptions            int64
}

// Counters accumulates request, dependency, and exception telemetry for one
// collection window. Every field is an independent atomic cell — there is
// no global lock, so two fields sampled together may reflect state a few
// microseconds apart, but each field's own count/duration pair is always
// internally consistent (see Pair).
type Counters struct {
	requests             Pair
	unsuccessfulRequests atomic.Int64
	rdds                 Pair
	unsuccessfulRdds     atomic.Int64
	exceptions           atomic.Int64
}

// RecordRequest truncates durationMs (already truncated by the caller's
// duration parser) and adds one request to the window, incrementing the
// unsuccessful-request count when success is false.
func (c *Counters) RecordRequest(durationMs int64, success bool) {
	c.requests.Add(durationMs)
	if !success {
		c.unsuccessfulRequests.Add(1)
	}
}

// RecordDependency mirrors RecordRequest for remote-dependency telemetry.
func (c *Counters) RecordDependency(durationMs int64, success bool) {
	c.rdds.Add(durationMs)
	if !success {
		c.unsuccessfulRdds.Add(1)
	}
}

// RecordException increments the exception count for the window.
func (c *Counters) RecordException() {
	c.exceptions.Add(1)
}

// SnapshotAndReset atomically swaps every cell to zero and returns the
// pre-swap values decoded into a Snapshot.
func (c *Counters) SnapshotAndReset() Snapshot {
	requests, requestsDurationMs := c.requests.SnapshotAndReset()
	rdds, rddsDurationMs := c.rdds.SnapshotAndReset()
	return Snapshot{
		Requests:             requests,
		UnsuccessfulRequests: c.unsuccessfulRequests.Swap(0),
		RequestsDurationMs:   requestsDurationMs,
		Rdds:                 rdds,
		UnsuccessfulRdds:     c.unsuccessfulRdds.Swap(0),
		RddsDurationMs:       rddsDurationMs,
		Exceptions:           c.exceptions.Swap(0),
	}
}

// Peek returns the current values without resetting any cell.
func (c *Counters) Peek() Snapshot {
	requests, requestsDurationMs := c.requests.Snapshot()
	rdds, rddsDurationMs := c.rdds.Snapshot()
	return Snapshot{
		Requests:             requests,
		UnsuccessfulRequests: c.unsuccessfulRequests.Load(),
		RequestsDurationMs:   requestsDurationMs,
		Rdds:                 rdds,
		UnsuccessfulRdds:     c.unsuccessfulRdds.Load(),
		RddsDurationMs:       rddsDurationMs,
		Exceptions:           c.exceptions.Load(),
	}
}
