// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable, monotonic time source for the
// live-metrics pipeline. The Coordinator accepts a Clock instead of calling
// the time package directly so its tick cadence can be driven
// deterministically in tests, and passes the Clock's Now to the Data
// Fetcher. The Data Sender does not take a Clock: its retry backoff waits
// on the time package directly.
package clock

import "time"

// Clock abstracts time operations. Production code uses Real(); tests use
// Fake() to advance time under explicit control instead of sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d elapses. If d <= 0, the channel fires immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that delivers ticks on its C channel at
	// the given interval. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. The C channel has capacity 1, matching
// time.Ticker — a consumer that falls behind misses ticks rather than
// queuing them.
type Ticker struct {
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop releases the ticker. No further ticks arrive on C after Stop
// returns; Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset restarts the tick cycle at a new interval.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop, resetFunc: ticker.Reset}
}
