// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordinator drives the Ping↔Post↔ErrorBackoff state machine that
// decides, on a single background task, whether the agent is probing for a
// subscriber or actively streaming aggregated telemetry.
package coordinator

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/livemetrics-go/agent/collector"
	"github.com/livemetrics-go/agent/internal/clock"
	"github.com/livemetrics-go/agent/internal/wire"
	"github.com/livemetrics-go/agent/ping"
	"github.com/livemetrics-go/agent/send"
)

// State is one of the Coordinator's three phases.
type State int32

const (
	StatePing State = iota
	StatePost
	StateErrorBackoff
)

func (s State) String() string {
	switch s {
	case StatePing:
		return "PING"
	case StatePost:
		return "POST"
	case StateErrorBackoff:
		return "ERROR_BACKOFF"
	default:
		return "UNKNOWN"
	}
}

// Defaults for the Coordinator's cadence (spec.md §4.6). The three
// intervals are overridable on Config for tests; the consecutive-failure
// threshold is fixed.
const (
	DefaultPingInterval  = 5 * time.Second
	DefaultPostInterval  = 1 * time.Second
	DefaultErrorWait     = 10 * time.Second
	ConsecutiveFailureThreshold = 5
)

// Fetcher is the subset of *fetch.Fetcher the Coordinator depends on.
type Fetcher interface {
	Tick(endpoint, instrumentationKey string, id wire.RequestIdentity, now time.Time) bool
}

// PingSender is the subset of *ping.Sender the Coordinator depends on.
type PingSender interface {
	Ping(ctx context.Context, endpoint, instrumentationKey string, id wire.RequestIdentity, now time.Time) (ping.Result, error)
}

// SubscriptionSetter is the subset of *collector.Collector the Coordinator
// writes to: the sole cross-component signal the Collector needs.
type SubscriptionSetter interface {
	SetQuickPulseStatus(status collector.QuickPulseStatus)
}

// Config configures a Coordinator. LiveEndpoint and InstrumentationKey are
// called once per cycle so the host can rotate them; all other fields have
// sane defaults when zero.
type Config struct {
	LiveEndpoint        func() string
	InstrumentationKey  func() string
	MachineName         string
	InstanceName        string
	RoleName            string
	Version             string

	PingInterval  time.Duration
	PostInterval  time.Duration
	ErrorWait     time.Duration

	Clock clock.Clock
}

// Coordinator owns the PING/POST/ERROR_BACKOFF state machine. It is not
// re-entrant: Run must be called from exactly one goroutine.
type Coordinator struct {
	cfg        Config
	pingSender PingSender
	fetcher    Fetcher
	collector  SubscriptionSetter
	logger     *slog.Logger
	clk        clock.Clock

	streamID string

	state          atomic.Int32
	lastPostResult atomic.Pointer[send.Result]

	redirectEndpoint atomic.Pointer[string]
	configETag       atomic.Pointer[string]
}

// New creates a Coordinator. pingSender dispatches ping probes; fetcher
// drains the Collector into the send queue on each POST tick; collector
// receives subscription-state updates.
func New(cfg Config, pingSender PingSender, fetcher Fetcher, collector SubscriptionSetter, logger *slog.Logger) *Coordinator {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.PostInterval <= 0 {
		cfg.PostInterval = DefaultPostInterval
	}
	if cfg.ErrorWait <= 0 {
		cfg.ErrorWait = DefaultErrorWait
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	streamID := strings.ReplaceAll(uuid.New().String(), "-", "")

	c := &Coordinator{
		cfg:        cfg,
		pingSender: pingSender,
		fetcher:    fetcher,
		collector:  collector,
		logger:     logger,
		clk:        cfg.Clock,
		streamID:   streamID,
	}
	c.state.Store(int32(StatePing))
	return c
}

// PublishPostResult implements send.StatusPublisher. The Sender calls this
// from its own goroutine; the Coordinator only reads the latest value at
// its next POST-state check, so no additional synchronization is needed
// beyond the atomic pointer.
func (c *Coordinator) PublishPostResult(result send.Result) {
	r := result
	c.lastPostResult.Store(&r)
}

// State reports the Coordinator's current phase.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// StreamID returns the Coordinator's process-lifetime stream identifier.
func (c *Coordinator) StreamID() string {
	return c.streamID
}

// Run drives the state machine until ctx is cancelled. Each iteration
// sleeps for the current state's delay, then performs exactly one action,
// matching spec.md §4.6.
func (c *Coordinator) Run(ctx context.Context) {
	consecutiveFailures := 0
	nextDelay := c.cfg.PingInterval

	for {
		select {
		case <-c.clk.After(nextDelay):
		case <-ctx.Done():
			return
		}

		switch State(c.state.Load()) {
		case StatePing:
			nextDelay = c.runPing(ctx)
		case StatePost:
			nextDelay, consecutiveFailures = c.runPost(ctx, consecutiveFailures)
		case StateErrorBackoff:
			nextDelay = c.runPing(ctx)
		}
	}
}

func (c *Coordinator) identity() wire.RequestIdentity {
	id := wire.RequestIdentity{
		StreamID:     c.streamID,
		MachineName:  c.cfg.MachineName,
		InstanceName: c.cfg.InstanceName,
		RoleName:     c.cfg.RoleName,
		Version:      c.cfg.Version,
	}
	if etag := c.configETag.Load(); etag != nil {
		id.ConfigETag = *etag
	}
	return id
}

func (c *Coordinator) endpoint() string {
	if redirect := c.redirectEndpoint.Load(); redirect != nil && *redirect != "" {
		return *redirect
	}
	return c.cfg.LiveEndpoint()
}

func (c *Coordinator) runPing(ctx context.Context) time.Duration {
	endpoint := c.endpoint()
	ikey := c.cfg.InstrumentationKey()

	result, err := c.pingSender.Ping(ctx, endpoint, ikey, c.identity(), c.clk.Now())
	if err != nil {
		c.logger.Warn("ping failed", "error", err, "endpoint", endpoint)
	}

	c.applyRedirectAndETag(result.RedirectEndpoint, result.ConfigETag)

	if result.Subscribed {
		c.setSubscribed(true)
		c.state.Store(int32(StatePost))
		return c.cfg.PostInterval
	}

	c.setSubscribed(false)
	c.state.Store(int32(StatePing))
	if result.NextDelay > 0 {
		return result.NextDelay
	}
	return c.cfg.PingInterval
}

func (c *Coordinator) runPost(ctx context.Context, consecutiveFailures int) (time.Duration, int) {
	endpoint := c.endpoint()
	ikey := c.cfg.InstrumentationKey()

	c.fetcher.Tick(endpoint, ikey, c.identity(), c.clk.Now())

	resultPtr := c.lastPostResult.Swap(nil)
	if resultPtr == nil {
		// The Sender dispatches on its own goroutine so a slow network
		// can't stall this loop (spec.md §4.5) — nil here means no post
		// has completed since the last tick yet, not "completed and
		// unsubscribed". Keep posting; a future tick will see the result
		// once the Sender publishes it.
		return c.cfg.PostInterval, consecutiveFailures
	}
	result := *resultPtr

	if result.Subscribed {
		c.setSubscribed(true)
		c.state.Store(int32(StatePost))
		if result.NextDelay > 0 {
			return result.NextDelay, 0
		}
		return c.cfg.PostInterval, 0
	}

	c.setSubscribed(false)

	if !result.Failed {
		// A clean 2xx response telling us the service stopped watching —
		// an ordinary unsubscribe, not an error. Demote to PING and reset
		// the failure streak.
		c.state.Store(int32(StatePing))
		return c.cfg.PingInterval, 0
	}

	consecutiveFailures++
	if consecutiveFailures >= ConsecutiveFailureThreshold {
		c.logger.Warn("too many consecutive post failures, entering error backoff",
			"consecutive_failures", consecutiveFailures,
		)
		c.state.Store(int32(StateErrorBackoff))
		return c.cfg.ErrorWait, 0
	}

	c.state.Store(int32(StatePing))
	return c.cfg.PingInterval, consecutiveFailures
}

func (c *Coordinator) setSubscribed(subscribed bool) {
	if subscribed {
		c.collector.SetQuickPulseStatus(collector.QPIsOn)
	} else {
		c.collector.SetQuickPulseStatus(collector.QPIsOff)
	}
}

func (c *Coordinator) applyRedirectAndETag(redirect, etag string) {
	if redirect != "" {
		c.redirectEndpoint.Store(&redirect)
	}
	if etag != "" {
		c.configETag.Store(&etag)
	}
}
