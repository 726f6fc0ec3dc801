// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent wires the Collector, Ping Sender, Data Fetcher, Data
// Sender, and Coordinator into the single `Add` entry point a host
// application embeds.
package agent

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livemetrics-go/agent/collector"
	"github.com/livemetrics-go/agent/coordinator"
	"github.com/livemetrics-go/agent/fetch"
	"github.com/livemetrics-go/agent/internal/clock"
	"github.com/livemetrics-go/agent/ping"
	"github.com/livemetrics-go/agent/send"
)

// Config configures an Agent. LiveEndpointSupplier and
// InstrumentationKeySupplier are the only required fields; a missing one is
// a ConfigError (spec.md §7) that leaves the Agent permanently disabled
// rather than failing construction — Add then silently discards everything,
// and Start returns immediately without spawning any background work.
type Config struct {
	LiveEndpointSupplier       func() string
	InstrumentationKeySupplier func() string

	RoleName     string
	MachineName  string // defaults to os.Hostname()
	InstanceName string // defaults to MachineName
	Version      string

	PingInterval       time.Duration
	PostInterval       time.Duration
	ErrorBackoffWait   time.Duration
	SendQueueCapacity  int

	// NonNormalizedCPU opts into the literal, non-core-averaged CPU
	// percentage definition (spec.md §9's back-compat knob).
	NonNormalizedCPU bool

	Logger *slog.Logger
	Clock  clock.Clock
}

// Agent is the embeddable live-metrics agent. The zero value is not usable;
// construct with New.
type Agent struct {
	cfg       Config
	logger    *slog.Logger
	collector *collector.Collector
	queue     *send.Queue
	sender    *send.Sender
	coord     *coordinator.Coordinator

	startedAt time.Time
	enabled   bool
	shipped   atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an Agent. It never fails: a missing required supplier
// produces a permanently disabled Agent instead of a construction error,
// matching spec.md §7's ConfigError semantics.
func New(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled := cfg.LiveEndpointSupplier != nil && cfg.InstrumentationKeySupplier != nil
	if !enabled {
		logger.Warn("agent: missing LiveEndpointSupplier or InstrumentationKeySupplier, agent will not run")
	}

	if cfg.MachineName == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.MachineName = host
		}
	}
	if cfg.InstanceName == "" {
		cfg.InstanceName = cfg.MachineName
	}
	if cfg.SendQueueCapacity <= 0 {
		cfg.SendQueueCapacity = send.QueueCapacity
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	sampler := collector.NewHostSampler(cfg.NonNormalizedCPU)
	coll := collector.New(sampler, logger)
	if enabled {
		coll.Enable(cfg.InstrumentationKeySupplier)
	}

	queue := send.NewQueue(cfg.SendQueueCapacity)
	pingSender := ping.New(nil, logger)
	fetcher := fetch.New(coll, queue, logger)

	a := &Agent{
		cfg:       cfg,
		logger:    logger,
		collector: coll,
		queue:     queue,
		enabled:   enabled,
	}

	a.sender = send.New(queue, nil, a, logger)

	coordCfg := coordinator.Config{
		LiveEndpoint:       cfg.LiveEndpointSupplier,
		InstrumentationKey: cfg.InstrumentationKeySupplier,
		MachineName:        cfg.MachineName,
		InstanceName:       cfg.InstanceName,
		RoleName:           cfg.RoleName,
		Version:            cfg.Version,
		PingInterval:       cfg.PingInterval,
		PostInterval:       cfg.PostInterval,
		ErrorWait:          cfg.ErrorBackoffWait,
		Clock:              clk,
	}
	a.coord = coordinator.New(coordCfg, pingSender, fetcher, coll, logger)

	return a
}

// PublishPostResult forwards the Sender's result to the Coordinator. Agent
// implements send.StatusPublisher itself so it can intercept the shipped
// count for Status() without the Coordinator needing to know about it.
func (a *Agent) PublishPostResult(result send.Result) {
	if !result.Failed {
		a.shipped.Add(1)
	}
	a.coord.PublishPostResult(result)
}

// Add is the single ingestion point the host application calls for every
// request, dependency, and exception it wants reflected in the live view.
// It never blocks and never panics.
func (a *Agent) Add(item collector.TelemetryItem) {
	a.collector.Add(item)
}

// Start launches the Coordinator and Data Sender background tasks. It
// returns immediately; both run until ctx is cancelled or Stop is called.
// Calling Start on a disabled Agent (see New) is a no-op.
func (a *Agent) Start(ctx context.Context) {
	if !a.enabled {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.startedAt = time.Now()
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); a.sender.Run(runCtx) }()
		go func() { defer wg.Done(); a.coord.Run(runCtx) }()
		wg.Wait()
	}()
}

// Stop cancels the background tasks started by Start and waits for them to
// return. Safe to call on an Agent that was never started.
func (a *Agent) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
}

// Status is a pure-addition introspection operation (not part of the core
// protocol): uptime, current subscription state, queue depth, and
// shipped/dropped counters, mirroring the teacher's relay status action.
type Status struct {
	Enabled          bool
	UptimeSeconds    float64
	CoordinatorState string
	QueueDepth       int
	QueueDropped     int64
	BatchesShipped   int64
}

// Status reports the Agent's current health for host-side liveness checks.
func (a *Agent) Status() Status {
	var uptime float64
	if !a.startedAt.IsZero() {
		uptime = time.Since(a.startedAt).Seconds()
	}
	return Status{
		Enabled:          a.enabled,
		UptimeSeconds:    uptime,
		CoordinatorState: a.coord.State().String(),
		QueueDepth:       a.queue.Len(),
		QueueDropped:     a.queue.Dropped(),
		BatchesShipped:   a.shipped.Load(),
	}
}
