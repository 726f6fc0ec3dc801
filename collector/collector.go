// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/livemetrics-go/agent/internal/counters"
)

// MaxDocuments bounds the retained document sample per collection window.
const MaxDocuments = 1000

// QuickPulseStatus is the Collector's notion of whether the remote side is
// currently watching. ON means "post data"; OFF means "ping only" — items
// added while OFF contribute to neither counters nor documents.
type QuickPulseStatus int32

const (
	QPIsOff QuickPulseStatus = iota
	QPIsOn
)

// FinalCounters is the decoded snapshot a caller of Peek or GetAndRestart
// receives: the scalar counter fields plus host metrics and the retained
// document sample for the window.
type FinalCounters struct {
	Requests             int64
	UnsuccessfulRequests int64
	RequestsDurationMs   int64
	Rdds                 int64
	UnsuccessfulRdds     int64
	RddsDurationMs       int64
	Exceptions           int64

	// MemoryCommittedBytes is the host process's committed memory.
	MemoryCommittedBytes int64

	// CPUUsage is a percentage; may be negative when the sampler
	// couldn't measure it (see HostSampler.CPUPercent).
	CPUUsage float64

	DocumentList []Document
}

// Collector is the ingestion point for host telemetry. It classifies each
// TelemetryItem, updates the relevant Counters cell, and retains a bounded
// FIFO sample of Documents while the subscription is ON.
//
// Collector is safe for concurrent use. Add is wait-free on the common
// path: a bounded number of atomic compare-and-swap retries plus, at most,
// one append to the document list.
type Collector struct {
	counters counters.Counters

	mu         sync.Mutex
	documents  []Document

	enabled    atomic.Bool
	ikey       atomic.Pointer[func() string]
	status     atomic.Int32 // QuickPulseStatus

	sampler HostSampler
	logger  *slog.Logger
}

// New creates a disabled Collector. Call Enable before Add does anything.
func New(sampler HostSampler, logger *slog.Logger) *Collector {
	if sampler == nil {
		sampler = NoopHostSampler()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{sampler: sampler, logger: logger}
	c.status.Store(int32(QPIsOff))
	return c
}

// Enable arms the Collector with a supplier for the expected instrumentation
// key. Re-enabling with the same supplier is a no-op in effect (Add behaves
// identically); switching suppliers is allowed and takes effect
// immediately.
func (c *Collector) Enable(instrumentationKeySupplier func() string) {
	if instrumentationKeySupplier == nil {
		panic("collector: instrumentationKeySupplier must not be nil")
	}
	c.ikey.Store(&instrumentationKeySupplier)
	c.enabled.Store(true)
}

// Disable makes Add a no-op and Peek/GetAndRestart return nil, without
// discarding any instrumentation key previously configured.
func (c *Collector) Disable() {
	c.enabled.Store(false)
}

// Enabled reports whether the Collector currently accepts telemetry.
func (c *Collector) Enabled() bool {
	return c.enabled.Load()
}

// SetQuickPulseStatus is the Coordinator's notification of the current
// subscription state. It is the only cross-component signal the Collector
// needs: the Coordinator is the sole writer, between post/ping cycles.
func (c *Collector) SetQuickPulseStatus(status QuickPulseStatus) {
	c.status.Store(int32(status))
}

// Add classifies item and, when the Collector is enabled, the
// instrumentation key matches, and the subscription is ON, updates counters
// and appends a Document (subject to the 1000-document cap). Add never
// blocks, never panics, and has no error return — a duration text that
// does not parse counts as 0 ms; nothing is logged for it.
func (c *Collector) Add(item TelemetryItem) {
	if !c.enabled.Load() {
		return
	}
	supplierPtr := c.ikey.Load()
	if supplierPtr == nil {
		return
	}
	if item.InstrumentationKey != (*supplierPtr)() {
		return
	}
	if QuickPulseStatus(c.status.Load()) != QPIsOn {
		return
	}

	switch {
	case item.Request != nil:
		c.addRequest(item.Request)
	case item.RemoteDependency != nil:
		c.addDependency(item.RemoteDependency)
	case item.Exception != nil:
		c.addException(item.Exception)
	default:
		// Unrecognized telemetry kind — ignored per spec, not an error.
	}
}

func (c *Collector) addRequest(r *RequestTelemetry) {
	durationMs := parseDurationMs(r.DurationText)
	c.counters.RecordRequest(durationMs, r.Success)
	c.appendDocument(Document{
		Kind:         KindRequest,
		Name:         r.Name,
		Success:      r.Success,
		DurationMs:   durationMs,
		ResponseCode: r.ResponseCode,
		URL:          r.URL,
		OperationID:  r.OperationID,
		Properties:   boundProperties(r.Properties),
	})
}

func (c *Collector) addDependency(d *RemoteDependencyTelemetry) {
	durationMs := parseDurationMs(d.DurationText)
	c.counters.RecordDependency(durationMs, d.Success)
	c.appendDocument(Document{
		Kind:        KindDependency,
		Name:        d.Name,
		Success:     d.Success,
		DurationMs:  durationMs,
		Command:     d.Command,
		ResultCode:  d.ResultCode,
		Target:      d.Target,
		Type:        d.Type,
		OperationID: d.OperationID,
		Properties:  boundProperties(d.Properties),
	})
}

func (c *Collector) addException(e *ExceptionTelemetry) {
	c.counters.RecordException()
	c.appendDocument(Document{
		Kind:           KindException,
		ExceptionStack: e.ThrowableStack,
		Message:        e.Message,
		ExceptionType:  e.Type,
	})
}

// appendDocument appends doc if the window hasn't reached MaxDocuments.
// Concurrent appends from multiple producers are allowed; their relative
// order in the resulting slice is unspecified, matching spec.md's
// best-effort ordering guarantee.
func (c *Collector) appendDocument(doc Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.documents) >= MaxDocuments {
		return
	}
	c.documents = append(c.documents, doc)
}

// Peek returns a non-destructive snapshot, or nil if the Collector is
// disabled. Unlike GetAndRestart, it does not reset counters or the
// document list; host memory and CPU are sampled the same way.
func (c *Collector) Peek() *FinalCounters {
	if !c.enabled.Load() {
		return nil
	}
	snap := c.counters.Peek()
	c.mu.Lock()
	docs := append([]Document(nil), c.documents...)
	c.mu.Unlock()
	return toFinalCounters(snap, docs, c.sampler)
}

// GetAndRestart atomically snapshots and resets the counters and document
// list, samples host memory and CPU, and returns the result — or nil if the
// Collector is disabled. This is the operation the Data Fetcher calls once
// per post interval.
func (c *Collector) GetAndRestart() *FinalCounters {
	if !c.enabled.Load() {
		return nil
	}
	snap := c.counters.SnapshotAndReset()
	c.mu.Lock()
	docs := c.documents
	c.documents = nil
	c.mu.Unlock()
	return toFinalCounters(snap, docs, c.sampler)
}

func toFinalCounters(snap counters.Snapshot, docs []Document, sampler HostSampler) *FinalCounters {
	return &FinalCounters{
		Requests:             snap.Requests,
		UnsuccessfulRequests: snap.UnsuccessfulRequests,
		RequestsDurationMs:   snap.RequestsDurationMs,
		Rdds:                 snap.Rdds,
		UnsuccessfulRdds:     snap.UnsuccessfulRdds,
		RddsDurationMs:       snap.RddsDurationMs,
		Exceptions:           snap.Exceptions,
		MemoryCommittedBytes: sampler.MemoryCommittedBytes(),
		CPUUsage:             sampler.CPUPercent(),
		DocumentList:         docs,
	}
}
