// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/livemetrics-go/agent/collector"
	"github.com/livemetrics-go/agent/internal/wire"
	"github.com/livemetrics-go/agent/send"
)

// Collector is the subset of *collector.Collector the Fetcher depends on.
type Collector interface {
	GetAndRestart() *collector.FinalCounters
}

// Fetcher snapshots a Collector on each tick and enqueues the resulting
// post payload onto a bounded send.Queue. It never blocks: a full queue
// simply drops the payload, matching spec.md §4.4.
type Fetcher struct {
	collector Collector
	queue     *send.Queue
	logger    *slog.Logger

	lastTick time.Time
}

// New creates a Fetcher reading from collector and enqueuing onto queue.
func New(collector Collector, queue *send.Queue, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{collector: collector, queue: queue, logger: logger}
}

// Tick performs one fetch cycle: snapshot, build payload, enqueue. It
// reports whether a snapshot was available (false means the Collector was
// disabled, which is not an error — the caller simply has nothing to do
// this tick).
func (f *Fetcher) Tick(endpoint, instrumentationKey string, id wire.RequestIdentity, now time.Time) bool {
	snap := f.collector.GetAndRestart()
	if snap == nil {
		return false
	}

	windowSeconds := 1.0
	if !f.lastTick.IsZero() {
		windowSeconds = now.Sub(f.lastTick).Seconds()
	}
	f.lastTick = now

	payload, err := f.buildPayload(snap, instrumentationKey, id, now, windowSeconds)
	if err != nil {
		f.logger.Warn("fetch: failed to build post payload", "error", err)
		return true
	}

	job := send.Job{
		Endpoint:           endpoint,
		InstrumentationKey: instrumentationKey,
		Payload:            payload,
		Identity:           id,
		Timestamp:          now,
	}
	if !f.queue.TryEnqueue(job) {
		f.logger.Warn("fetch: send queue full, dropping post payload",
			"queue_capacity", send.QueueCapacity,
		)
	}
	return true
}

func (f *Fetcher) buildPayload(snap *collector.FinalCounters, instrumentationKey string, id wire.RequestIdentity, now time.Time, windowSeconds float64) ([]byte, error) {
	envelope := wire.PostEnvelope{
		Documents:          toWireDocuments(snap.DocumentList),
		InstrumentationKey: instrumentationKey,
		Metrics:            buildMetrics(snap, windowSeconds),
		InvariantVersion:   wire.InvariantVersion,
		Timestamp:          wire.FormatDate(now),
		Version:            id.Version,
		StreamID:           nil, // always nil for posts, per spec.md §4.4
		MachineName:        id.MachineName,
		Instance:           id.InstanceName,
	}
	if id.RoleName != "" {
		roleName := id.RoleName
		envelope.RoleName = &roleName
	}

	payload, err := json.Marshal([]wire.PostEnvelope{envelope})
	if err != nil {
		return nil, fmt.Errorf("marshaling post envelope: %w", err)
	}
	return payload, nil
}

func toWireDocuments(docs []collector.Document) []wire.Document {
	if len(docs) == 0 {
		return nil
	}
	out := make([]wire.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, toWireDocument(d))
	}
	return out
}

func toWireDocument(d collector.Document) wire.Document {
	wd := wire.Document{
		Type:         string(d.Kind),
		DocumentType: string(d.Kind),
		Name:         d.Name,
		ResponseCode: d.ResponseCode,
		URL:          d.URL,
		Command:      d.Command,
		ResultCode:   d.ResultCode,
		Target:       d.Target,
		Type2:        d.Type,
		ExceptionStack: d.ExceptionStack,
		Message:        d.Message,
		ExceptionType:  d.ExceptionType,
		OperationID:    d.OperationID,
		Properties:     d.Properties,
	}
	if d.Kind == collector.KindRequest || d.Kind == collector.KindDependency {
		success := d.Success
		wd.Success = &success
		wd.Duration = formatDurationMs(d.DurationMs)
	}
	return wd
}

// formatDurationMs renders a millisecond count back into the
// "[d.]hh:mm:ss.fffffff" text form, so the outbound document exactly
// matches the wire shape spec.md §6.4 documents, regardless of how it was
// originally received.
func formatDurationMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	remainderMs := ms % 1000
	days := totalSeconds / 86400
	hh := (totalSeconds % 86400) / 3600
	mm := (totalSeconds % 3600) / 60
	ss := totalSeconds % 60

	prefix := ""
	if days > 0 {
		prefix = fmt.Sprintf("%d.", days)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d0000", prefix, hh, mm, ss, remainderMs)
}
