// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/livemetrics-go/agent/collector"
	"github.com/livemetrics-go/agent/internal/wire"
	"github.com/livemetrics-go/agent/send"
)

type fakeCollector struct {
	snapshots []*collector.FinalCounters
	calls     int
}

func (f *fakeCollector) GetAndRestart() *collector.FinalCounters {
	defer func() { f.calls++ }()
	if f.calls >= len(f.snapshots) {
		return nil
	}
	return f.snapshots[f.calls]
}

func TestFetcherDisabledCollectorSkipsTick(t *testing.T) {
	fc := &fakeCollector{snapshots: []*collector.FinalCounters{nil}}
	queue := send.NewQueue(4)
	f := New(fc, queue, nil)

	if ok := f.Tick("https://live.example", "K", wire.RequestIdentity{}, time.Now()); ok {
		t.Fatal("Tick() = true, want false for disabled collector")
	}
	if queue.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", queue.Len())
	}
}

func TestFetcherEnqueuesPayloadMatchingSchema(t *testing.T) {
	fc := &fakeCollector{snapshots: []*collector.FinalCounters{{
		Requests:             3,
		UnsuccessfulRequests: 1,
		RequestsDurationMs:   300,
		Rdds:                 1,
		RddsDurationMs:       50,
		Exceptions:           1,
		MemoryCommittedBytes: 1024,
		CPUUsage:             12.5,
		DocumentList: []collector.Document{
			{Kind: collector.KindRequest, Name: "GET /", Success: true, DurationMs: 100, ResponseCode: "200"},
			{Kind: collector.KindException, Message: "boom"},
		},
	}}}
	queue := send.NewQueue(4)
	f := New(fc, queue, nil)

	ok := f.Tick("https://live.example", "K", wire.RequestIdentity{MachineName: "m1", InstanceName: "i1", Version: "1.0"}, time.Now())
	if !ok {
		t.Fatal("Tick() = false, want true")
	}
	if queue.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", queue.Len())
	}

	job, ok := queue.Dequeue(context.Background())
	if !ok {
		t.Fatal("Dequeue() = !ok")
	}

	var envelopes []wire.PostEnvelope
	if err := json.Unmarshal(job.Payload, &envelopes); err != nil {
		t.Fatalf("payload did not decode as []PostEnvelope: %v", err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("envelope count = %d, want 1", len(envelopes))
	}
	env := envelopes[0]
	if len(env.Metrics) != 11 {
		t.Fatalf("metric count = %d, want 11", len(env.Metrics))
	}
	if len(env.Documents) != 2 {
		t.Fatalf("document count = %d, want 2", len(env.Documents))
	}
	if env.StreamID != nil {
		t.Fatalf("StreamID = %v, want nil for posts", env.StreamID)
	}
	if env.InvariantVersion != wire.InvariantVersion {
		t.Fatalf("InvariantVersion = %d, want %d", env.InvariantVersion, wire.InvariantVersion)
	}
}

func TestFetcherQueueFullDropsPayloadWithoutBlocking(t *testing.T) {
	snapshots := make([]*collector.FinalCounters, 0, 300)
	for i := 0; i < 300; i++ {
		snapshots = append(snapshots, &collector.FinalCounters{Requests: int64(i)})
	}
	fc := &fakeCollector{snapshots: snapshots}
	queue := send.NewQueue(send.QueueCapacity)
	f := New(fc, queue, nil)

	for i := 0; i < 300; i++ {
		f.Tick("https://live.example", "K", wire.RequestIdentity{}, time.Now())
	}

	if queue.Len() > send.QueueCapacity {
		t.Fatalf("Len() = %d, exceeds capacity %d", queue.Len(), send.QueueCapacity)
	}
	if queue.Dropped() == 0 {
		t.Fatal("Dropped() = 0, want > 0 after 300 ticks into a 256-capacity queue")
	}
}
