// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package send

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/livemetrics-go/agent/internal/wire"
)

type fakePublisher struct {
	mu      sync.Mutex
	results []Result
}

func (f *fakePublisher) PublishPostResult(r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
}

func (f *fakePublisher) snapshot() []Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Result(nil), f.results...)
}

func TestSenderDispatchesAndPublishesSubscribedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(wire.HeaderSubscribed, "true")
		w.Header().Set(wire.HeaderServicePollingInterval, "1000")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	queue := NewQueue(4)
	pub := &fakePublisher{}
	sender := New(queue, server.Client(), pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go sender.Run(ctx)
	defer cancel()

	queue.TryEnqueue(Job{Endpoint: server.URL, InstrumentationKey: "K", Payload: []byte("[]")})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(pub.snapshot()) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	results := pub.snapshot()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Subscribed {
		t.Fatalf("Subscribed = false, want true")
	}
	if results[0].NextDelay != time.Second {
		t.Fatalf("NextDelay = %v, want 1s", results[0].NextDelay)
	}
}

func TestSenderNon2xxPublishesUnsubscribed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	queue := NewQueue(4)
	pub := &fakePublisher{}
	sender := New(queue, server.Client(), pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go sender.Run(ctx)
	defer cancel()

	queue.TryEnqueue(Job{Endpoint: server.URL, InstrumentationKey: "K", Payload: []byte("[]")})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(pub.snapshot()) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	results := pub.snapshot()
	if len(results) != 1 || results[0].Subscribed {
		t.Fatalf("results = %+v, want one unsubscribed result", results)
	}
	if !results[0].Failed {
		t.Fatalf("results[0].Failed = false, want true for a 500 response")
	}
}

func testIdentity() wire.RequestIdentity {
	return wire.RequestIdentity{
		StreamID:     "abcd1234",
		MachineName:  "host1",
		InstanceName: "instance1",
		RoleName:     "role1",
		Version:      "1.0.0",
	}
}

func TestSenderDispatchSetsCommonHeaders(t *testing.T) {
	var got http.Header
	var gotIkey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotIkey = r.URL.Query().Get("ikey")
		w.Header().Set(wire.HeaderSubscribed, "false")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	queue := NewQueue(4)
	pub := &fakePublisher{}
	sender := New(queue, server.Client(), pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go sender.Run(ctx)
	defer cancel()

	queue.TryEnqueue(Job{
		Endpoint:           server.URL,
		InstrumentationKey: "my-key",
		Payload:            []byte("[]"),
		Identity:           testIdentity(),
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(pub.snapshot()) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if len(pub.snapshot()) == 0 {
		t.Fatal("no result published before deadline")
	}

	if gotIkey != "my-key" {
		t.Fatalf("ikey query param = %q, want %q", gotIkey, "my-key")
	}
	if got.Get("Content-Type") != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", got.Get("Content-Type"))
	}
	if got.Get(wire.HeaderInvariantVersion) != "1" {
		t.Fatalf("%s = %q, want %q", wire.HeaderInvariantVersion, got.Get(wire.HeaderInvariantVersion), "1")
	}
	if got.Get(wire.HeaderStreamID) != "abcd1234" {
		t.Fatalf("%s = %q, want %q", wire.HeaderStreamID, got.Get(wire.HeaderStreamID), "abcd1234")
	}
	if got.Get(wire.HeaderMachineName) != "host1" {
		t.Fatalf("%s = %q, want %q", wire.HeaderMachineName, got.Get(wire.HeaderMachineName), "host1")
	}
	if got.Get(wire.HeaderInstanceName) != "instance1" {
		t.Fatalf("%s = %q, want %q", wire.HeaderInstanceName, got.Get(wire.HeaderInstanceName), "instance1")
	}
	if got.Get(wire.HeaderRoleName) != "role1" {
		t.Fatalf("%s = %q, want %q", wire.HeaderRoleName, got.Get(wire.HeaderRoleName), "role1")
	}
	if got.Get(wire.HeaderTransmissionTime) == "" {
		t.Fatalf("%s missing, want a transmission-time value", wire.HeaderTransmissionTime)
	}
}

func TestQueueShedsWhenFull(t *testing.T) {
	queue := NewQueue(4)
	for i := 0; i < 4; i++ {
		if !queue.TryEnqueue(Job{}) {
			t.Fatalf("enqueue %d unexpectedly rejected", i)
		}
	}
	if queue.TryEnqueue(Job{}) {
		t.Fatal("enqueue into full queue unexpectedly accepted")
	}
	if queue.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", queue.Dropped())
	}
	if queue.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", queue.Len())
	}
}

func TestQueueDequeueUnblocksOnCancel(t *testing.T) {
	queue := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := queue.Dequeue(ctx)
	if ok {
		t.Fatal("Dequeue() after cancel = ok, want !ok")
	}
}
