// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package send implements the Data Sender: a single-consumer loop that
// drains a bounded queue of post payloads to the Live Metrics service.
package send

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/livemetrics-go/agent/internal/wire"
)

// QueueCapacity is the bounded send queue's capacity (spec.md §4.4/§5).
const QueueCapacity = 256

// Job is one post payload offered by the Data Fetcher and consumed by the
// Data Sender.
type Job struct {
	Endpoint           string
	InstrumentationKey string
	Payload            []byte
	Identity           wire.RequestIdentity
	Timestamp          time.Time
}

// Queue is a bounded, FIFO-fair queue of Jobs backed by a Go channel —
// channel send/receive ordering is already FIFO-fair among waiters, so no
// additional bookkeeping is needed to satisfy spec.md §5's fairness
// requirement.
type Queue struct {
	jobs    chan Job
	dropped atomic.Int64
}

// NewQueue creates a Queue with the given capacity (callers outside tests
// should pass QueueCapacity).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = QueueCapacity
	}
	return &Queue{jobs: make(chan Job, capacity)}
}

// TryEnqueue offers job onto the queue without blocking. It reports whether
// the job was accepted; a full queue causes the job to be dropped and
// Dropped to be incremented — the Fetcher must never block on a slow Sender.
func (q *Queue) TryEnqueue(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dequeue blocks until a Job is available or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (Job, bool) {
	select {
	case job := <-q.jobs:
		return job, true
	case <-ctx.Done():
		return Job{}, false
	}
}

// Len reports the number of jobs currently queued.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Dropped reports the cumulative count of jobs dropped because the queue
// was full at TryEnqueue time. Safe to read from any goroutine — callers
// such as Agent.Status() read it concurrently with the Fetcher's writes.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}
