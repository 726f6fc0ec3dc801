// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package send

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/livemetrics-go/agent/internal/wire"
)

// requestTimeout bounds a single post dispatch.
const requestTimeout = 10 * time.Second

// Result is what the Sender reports back to the Coordinator after
// dispatching one Job. Failed distinguishes a transport/non-2xx failure
// (counts toward the Coordinator's consecutive-failure threshold) from a
// clean 2xx response carrying Subscribed=false (an ordinary unsubscribe,
// which demotes to PING immediately without counting as a failure).
type Result struct {
	Subscribed bool
	Failed     bool
	NextDelay  time.Duration // 0 means "use the caller's default"
}

// StatusPublisher receives the outcome of each dispatched Job. The
// Coordinator implements this to drive its state machine; the Sender
// itself never interprets the result.
type StatusPublisher interface {
	PublishPostResult(Result)
}

// Sender drains a Queue and dispatches each Job as an HTTP POST to the
// Live Metrics service. It runs as a single consumer for the agent's
// lifetime, independent of the Coordinator's cadence, so a slow network
// never stalls the Fetcher or Coordinator (spec.md §4.5).
type Sender struct {
	queue      *Queue
	httpClient *http.Client
	publisher  StatusPublisher
	logger     *slog.Logger
}

// New creates a Sender reading from queue and publishing each outcome to
// publisher. A nil httpClient defaults to an http.Client with
// requestTimeout; a nil logger defaults to slog.Default().
func New(queue *Queue, httpClient *http.Client, publisher StatusPublisher, logger *slog.Logger) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{queue: queue, httpClient: httpClient, publisher: publisher, logger: logger}
}

// Run blocks, dequeuing and dispatching Jobs until ctx is cancelled.
// Consecutive transport failures (connection refused, DNS, timeout — not
// applicable to a single non-2xx response) are paced with an exponential
// backoff before the next dequeue, so a dead endpoint doesn't spin the
// loop; a successful dispatch of either kind resets the backoff.
func (s *Sender) Run(ctx context.Context) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Second
	retry.MaxInterval = 30 * time.Second

	for {
		job, ok := s.queue.Dequeue(ctx)
		if !ok {
			return
		}

		result, transportErr := s.dispatch(ctx, job)
		s.publisher.PublishPostResult(result)

		if transportErr == nil {
			retry.Reset()
			continue
		}

		delay, err := retry.NextBackOff()
		if err != nil {
			delay = retry.MaxInterval
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// dispatch sends one job and decodes the response. The returned error is
// non-nil only for transport-level failures (not for a non-2xx response),
// since only the former warrants backing off the retry loop.
func (s *Sender) dispatch(ctx context.Context, job Job) (Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := job.Endpoint + "/QuickPulseService.svc/post?ikey=" + job.InstrumentationKey
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(job.Payload))
	if err != nil {
		return failedResult(), fmt.Errorf("send: building request: %w", err)
	}
	wire.SetCommonHeaders(req.Header, job.Identity, wire.MonotonicMillis())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("post dispatch failed", "error", err)
		return failedResult(), err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("post received non-2xx response", "status", resp.StatusCode)
		return failedResult(), nil
	}

	headers := wire.ParseResponseHeaders(resp.Header)
	return Result{
		Subscribed: headers.Subscribed,
		NextDelay:  time.Duration(headers.PollingIntervalHintMs) * time.Millisecond,
	}, nil
}

func failedResult() Result {
	return Result{Subscribed: false, Failed: true}
}
