// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ping implements the Live Metrics ping probe: a low-rate HTTP call
// that tells the agent whether the remote service currently wants
// high-frequency posts.
package ping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/livemetrics-go/agent/internal/wire"
)

// DefaultRetryDelay is the next-ping delay used when a ping fails at the
// transport level — spec.md §4.3's "default retry delay".
const DefaultRetryDelay = 5 * time.Second

// requestTimeout bounds a single ping call so a stalled connection can't
// hold up the Coordinator indefinitely; cancelling the caller's context
// ends the call sooner.
const requestTimeout = 10 * time.Second

// Result is the decoded outcome of one ping call.
type Result struct {
	Subscribed       bool
	NextDelay        time.Duration // 0 means "use the caller's default"
	RedirectEndpoint string        // "" means no redirect offered
	ConfigETag       string
}

// Sender sends ping probes to the Live Metrics service.
type Sender struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Sender. A nil httpClient defaults to an http.Client with
// requestTimeout; a nil logger defaults to slog.Default().
func New(httpClient *http.Client, logger *slog.Logger) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{httpClient: httpClient, logger: logger}
}

// Ping sends a single ping probe to endpoint for instrumentationKey and
// decodes the service's response headers into a Result. On any transport or
// non-2xx failure it returns a Result with Subscribed=false and
// NextDelay=DefaultRetryDelay, and a non-nil error for the caller to log —
// the error never needs to propagate beyond the Coordinator.
func (s *Sender) Ping(ctx context.Context, endpoint, instrumentationKey string, id wire.RequestIdentity, now time.Time) (Result, error) {
	body := wire.PingEnvelope{
		InvariantVersion: wire.InvariantVersion,
		Timestamp:        wire.FormatDate(now),
		Version:          id.Version,
		StreamID:         id.StreamID,
		MachineName:      id.MachineName,
		Instance:         id.InstanceName,
	}
	if id.RoleName != "" {
		roleName := id.RoleName
		body.RoleName = &roleName
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return offResult(), fmt.Errorf("ping: marshaling envelope: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := endpoint + "/QuickPulseService.svc/ping?ikey=" + instrumentationKey
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return offResult(), fmt.Errorf("ping: building request: %w", err)
	}
	wire.SetCommonHeaders(req.Header, id, wire.MonotonicMillis())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return offResult(), fmt.Errorf("ping: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return offResult(), fmt.Errorf("ping: unexpected status %d", resp.StatusCode)
	}

	headers := wire.ParseResponseHeaders(resp.Header)
	return Result{
		Subscribed:       headers.Subscribed,
		NextDelay:        time.Duration(headers.PollingIntervalHintMs) * time.Millisecond,
		RedirectEndpoint: headers.RedirectEndpoint,
		ConfigETag:       headers.ConfigETag,
	}, nil
}

func offResult() Result {
	return Result{Subscribed: false, NextDelay: DefaultRetryDelay}
}
