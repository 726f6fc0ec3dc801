// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"testing"

	"github.com/livemetrics-go/agent/collector"
	"github.com/livemetrics-go/agent/send"
)

func TestDisabledAgentWithoutSuppliersDiscardsInput(t *testing.T) {
	a := New(Config{})

	a.Add(collector.TelemetryItem{Request: &collector.RequestTelemetry{Success: true}})

	status := a.Status()
	if status.Enabled {
		t.Fatal("Status().Enabled = true, want false")
	}

	// Start must be a safe no-op on a disabled Agent.
	a.Start(nil) //nolint:staticcheck // context is never dereferenced when disabled
	a.Stop()
}

// TestE6MalformedDurationNeverPanics exercises E6: Add on malformed
// telemetry returns normally and never panics, end-to-end through the
// Agent facade rather than the Collector directly.
func TestE6MalformedDurationNeverPanics(t *testing.T) {
	endpoint := "https://live.example"
	ikey := "K"
	a := New(Config{
		LiveEndpointSupplier:       func() string { return endpoint },
		InstrumentationKeySupplier: func() string { return ikey },
	})

	a.collector.SetQuickPulseStatus(collector.QPIsOn)
	a.Add(collector.TelemetryItem{
		InstrumentationKey: ikey,
		Request:            &collector.RequestTelemetry{DurationText: "not a duration", Success: true},
	})

	if !a.Status().Enabled {
		t.Fatal("Status().Enabled = false, want true")
	}
	snap := a.collector.Peek()
	if snap == nil || snap.Requests != 1 || snap.RequestsDurationMs != 0 {
		t.Fatalf("unexpected snapshot after malformed duration: %+v", snap)
	}
}

// TestPublishPostResultIncrementsBatchesShippedOnSuccessOnly mirrors the
// teacher's shipper.go: the shipped counter advances on every successful
// dispatch (Failed=false), whether or not the response carries
// Subscribed=true, and never advances on a transport/non-2xx failure.
func TestPublishPostResultIncrementsBatchesShippedOnSuccessOnly(t *testing.T) {
	a := New(Config{
		LiveEndpointSupplier:       func() string { return "https://live.example" },
		InstrumentationKeySupplier: func() string { return "K" },
	})

	a.PublishPostResult(send.Result{Subscribed: true})
	a.PublishPostResult(send.Result{Subscribed: false})
	if got := a.Status().BatchesShipped; got != 2 {
		t.Fatalf("BatchesShipped = %d, want 2", got)
	}

	a.PublishPostResult(send.Result{Failed: true})
	if got := a.Status().BatchesShipped; got != 2 {
		t.Fatalf("BatchesShipped after failed dispatch = %d, want unchanged 2", got)
	}
}
