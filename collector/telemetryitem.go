// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector implements the Collector: the ingestion point for host
// telemetry, the bounded document sampler, and the per-window counters that
// back the live-metrics view.
package collector

// TelemetryItem is the tagged union of host telemetry the Collector accepts.
// Exactly one of the three pointers is expected to be non-nil. The
// Collector classifies an item by the first non-nil pointer in the order
// Request, RemoteDependency, Exception; an item with all three nil is
// ignored silently.
type TelemetryItem struct {
	// InstrumentationKey identifies which application this item belongs
	// to. Items whose key does not match the Collector's configured key
	// are dropped silently.
	InstrumentationKey string

	Request           *RequestTelemetry
	RemoteDependency  *RemoteDependencyTelemetry
	Exception         *ExceptionTelemetry
}

// RequestTelemetry describes one inbound request the host served.
type RequestTelemetry struct {
	Name         string
	Timestamp    string // RFC3339; neither parsed nor copied onto the Document
	DurationText string // "[d.]hh:mm:ss.fffffff"
	ResponseCode string
	Success      bool
	URL          string
	OperationID  string
	Properties   map[string]string
}

// RemoteDependencyTelemetry describes one outbound call the host made.
type RemoteDependencyTelemetry struct {
	Name         string
	Command      string
	DurationText string
	Success      bool
	ResultCode   string
	Target       string
	Type         string
	OperationID  string
	Properties   map[string]string
}

// ExceptionTelemetry describes one exception the host observed.
type ExceptionTelemetry struct {
	ThrowableStack string
	Message        string
	Type           string
}
