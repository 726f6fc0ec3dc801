// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the JSON envelopes exchanged with the Live Metrics
// service and the request/response header names of the ping/post protocol.
// The wire format is an external contract (spec.md §6) — unlike the rest of
// this module's ambient stack, it is pinned to JSON and must not be swapped
// for a different encoding.
package wire

// InvariantVersion is the protocol version this module speaks. The service
// rejects clients whose InvariantVersion it cannot parse.
const InvariantVersion = 1

// PingEnvelope is the body of a POST to .../QuickPulseService.svc/ping. The
// service parses its response from headers only — the ping body exists so
// the service can log which agent is polling, not to carry data back.
type PingEnvelope struct {
	Documents           any    `json:"Documents"`
	InstrumentationKey   any    `json:"InstrumentationKey"`
	Metrics             any    `json:"Metrics"`
	InvariantVersion    int    `json:"InvariantVersion"`
	Timestamp           string `json:"Timestamp"`
	Version             string `json:"Version"`
	StreamID            string `json:"StreamId"`
	MachineName         string `json:"MachineName"`
	Instance            string `json:"Instance"`
	RoleName            *string `json:"RoleName"`
}

// PostEnvelope is the single element of the JSON array posted to
// .../QuickPulseService.svc/post.
type PostEnvelope struct {
	Documents           []Document    `json:"Documents"`
	InstrumentationKey   string        `json:"InstrumentationKey"`
	Metrics             []MetricPoint `json:"Metrics"`
	InvariantVersion    int           `json:"InvariantVersion"`
	Timestamp           string        `json:"Timestamp"`
	Version             string        `json:"Version"`
	StreamID            *string       `json:"StreamId"` // always nil for posts
	MachineName         string        `json:"MachineName"`
	Instance            string        `json:"Instance"`
	RoleName            *string       `json:"RoleName"`
}

// MetricPoint is one of the eleven fixed metrics carried on every post
// (spec.md §6.4).
type MetricPoint struct {
	Name   string  `json:"Name"`
	Value  float64 `json:"Value"`
	Weight float64 `json:"Weight"`
}

// Document is the wire form of a retained sample event. __type and
// DocumentType both mirror Kind, matching the service's discriminated-union
// expectation.
type Document struct {
	Type         string `json:"__type"`
	DocumentType string `json:"DocumentType"`

	Name         string            `json:"Name,omitempty"`
	Success      *bool             `json:"Success,omitempty"`
	Duration     string            `json:"Duration,omitempty"`
	ResponseCode string            `json:"ResponseCode,omitempty"`
	URL          string            `json:"Url,omitempty"`

	Command    string `json:"CommandName,omitempty"`
	ResultCode string `json:"ResultCode,omitempty"`
	Target     string `json:"Target,omitempty"`
	Type2      string `json:"Type,omitempty"`

	ExceptionStack string `json:"ExceptionStack,omitempty"`
	Message        string `json:"Message,omitempty"`
	ExceptionType  string `json:"ExceptionType,omitempty"`

	OperationID string            `json:"OperationId,omitempty"`
	Properties  map[string]string `json:"Properties,omitempty"`
}
