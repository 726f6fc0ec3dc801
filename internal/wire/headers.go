// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"net/http"
	"strconv"
)

// Request header names (spec.md §6.2).
const (
	HeaderTransmissionTime  = "x-ms-qps-transmission-time"
	HeaderStreamID          = "x-ms-qps-stream-id"
	HeaderMachineName       = "x-ms-qps-machine-name"
	HeaderInstanceName      = "x-ms-qps-instance-name"
	HeaderRoleName          = "x-ms-qps-role-name"
	HeaderInvariantVersion  = "x-ms-qps-invariant-version"
	HeaderConfigurationETag = "x-ms-qps-configuration-etag"
)

// Response header names (spec.md §6.5).
const (
	HeaderSubscribed             = "x-ms-qps-subscribed"
	HeaderServicePollingInterval = "x-ms-qps-service-polling-interval-hint"
	HeaderServiceEndpointRedirect = "x-ms-qps-service-endpoint-redirect-v2"
	HeaderResponseConfigETag     = "x-ms-qps-configuration-etag"
)

// SubscribedValue is the literal value of HeaderSubscribed that means "the
// service wants post-rate data"; any other value (including the header's
// absence) means OFF.
const SubscribedValue = "true"

// ResponseHeaders is the decoded form of a ping or post response's headers —
// the only part of a response this module reads.
type ResponseHeaders struct {
	Subscribed      bool
	PollingIntervalHintMs int64 // 0 if absent or unparsable
	RedirectEndpoint string    // "" if absent
	ConfigETag       string    // "" if absent
}

// ParseResponseHeaders decodes the QuickPulse headers from an HTTP response.
// A missing or malformed header degrades to its zero value rather than
// producing an error — header parsing must never fail a ping or post cycle.
func ParseResponseHeaders(h http.Header) ResponseHeaders {
	var out ResponseHeaders
	out.Subscribed = h.Get(HeaderSubscribed) == SubscribedValue
	out.RedirectEndpoint = h.Get(HeaderServiceEndpointRedirect)
	out.ConfigETag = h.Get(HeaderResponseConfigETag)
	if raw := h.Get(HeaderServicePollingInterval); raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms >= 0 {
			out.PollingIntervalHintMs = ms
		}
	}
	return out
}
