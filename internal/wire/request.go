// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"net/http"
	"strconv"
	"time"
)

// RequestIdentity is the set of values common to every ping and post request
// — the pieces spec.md §6.2's header list and §6.3/§6.4's envelope bodies
// both draw from, so callers build it once per request rather than twice.
type RequestIdentity struct {
	StreamID      string // sent as a header on ping and post; post bodies carry null
	MachineName   string
	InstanceName  string
	RoleName      string // "" means omit / null
	ConfigETag    string // "" means omit
	Version       string
}

// processStart anchors MonotonicMillis. time.Since uses the monotonic
// reading embedded in both values, so the result is unaffected by wall-clock
// adjustments (NTP step, timezone change) between calls.
var processStart = time.Now()

// MonotonicMillis returns milliseconds elapsed since the process started,
// the value spec.md §6.2's x-ms-qps-transmission-time header is derived
// from — that header must come from a monotonic clock, never wall time.
func MonotonicMillis() int64 {
	return time.Since(processStart).Milliseconds()
}

// SetCommonHeaders sets the request headers spec.md §6.2 requires on every
// ping and post call.
func SetCommonHeaders(h http.Header, id RequestIdentity, nowMonotonicMs int64) {
	h.Set("Content-Type", "application/json")
	h.Set(HeaderInvariantVersion, strconv.Itoa(InvariantVersion))
	h.Set(HeaderTransmissionTime, strconv.FormatInt(nowMonotonicMs*10000, 10))
	h.Set(HeaderMachineName, id.MachineName)
	h.Set(HeaderInstanceName, id.InstanceName)
	if id.StreamID != "" {
		h.Set(HeaderStreamID, id.StreamID)
	}
	if id.RoleName != "" {
		h.Set(HeaderRoleName, id.RoleName)
	}
	if id.ConfigETag != "" {
		h.Set(HeaderConfigurationETag, id.ConfigETag)
	}
}

// FormatDate renders t the way the service's JSON envelopes expect server
// timestamps: "/Date(<unix-millis>)/".
func FormatDate(t time.Time) string {
	return "/Date(" + strconv.FormatInt(t.UnixMilli(), 10) + ")/"
}

// roleNamePtr returns nil for an empty role name, a pointer otherwise —
// the envelope's RoleName field is JSON null rather than "" when unset.
func roleNamePtr(role string) *string {
	if role == "" {
		return nil
	}
	return &role
}
