// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"strconv"
	"strings"
)

// parseDurationMs parses the host's duration text form,
// "[d.]hh:mm:ss.fffffff", into whole milliseconds truncated toward zero.
// The fractional part carries up to seven digits of sub-second precision;
// only the first three (milliseconds) are kept — extra digits are dropped,
// not rounded. Any string that doesn't fit the grammar yields 0 without an
// error: a malformed duration on an otherwise-valid TelemetryItem must not
// fail ingestion.
func parseDurationMs(text string) int64 {
	days := int64(0)
	rest := text

	if i := strings.IndexByte(rest, '.'); i >= 0 {
		if firstColon := strings.IndexByte(rest, ':'); firstColon < 0 || i < firstColon {
			dayPart := rest[:i]
			d, err := strconv.ParseInt(dayPart, 10, 64)
			if err != nil || d < 0 {
				return 0
			}
			days = d
			rest = rest[i+1:]
		}
	}

	hh, mm, secFrac, ok := splitHMSFraction(rest)
	if !ok {
		return 0
	}
	hours, err := strconv.ParseInt(hh, 10, 64)
	if err != nil || hours < 0 {
		return 0
	}
	minutes, err := strconv.ParseInt(mm, 10, 64)
	if err != nil || minutes < 0 {
		return 0
	}

	seconds, fractionMs, ok := splitSecondsFraction(secFrac)
	if !ok {
		return 0
	}

	const (
		msPerDay    = 86400000
		msPerHour   = 3600000
		msPerMinute = 60000
		msPerSecond = 1000
	)

	return days*msPerDay + hours*msPerHour + minutes*msPerMinute + seconds*msPerSecond + fractionMs
}

// splitHMSFraction splits "hh:mm:ss.fffffff" into its hour, minute, and
// "ss.fffffff" parts. Returns ok=false if the grammar doesn't hold.
func splitHMSFraction(s string) (hh, mm, secFrac string, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// splitSecondsFraction parses "ss.fffffff" (the fractional part and its
// leading dot are optional) into whole seconds and truncated milliseconds.
func splitSecondsFraction(s string) (seconds, fractionMs int64, ok bool) {
	secText := s
	fracText := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		secText = s[:i]
		fracText = s[i+1:]
	}

	sec, err := strconv.ParseInt(secText, 10, 64)
	if err != nil || sec < 0 {
		return 0, 0, false
	}

	if fracText == "" {
		return sec, 0, true
	}
	for _, r := range fracText {
		if r < '0' || r > '9' {
			return 0, 0, false
		}
	}
	msDigits := fracText
	if len(msDigits) > 3 {
		msDigits = msDigits[:3]
	}
	for len(msDigits) < 3 {
		msDigits += "0"
	}
	fractionMs, err = strconv.ParseInt(msDigits, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return sec, fractionMs, true
}
