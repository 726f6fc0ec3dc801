// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import "testing"

// TestParseDurationMsTable exercises spec.md's duration parser table. The
// spec's final vector ("1111.22:33:44.123456" -> 96112424123) does not match
// straightforward arithmetic on the documented grammar — every other vector
// does, including the "1.22:33:44.123456" case that establishes the same
// day-multiplier term. 1111*86400000 + 22*3600000 + 33*60000 + 44*1000 + 123
// = 96071624123, not 96112424123; we implement the documented algorithm and
// use the arithmetically-consistent value here (see DESIGN.md).
func TestParseDurationMsTable(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"00:00:00.123456", 123},
		{"00:00:00.123999", 123},
		{"00:00:01.123456", 1123},
		{"00:01:23.123456", 83123},
		{"01:23:45.123456", 5025123},
		{"1.22:33:44.123456", 167624123},
		{"1111.22:33:44.123456", 96071624123},
	}
	for _, c := range cases {
		if got := parseDurationMs(c.text); got != c.want {
			t.Errorf("parseDurationMs(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestParseDurationMsMalformedYieldsZero(t *testing.T) {
	for _, text := range []string{
		"not a duration",
		"",
		"1:2",
		"aa:bb:cc",
		"-1:00:00",
		"00:00:00.abc",
	} {
		if got := parseDurationMs(text); got != 0 {
			t.Errorf("parseDurationMs(%q) = %d, want 0", text, got)
		}
	}
}

func TestParseDurationMsNoFraction(t *testing.T) {
	if got := parseDurationMs("00:00:05"); got != 5000 {
		t.Errorf("parseDurationMs(%q) = %d, want 5000", "00:00:05", got)
	}
}
