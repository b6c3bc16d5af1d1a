// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"time"

	"github.com/dustin/go-humanize"
)

// HumanBytes formats n as a SI size, e.g. "15 B" or "4.2 MB".
func HumanBytes(n uint64) string {
	return humanize.Bytes(n)
}

// Throughput returns bytes per second for n bytes processed over elapsed.
// A zero or negative elapsed yields 0.
func Throughput(n uint64, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(n) / secs
}

// HumanRate formats a bytes per second rate, e.g. "12 MB/s".
func HumanRate(bytesPerSec float64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

// ParseBytes parses a size such as "4096", "64KiB" or "1 MB".
func ParseBytes(s string) (uint64, error) {
	return humanize.ParseBytes(s)
}
