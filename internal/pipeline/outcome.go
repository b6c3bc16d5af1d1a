// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"sync/atomic"
)

// Status is the fate of one file.
type Status int

const (
	// StatusOk means the output was written (or would have been, on a dry run).
	StatusOk Status = iota
	// StatusSkipped means the source could not be read, typically because it
	// vanished after listing. Skipped files count as neither success nor failure.
	StatusSkipped
	// StatusFailed means no usable output was produced.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one source file.
type Outcome struct {
	Source string
	Target string
	Status Status
	// Err is the reason for a Skipped or Failed status.
	Err error
	// DisposeErr is set when the output was written but deleting or
	// shredding the source failed. The status stays Ok.
	DisposeErr error
	// Bytes is the size of the source as read.
	Bytes  int
	DryRun bool
}

// Report is the per-file view of one pipeline run, in FileList order.
type Report struct {
	Outcomes []Outcome
}

// Count returns how many outcomes have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failures returns the Failed outcomes.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// DisposeFailures returns the Ok outcomes whose source could not be disposed of.
func (r *Report) DisposeFailures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.DisposeErr != nil {
			out = append(out, o)
		}
	}
	return out
}

// =============================================================================
// COUNTERS
// =============================================================================

// Counters are incremented by workers and sampled by the progress tracker.
// They only ever grow within a run.
type Counters struct {
	success atomic.Uint64
	failed  atomic.Uint64
	skipped atomic.Uint64
}

func (c *Counters) Success() uint64 { return c.success.Load() }
func (c *Counters) Failed() uint64  { return c.failed.Load() }
func (c *Counters) Skipped() uint64 { return c.skipped.Load() }

// Done is the number of files that reached a success or failure verdict.
func (c *Counters) Done() uint64 { return c.success.Load() + c.failed.Load() }

// Reset zeroes all counters. Call only between runs.
func (c *Counters) Reset() {
	c.success.Store(0)
	c.failed.Store(0)
	c.skipped.Store(0)
}

func (c *Counters) record(s Status) {
	switch s {
	case StatusOk:
		c.success.Add(1)
	case StatusFailed:
		c.failed.Add(1)
	case StatusSkipped:
		c.skipped.Add(1)
	}
}
