// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report turns the counters of a drained pipeline into the final
// result of a run.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/pipeline"
	"github.com/jeranaias/enomcrypt/internal/util"
)

// ECBNote is attached to every ECB result.
const ECBNote = "ECB mode has no integrity check: success only means no I/O error occurred, not that the key was correct"

// FailureGuidance is attached to every result with failures.
const FailureGuidance = "check that the password and salt are correct and that no conflicting files already exist at the target"

// Input is what the aggregator reads once the pipeline has joined.
type Input struct {
	Operation model.Operation
	Mode      model.Mode
	DryRun    bool

	Success uint64
	Failed  uint64
	Skipped uint64

	// Report carries per-file detail. Optional.
	Report *pipeline.Report

	Bytes   uint64
	Elapsed time.Duration
}

// Result is the final outcome of a run.
type Result struct {
	Success      bool
	Message      string
	SuccessCount uint64
	FailedCount  uint64
	SkippedCount uint64

	Operation model.Operation
	Mode      model.Mode
	DryRun    bool

	Bytes      uint64
	Elapsed    time.Duration
	Throughput float64 // bytes per second

	// Notes holds caveats such as the ECB limitation.
	Notes []string
	// Failures lists the files that failed, in FileList order.
	Failures []pipeline.Outcome
	// DisposeFailures lists successful files whose source could not be removed.
	DisposeFailures []pipeline.Outcome
}

// Aggregate builds the final result. Overall success means no file failed.
func Aggregate(in Input) *Result {
	r := &Result{
		Success:      in.Failed == 0,
		SuccessCount: in.Success,
		FailedCount:  in.Failed,
		SkippedCount: in.Skipped,
		Operation:    in.Operation,
		Mode:         in.Mode,
		DryRun:       in.DryRun,
		Bytes:        in.Bytes,
		Elapsed:      in.Elapsed,
		Throughput:   util.Throughput(in.Bytes, in.Elapsed),
	}
	if in.Report != nil {
		r.Failures = in.Report.Failures()
		r.DisposeFailures = in.Report.DisposeFailures()
	}
	if in.Mode == model.ECB {
		r.Notes = append(r.Notes, ECBNote)
	}
	if in.Failed > 0 {
		r.Notes = append(r.Notes, FailureGuidance)
	}
	r.Message = r.summary()
	return r
}

// Total is the number of files that reached a verdict.
func (r *Result) Total() uint64 {
	return r.SuccessCount + r.FailedCount
}

func (r *Result) summary() string {
	var b strings.Builder

	verb := r.Operation.Past()
	if r.DryRun {
		verb = "would be " + verb
	}

	if r.Success {
		fmt.Fprintf(&b, "%d file(s) %s successfully", r.SuccessCount, verb)
	} else {
		fmt.Fprintf(&b, "%d file(s) %s, %d failed", r.SuccessCount, verb, r.FailedCount)
	}
	if r.SkippedCount > 0 {
		fmt.Fprintf(&b, ", %d skipped (unreadable)", r.SkippedCount)
	}
	fmt.Fprintf(&b, " using AES-256-%s", r.Mode)

	if r.Elapsed > 0 && !r.DryRun {
		fmt.Fprintf(&b, " (%s in %s, %s)",
			util.HumanBytes(r.Bytes), r.Elapsed.Round(time.Millisecond), util.HumanRate(r.Throughput))
	}

	for _, note := range r.Notes {
		b.WriteString(". ")
		b.WriteString(strings.ToUpper(note[:1]) + note[1:])
	}
	return b.String()
}
