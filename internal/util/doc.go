// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides file and formatting helpers shared by the engine and
// the CLI.
//
// # Key Functions
//
// File Operations:
//   - WriteFileAtomic: Crash-safe output writing with fsync and rename
//   - IsTempFile: Recognizes leftover in-flight outputs
//
// Formatting:
//   - HumanBytes, HumanRate: Human readable sizes and rates
//   - Throughput: Bytes per second over a duration
//
// # Usage
//
//	// Write an output without ever exposing a partial file
//	err := util.WriteFileAtomic(target, ciphertext, 0o644)
//
//	// Report how fast a run went
//	rate := util.HumanRate(util.Throughput(total, elapsed))
package util
