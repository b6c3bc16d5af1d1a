// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package benchmark measures key derivation cost and cipher throughput on
// the current machine.
//
// The numbers help choose an iteration count and thread count before a
// large run: derivation happens once per run, cipher work once per file.
//
// # Key Types
//
//   - Runner: executes a list of tests
//   - Test: one KDF or cipher measurement
//   - Result: timings and throughput for a suite run
//   - Storage: saved results under ~/.enomcrypt/benchmarks
//
// # Usage
//
//	runner := benchmark.NewRunner()
//	result, err := runner.Run(ctx, benchmark.StandardTests(benchmark.Suite{}))
//	fmt.Println(result.Summary())
package benchmark
