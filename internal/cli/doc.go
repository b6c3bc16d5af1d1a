// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the command-line shell around the enomcrypt engine.
//
// It parses flags with cobra, merges them over the TOML configuration,
// reads credentials from a password file or the terminal, renders progress
// and results, and maps errors to exit codes.
//
// # Commands
//
//   - dir: encrypt or decrypt every file under a directory
//   - file: encrypt or decrypt a single file
//   - scan: count files, folders and bytes without touching keys
//   - bench: time key derivation and cipher throughput
//   - config: show, locate or initialize the configuration file
//
// All commands support --json for machine-readable output. On a terminal,
// dir and file show what they are about to do and ask to proceed; --yes
// skips the question.
//
// # Exit codes
//
//	0  success
//	1  general error
//	2  usage error or missing credentials
//	3  configuration error
//	6  security refusal (system location, already encrypted, key residue)
//	9  partial failure (at least one file failed)
package cli
