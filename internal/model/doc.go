// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the shared enumerations used by every stage of a run.
//
// # Key Types
//
//   - Operation: Encrypt or Decrypt
//   - Mode: AES-256 cipher mode, ECB (unauthenticated) or GCM (AEAD)
//   - KDF: password key derivation function, Argon2id or PBKDF2-HMAC-SHA256
//
// # Usage
//
// Parse user supplied values before building run options:
//
//	op, err := model.ParseOperation("encrypt")
//	mode, err := model.ParseMode("gcm")
//	kdf, err := model.ParseKDF("argon2id")
package model
