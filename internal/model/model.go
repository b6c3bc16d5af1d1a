// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// EncryptedExt is the marker extension carried by every file the engine encrypts.
const EncryptedExt = ".enom"

// =============================================================================
// OPERATION
// =============================================================================

// Operation is the direction of a run.
type Operation int

const (
	Encrypt Operation = iota
	Decrypt
)

// String returns the lowercase name of the operation.
func (o Operation) String() string {
	switch o {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// Past returns the past tense used in summaries ("encrypted", "decrypted").
func (o Operation) Past() string {
	return o.String() + "ed"
}

// Valid reports whether o is a recognized operation.
func (o Operation) Valid() bool {
	return o == Encrypt || o == Decrypt
}

// ParseOperation parses "encrypt" or "decrypt" (case-insensitive).
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "encrypt", "enc":
		return Encrypt, nil
	case "decrypt", "dec":
		return Decrypt, nil
	default:
		return 0, fmt.Errorf("invalid operation '%s', must be one of: encrypt, decrypt", s)
	}
}

// =============================================================================
// MODE
// =============================================================================

// Mode is the AES-256 cipher mode.
type Mode int

const (
	// GCM is authenticated: wrong keys and tampering are detected on decrypt.
	GCM Mode = iota
	// ECB carries no integrity tag. Decrypt cannot tell a wrong key from a right one.
	ECB
)

// Modes lists every mode a key slot can exist for.
var Modes = []Mode{GCM, ECB}

// String returns the uppercase mode name.
func (m Mode) String() string {
	switch m {
	case GCM:
		return "GCM"
	case ECB:
		return "ECB"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	return m == GCM || m == ECB
}

// ParseMode parses "gcm" or "ecb" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gcm":
		return GCM, nil
	case "ecb":
		return ECB, nil
	default:
		return 0, fmt.Errorf("invalid mode '%s', must be one of: gcm, ecb", s)
	}
}

// =============================================================================
// KDF
// =============================================================================

// KDF selects the password based key derivation function.
type KDF int

const (
	Argon2id KDF = iota
	PBKDF2
)

// String returns the lowercase KDF name.
func (k KDF) String() string {
	switch k {
	case Argon2id:
		return "argon2id"
	case PBKDF2:
		return "pbkdf2"
	default:
		return fmt.Sprintf("kdf(%d)", int(k))
	}
}

// Valid reports whether k is a recognized KDF.
func (k KDF) Valid() bool {
	return k == Argon2id || k == PBKDF2
}

// DefaultIterations is the iteration (time cost) count used when none is configured.
func (k KDF) DefaultIterations() uint32 {
	if k == PBKDF2 {
		return 60_000
	}
	return 10
}

// ParseKDF parses "argon2id" (alias "argon2") or "pbkdf2" (case-insensitive).
func ParseKDF(s string) (KDF, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "argon2id", "argon2":
		return Argon2id, nil
	case "pbkdf2":
		return PBKDF2, nil
	default:
		return 0, fmt.Errorf("invalid kdf '%s', must be one of: argon2id, pbkdf2", s)
	}
}
