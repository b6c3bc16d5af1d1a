// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/enomcrypt/internal/model"
)

// =============================================================================
// KEY DERIVATION PARAMETERS
// =============================================================================

const (
	// Argon2Memory is the Argon2id memory cost in KiB (19 MiB).
	Argon2Memory uint32 = 19 * 1024
	// Argon2Parallelism is the Argon2id lane count.
	Argon2Parallelism uint8 = 4
	// Argon2MinSaltSize is the shortest salt Argon2 accepts.
	Argon2MinSaltSize = 8
)

// KeyDerivationError reports a key that could not be derived from the given
// parameters. It is fatal for the run but never a crash.
type KeyDerivationError struct {
	KDF    model.KDF
	Reason string
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("failed to derive key with %s: %s", e.KDF, e.Reason)
}

// =============================================================================
// DERIVATION
// =============================================================================

// DeriveKey derives a 32 byte key from password and salt.
//
// Argon2id uses time cost = iterations with fixed memory and parallelism, and
// rejects salts shorter than 8 bytes. PBKDF2-HMAC-SHA256 runs the given
// iteration count and does not fail.
//
// The returned slice is owned by the caller, who must hand it to
// KeyStore.Install (which zeroes it) or ZeroBytes it.
func DeriveKey(password, salt []byte, kdf model.KDF, iterations uint32) ([]byte, error) {
	switch kdf {
	case model.Argon2id:
		if iterations < 1 {
			return nil, &KeyDerivationError{KDF: kdf, Reason: "time cost (iterations) must be at least 1"}
		}
		if len(salt) < Argon2MinSaltSize {
			return nil, &KeyDerivationError{
				KDF:    kdf,
				Reason: fmt.Sprintf("salt is %d bytes, must be at least %d bytes long", len(salt), Argon2MinSaltSize),
			}
		}
		return argon2.IDKey(password, salt, iterations, Argon2Memory, Argon2Parallelism, KeySize), nil

	case model.PBKDF2:
		return pbkdf2.Key(password, salt, int(iterations), KeySize, sha256.New), nil

	default:
		return nil, &KeyDerivationError{KDF: kdf, Reason: "unsupported key derivation function"}
	}
}
