// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"github.com/jeranaias/enomcrypt/internal/model"
)

// =============================================================================
// TEST DEFINITIONS
// =============================================================================

// Test represents a single benchmark test.
type Test struct {
	Name        string
	Type        TestType
	Description string

	// KDF tests
	KDF        model.KDF
	Iterations uint32 // 0 selects the KDF default

	// Cipher tests
	Mode model.Mode
}

// TestType categorizes the type of test.
type TestType string

const (
	// TestTypeKDF times one key derivation.
	TestTypeKDF TestType = "kdf"
	// TestTypeSeal measures encryption throughput.
	TestTypeSeal TestType = "seal"
	// TestTypeOpen measures decryption throughput.
	TestTypeOpen TestType = "open"
)

// =============================================================================
// STANDARD TEST SUITE
// =============================================================================

// Suite describes what the standard tests exercise.
type Suite struct {
	// Iterations overrides the KDF default cost for both KDF tests.
	Iterations uint32
}

// StandardTests returns the standard benchmark test suite.
func StandardTests(s Suite) []Test {
	tests := []Test{
		{
			Name:        "Argon2id derivation",
			Type:        TestTypeKDF,
			KDF:         model.Argon2id,
			Iterations:  s.Iterations,
			Description: "Time to derive one key with Argon2id (19 MiB, 4 lanes)",
		},
		{
			Name:        "PBKDF2 derivation",
			Type:        TestTypeKDF,
			KDF:         model.PBKDF2,
			Iterations:  s.Iterations,
			Description: "Time to derive one key with PBKDF2-HMAC-SHA256",
		},
	}

	for _, mode := range model.Modes {
		tests = append(tests,
			Test{
				Name:        "AES-256-" + mode.String() + " encrypt",
				Type:        TestTypeSeal,
				Mode:        mode,
				Description: "Encryption throughput over whole-file buffers",
			},
			Test{
				Name:        "AES-256-" + mode.String() + " decrypt",
				Type:        TestTypeOpen,
				Mode:        mode,
				Description: "Decryption throughput over whole-file buffers",
			},
		)
	}
	return tests
}
