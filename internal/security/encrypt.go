// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security holds the key material and cipher transforms of a run.
//
// This implements:
// - AES-256-GCM authenticated encryption with an appended 12 byte nonce
// - AES-256-ECB (PKCS#7 padded, unauthenticated) for compatibility
// - Argon2id and PBKDF2-HMAC-SHA256 key derivation
// - A single-slot-per-mode key store that zeroizes on every exit path
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
)

// =============================================================================
// SECURITY HELPER FUNCTIONS
// =============================================================================

// ZeroBytes securely zeros sensitive byte slices to prevent memory disclosure.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// isZero reports whether every byte of b is zero.
func isZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

// =============================================================================
// CONSTANTS
// =============================================================================

// NonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const NonceSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits)
const KeySize = 32

// TagSize is the GCM authentication tag length.
const TagSize = 16

// maxNonceAttempts bounds retries when a freshly drawn nonce collides with one
// already issued under the same key.
const maxNonceAttempts = 10

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCiphertext indicates the ciphertext is too short to carry a nonce and tag
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates decryption failed (wrong key or tampered data)
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
	// ErrMisalignedBlock indicates ECB input that is empty or not a multiple of the block size
	ErrMisalignedBlock = errors.New("ciphertext is not a whole number of AES blocks")
	// ErrNonceExhausted indicates no unique nonce could be drawn
	ErrNonceExhausted = errors.New("failed to generate unique nonce")
	// ErrInvalidKeySize indicates key material that is not exactly 32 bytes
	ErrInvalidKeySize = fmt.Errorf("key must be exactly %d bytes", KeySize)
)

// =============================================================================
// CIPHER INTERFACE
// =============================================================================

// Cipher is a whole-buffer transform bound to one installed key.
//
// Open only reports ErrDecryptionFailed for authenticated ciphers. An
// unauthenticated cipher has no way to tell a wrong key from a right one, so
// its Open fails only on structurally impossible input.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
	Authenticated() bool
}

// =============================================================================
// AES-256-GCM
// =============================================================================

// gcmCipher frames output as ciphertext || tag || nonce.
type gcmCipher struct {
	aead cipher.AEAD
	rand io.Reader

	mu         sync.Mutex
	usedNonces map[[NonceSize]byte]struct{}
}

func newGCMCipher(block cipher.Block) (*gcmCipher, error) {
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &gcmCipher{
		aead:       aead,
		rand:       rand.Reader,
		usedNonces: make(map[[NonceSize]byte]struct{}),
	}, nil
}

// nextNonce draws a random nonce that has never been issued under this key.
func (g *gcmCipher) nextNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte

	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < maxNonceAttempts; attempt++ {
		if _, err := io.ReadFull(g.rand, nonce[:]); err != nil {
			return nonce, fmt.Errorf("failed to read random nonce: %w", err)
		}
		if _, seen := g.usedNonces[nonce]; !seen {
			g.usedNonces[nonce] = struct{}{}
			return nonce, nil
		}
	}
	return nonce, fmt.Errorf("%w after %d attempts", ErrNonceExhausted, maxNonceAttempts)
}

func (g *gcmCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce, err := g.nextNonce()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(plaintext)+TagSize+NonceSize)
	out = g.aead.Seal(out, nonce[:], plaintext, nil)
	return append(out, nonce[:]...), nil
}

func (g *gcmCipher) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}
	split := len(ciphertext) - NonceSize
	nonce := ciphertext[split:]

	plaintext, err := g.aead.Open(nil, nonce, ciphertext[:split], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func (g *gcmCipher) Authenticated() bool { return true }

// issued returns how many nonces have been drawn under this key.
func (g *gcmCipher) issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.usedNonces)
}

// =============================================================================
// AES-256-ECB
// =============================================================================

// ecbCipher encrypts each 16 byte block independently with PKCS#7 padding.
// Identical plaintext blocks yield identical ciphertext blocks.
type ecbCipher struct {
	block cipher.Block
}

func (e *ecbCipher) Seal(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		e.block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return out, nil
}

// Open never detects a wrong key. Output whose padding does not verify is
// returned unstripped.
func (e *ecbCipher) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrMisalignedBlock
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		e.block.Decrypt(out[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}
	if n, ok := pkcs7Unpad(out, aes.BlockSize); ok {
		return out[:n], nil
	}
	return out, nil
}

func (e *ecbCipher) Authenticated() bool { return false }

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

// pkcs7Unpad returns the unpadded length and whether the padding was well formed.
func pkcs7Unpad(data []byte, blockSize int) (int, bool) {
	if len(data) == 0 {
		return 0, false
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return 0, false
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return 0, false
		}
	}
	return len(data) - pad, true
}
