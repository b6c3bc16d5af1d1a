// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"crypto/aes"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/enomcrypt/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoKey indicates no key is installed for the requested mode
	ErrNoKey = errors.New("no key installed for mode")
	// ErrKeyNotCleared is an invariant violation: key material survived Clear
	ErrKeyNotCleared = errors.New("key store not empty after clear")
)

// =============================================================================
// KEY STORE
// =============================================================================

// slot is the single owner of one mode's key: the raw 32 bytes plus the
// cipher built from them.
type slot struct {
	raw    []byte
	cipher Cipher
}

// KeyStore holds at most one key per mode.
//
// Pipeline workers read through View under a shared lock; Install and Clear
// take the exclusive lock. The expanded AES key schedule lives inside
// crypto/aes and cannot be zeroed from here, so dropping the cipher reference
// is the best that can be done for it.
type KeyStore struct {
	mu    sync.RWMutex
	slots map[model.Mode]*slot
}

// NewKeyStore returns an empty key store.
func NewKeyStore() *KeyStore {
	return &KeyStore{slots: make(map[model.Mode]*slot)}
}

// Install zeroizes any key already held for mode, then takes ownership of key.
// The caller's slice is zeroed before Install returns, on success or failure.
func (k *KeyStore) Install(mode model.Mode, key []byte) error {
	// SECURITY: Zero key material to prevent memory disclosure
	defer ZeroBytes(key)

	if !mode.Valid() {
		return fmt.Errorf("cannot install key: unknown mode %s", mode)
	}
	if len(key) != KeySize {
		return ErrInvalidKeySize
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.dropLocked(mode)

	raw := make([]byte, KeySize)
	copy(raw, key)

	block, err := aes.NewCipher(raw)
	if err != nil {
		ZeroBytes(raw)
		return fmt.Errorf("failed to create AES cipher: %w", err)
	}

	var c Cipher
	switch mode {
	case model.GCM:
		g, err := newGCMCipher(block)
		if err != nil {
			ZeroBytes(raw)
			return err
		}
		c = g
	case model.ECB:
		c = &ecbCipher{block: block}
	}

	k.slots[mode] = &slot{raw: raw, cipher: c}
	return nil
}

// View runs fn with the cipher for mode while holding the shared lock.
func (k *KeyStore) View(mode model.Mode, fn func(Cipher) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	s, ok := k.slots[mode]
	if !ok || s.cipher == nil {
		return fmt.Errorf("%w %s", ErrNoKey, mode)
	}
	return fn(s.cipher)
}

// Clear zeroizes and empties the slots of every mode. Safe with nothing installed.
func (k *KeyStore) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, mode := range model.Modes {
		k.dropLocked(mode)
	}
}

// VerifyCleared reports whether the slot for mode is empty.
func (k *KeyStore) VerifyCleared(mode model.Mode) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()

	s, ok := k.slots[mode]
	if !ok {
		return true
	}
	return s == nil || (s.cipher == nil && isZero(s.raw))
}

// Installed reports whether a key is currently held for mode.
func (k *KeyStore) Installed(mode model.Mode) bool {
	return !k.VerifyCleared(mode)
}

func (k *KeyStore) dropLocked(mode model.Mode) {
	s, ok := k.slots[mode]
	if !ok {
		return
	}
	if s != nil {
		ZeroBytes(s.raw)
		s.raw = nil
		s.cipher = nil
	}
	delete(k.slots, mode)
}
