// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/enomcrypt/internal/model"
)

// =============================================================================
// KEY STORE TESTS
// =============================================================================

// TestKeyStore_InstallZeroesCaller tests that the caller's key slice is wiped.
func TestKeyStore_InstallZeroesCaller(t *testing.T) {
	ks := NewKeyStore()
	key := testKey(t, 0x41)

	require.NoError(t, ks.Install(model.GCM, key))
	require.True(t, isZero(key), "caller's key must be zeroed after Install")
	require.True(t, ks.Installed(model.GCM))
	require.False(t, ks.Installed(model.ECB))
}

// TestKeyStore_InstallBadSize tests that a wrong-sized key is rejected and still zeroed.
func TestKeyStore_InstallBadSize(t *testing.T) {
	ks := NewKeyStore()
	key := []byte{1, 2, 3}

	require.ErrorIs(t, ks.Install(model.GCM, key), ErrInvalidKeySize)
	require.True(t, isZero(key))
	require.True(t, ks.VerifyCleared(model.GCM))
}

// TestKeyStore_InstallReplaces tests that a second install zeroes the old slot.
func TestKeyStore_InstallReplaces(t *testing.T) {
	ks := NewKeyStore()
	require.NoError(t, ks.Install(model.GCM, testKey(t, 0x42)))

	old := ks.slots[model.GCM]
	oldRaw := old.raw

	require.NoError(t, ks.Install(model.GCM, testKey(t, 0x43)))
	require.True(t, isZero(oldRaw), "replaced key bytes must be zeroed")
	require.Nil(t, old.cipher)
	require.Equal(t, testKey(t, 0x43), ks.slots[model.GCM].raw)
}

// TestKeyStore_ViewWithoutKey tests that using an empty slot errors.
func TestKeyStore_ViewWithoutKey(t *testing.T) {
	ks := NewKeyStore()
	err := ks.View(model.ECB, func(Cipher) error { return nil })
	require.ErrorIs(t, err, ErrNoKey)
}

// TestKeyStore_Clear tests that Clear empties every mode and zeroes the bytes.
func TestKeyStore_Clear(t *testing.T) {
	ks := NewKeyStore()
	require.NoError(t, ks.Install(model.GCM, testKey(t, 0x44)))
	require.NoError(t, ks.Install(model.ECB, testKey(t, 0x45)))

	gcmRaw := ks.slots[model.GCM].raw
	ecbRaw := ks.slots[model.ECB].raw

	ks.Clear()

	for _, mode := range model.Modes {
		require.True(t, ks.VerifyCleared(mode), "%s not cleared", mode)
	}
	require.True(t, isZero(gcmRaw))
	require.True(t, isZero(ecbRaw))

	// Idempotent on an empty store.
	ks.Clear()
	require.True(t, ks.VerifyCleared(model.GCM))
}

// TestKeyStore_ConcurrentView tests that many workers can seal at once.
func TestKeyStore_ConcurrentView(t *testing.T) {
	ks := installed(t, model.GCM, 0x46)

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				errs <- ks.View(model.GCM, func(c Cipher) error {
					ct, err := c.Seal([]byte("payload"))
					if err != nil {
						return err
					}
					_, err = c.Open(ct)
					return err
				})
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, ks.View(model.GCM, func(c Cipher) error {
		require.Equal(t, workers*perWorker, c.(*gcmCipher).issued())
		return nil
	}))
}
