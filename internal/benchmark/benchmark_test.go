// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/enomcrypt/internal/model"
)

func quickRunner() *Runner {
	return &Runner{BufferSize: 4096, Rounds: 2}
}

// =============================================================================
// SUITE TESTS
// =============================================================================

func TestStandardTests(t *testing.T) {
	tests := StandardTests(Suite{Iterations: 3})
	require.Len(t, tests, 2+2*len(model.Modes))

	var kdfs int
	for _, test := range tests {
		if test.Type == TestTypeKDF {
			kdfs++
			require.Equal(t, uint32(3), test.Iterations)
		}
	}
	require.Equal(t, 2, kdfs)
}

func TestRunner_Run(t *testing.T) {
	result, err := quickRunner().Run(context.Background(), StandardTests(Suite{Iterations: 1}))
	require.NoError(t, err)

	require.Equal(t, len(result.Tests), result.PassedTests)
	require.Zero(t, result.FailedTests)
	require.Positive(t, result.CPUs)

	gcm, ok := result.Lookup("AES-256-GCM encrypt")
	require.True(t, ok)
	require.Equal(t, uint64(8192), gcm.Bytes)
	require.Positive(t, gcm.BytesPerSec)
	require.Equal(t, "GCM", gcm.Mode)

	kdf, ok := result.Lookup("PBKDF2 derivation")
	require.True(t, ok)
	require.Equal(t, TestStatusPassed, kdf.Status)
	require.Equal(t, uint32(1), kdf.Iterations)
	require.Contains(t, kdf.Metric(), "1 iterations")
}

func TestRunner_DefaultIterations(t *testing.T) {
	result, err := quickRunner().Run(context.Background(), []Test{{Name: "pbkdf2", Type: TestTypeKDF, KDF: model.PBKDF2}})
	require.NoError(t, err)
	require.Equal(t, uint32(60_000), result.Tests[0].Iterations)
}

func TestRunner_FailingTestRecorded(t *testing.T) {
	tests := []Test{
		{Name: "bad mode", Type: TestTypeSeal, Mode: model.Mode(42)},
		{Name: "bad type", Type: TestType("compress")},
		{Name: "ok", Type: TestTypeOpen, Mode: model.ECB},
	}
	result, err := quickRunner().Run(context.Background(), tests)
	require.NoError(t, err)

	require.Equal(t, 2, result.FailedTests)
	require.Equal(t, 1, result.PassedTests)
	require.NotEmpty(t, result.Tests[0].Error)
	require.Equal(t, "FAILED", result.Tests[1].Metric())
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := quickRunner().Run(ctx, StandardTests(Suite{Iterations: 1}))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, result.Tests, 1, "the suite stops at the first cancelled test")
	require.Equal(t, TestStatusFailed, result.Tests[0].Status)
}

// =============================================================================
// STORAGE TESTS
// =============================================================================

func TestStorage_SaveLoadLatest(t *testing.T) {
	store, err := NewStorageWithDir(t.TempDir())
	require.NoError(t, err)

	_, err = store.Latest()
	require.Error(t, err)

	first := &Result{StartTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), PassedTests: 1}
	second := &Result{StartTime: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC), PassedTests: 2}
	_, err = store.Save(first)
	require.NoError(t, err)
	name, err := store.Save(second)
	require.NoError(t, err)

	files, err := store.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, name, files[0])

	latest, err := store.Latest()
	require.NoError(t, err)
	require.Equal(t, 2, latest.PassedTests)
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "N/A", FormatDuration(0))
	require.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	require.Equal(t, "2.5s", FormatDuration(2500*time.Millisecond))
	require.Equal(t, "1m 30s", FormatDuration(90*time.Second))
	require.Equal(t, "N/A", FormatThroughput(0))
}
