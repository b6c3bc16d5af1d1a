// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/pipeline"
)

func TestAggregate_AllSucceeded(t *testing.T) {
	r := Aggregate(Input{
		Operation: model.Encrypt,
		Mode:      model.GCM,
		Success:   2,
		Bytes:     15,
		Elapsed:   time.Second,
	})

	require.True(t, r.Success)
	require.Equal(t, uint64(2), r.SuccessCount)
	require.Zero(t, r.FailedCount)
	require.Empty(t, r.Notes)
	require.Equal(t, 15.0, r.Throughput)
	require.Contains(t, r.Message, "2 file(s) encrypted successfully")
	require.Contains(t, r.Message, "AES-256-GCM")
	require.Contains(t, r.Message, "15 B")
}

func TestAggregate_WithFailures(t *testing.T) {
	rep := &pipeline.Report{Outcomes: []pipeline.Outcome{
		{Source: "/a", Status: pipeline.StatusOk},
		{Source: "/b", Status: pipeline.StatusFailed, Err: errors.New("auth")},
		{Source: "/c", Status: pipeline.StatusOk, DisposeErr: errors.New("busy")},
		{Source: "/d", Status: pipeline.StatusSkipped},
	}}
	r := Aggregate(Input{
		Operation: model.Decrypt,
		Mode:      model.GCM,
		Success:   2,
		Failed:    1,
		Skipped:   1,
		Report:    rep,
	})

	require.False(t, r.Success)
	require.Equal(t, uint64(3), r.Total())
	require.Len(t, r.Failures, 1)
	require.Equal(t, "/b", r.Failures[0].Source)
	require.Len(t, r.DisposeFailures, 1)
	require.Contains(t, r.Notes, FailureGuidance)
	require.Contains(t, r.Message, "1 failed")
	require.Contains(t, r.Message, "1 skipped")
	require.Contains(t, r.Message, "password and salt")
}

func TestAggregate_ECBNote(t *testing.T) {
	r := Aggregate(Input{Operation: model.Decrypt, Mode: model.ECB, Success: 1})
	require.True(t, r.Success)
	require.Contains(t, r.Notes, ECBNote)
	require.Contains(t, r.Message, "no integrity check")
}

func TestAggregate_DryRun(t *testing.T) {
	r := Aggregate(Input{Operation: model.Encrypt, Mode: model.GCM, Success: 3, DryRun: true, Elapsed: time.Second})
	require.Contains(t, r.Message, "would be encrypted")
	require.NotContains(t, r.Message, "/s", "no throughput on dry runs")
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(Input{Operation: model.Encrypt, Mode: model.GCM})
	require.True(t, r.Success)
	require.Zero(t, r.Throughput)
	require.Contains(t, r.Message, "0 file(s)")
}
