// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/jeranaias/enomcrypt/internal/security"
	"github.com/jeranaias/enomcrypt/internal/util"
)

// DefaultBufferSize is the size of the buffer each cipher test processes.
const DefaultBufferSize = 1 << 20

// DefaultRounds is how many buffers each cipher test processes.
const DefaultRounds = 16

// benchSalt is a fixed 16 byte salt; derivation cost does not depend on it.
var benchSalt = []byte("enomcrypt-bench!")

// =============================================================================
// BENCHMARK RUNNER
// =============================================================================

// Runner executes benchmarks on this machine.
// Note: Runner is not thread-safe and should not be used concurrently
// from multiple goroutines.
type Runner struct {
	BufferSize int
	Rounds     int
}

// NewRunner creates a runner with the default buffer size and round count.
func NewRunner() *Runner {
	return &Runner{BufferSize: DefaultBufferSize, Rounds: DefaultRounds}
}

// Run executes tests in order. A failing test is recorded and the suite
// continues; cancellation stops it.
func (r *Runner) Run(ctx context.Context, tests []Test) (*Result, error) {
	result := &Result{
		StartTime:  time.Now(),
		BufferSize: r.bufferSize(),
		Rounds:     r.rounds(),
		Tests:      make([]TestResult, 0, len(tests)),
	}

	for _, test := range tests {
		testResult, err := r.runTest(ctx, test)
		if err != nil {
			testResult.Status = TestStatusFailed
			testResult.Error = err.Error()
		}
		result.Tests = append(result.Tests, testResult)
		if ctx.Err() != nil {
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.computeAggregates()

	return result, ctx.Err()
}

func (r *Runner) bufferSize() int {
	if r.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return r.BufferSize
}

func (r *Runner) rounds() int {
	if r.Rounds <= 0 {
		return DefaultRounds
	}
	return r.Rounds
}

// runTest executes a single benchmark test.
func (r *Runner) runTest(ctx context.Context, test Test) (TestResult, error) {
	testResult := TestResult{
		Name:   test.Name,
		Type:   test.Type,
		Status: TestStatusRunning,
	}
	if test.Type == TestTypeKDF {
		testResult.KDF = test.KDF.String()
	} else {
		testResult.Mode = test.Mode.String()
	}

	// Check for context cancellation before starting
	select {
	case <-ctx.Done():
		return testResult, ctx.Err()
	default:
	}

	testResult.StartTime = time.Now()
	var (
		transform time.Duration
		err       error
	)
	switch test.Type {
	case TestTypeKDF:
		err = r.runKDF(test, &testResult)
	case TestTypeSeal, TestTypeOpen:
		transform, err = r.runCipher(ctx, test, &testResult)
	default:
		err = fmt.Errorf("unknown test type %q", test.Type)
	}
	testResult.EndTime = time.Now()
	testResult.Duration = testResult.EndTime.Sub(testResult.StartTime)
	if err != nil {
		return testResult, err
	}

	if testResult.Bytes > 0 {
		testResult.BytesPerSec = util.Throughput(testResult.Bytes, transform)
	}
	testResult.Status = TestStatusPassed
	return testResult, nil
}

func (r *Runner) runKDF(test Test, out *TestResult) error {
	iterations := test.Iterations
	if iterations == 0 {
		iterations = test.KDF.DefaultIterations()
	}
	out.Iterations = iterations

	key, err := security.DeriveKey([]byte("benchmark"), benchSalt, test.KDF, iterations)
	if err != nil {
		return err
	}
	security.ZeroBytes(key)
	return nil
}

// runCipher runs Rounds transforms of a random buffer and returns the time
// they took. Key setup and the preparatory encryption of open tests are not
// included.
func (r *Runner) runCipher(ctx context.Context, test Test, out *TestResult) (time.Duration, error) {
	if !test.Mode.Valid() {
		return 0, fmt.Errorf("unknown mode %s", test.Mode)
	}

	keys := security.NewKeyStore()
	defer keys.Clear()

	key := make([]byte, security.KeySize)
	if _, err := rand.Read(key); err != nil {
		return 0, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := keys.Install(test.Mode, key); err != nil {
		return 0, err
	}

	buf := make([]byte, r.bufferSize())
	if _, err := rand.Read(buf); err != nil {
		return 0, fmt.Errorf("failed to generate buffer: %w", err)
	}

	var elapsed time.Duration
	err := keys.View(test.Mode, func(c security.Cipher) error {
		input := buf
		if test.Type == TestTypeOpen {
			sealed, err := c.Seal(buf)
			if err != nil {
				return err
			}
			input = sealed
		}

		start := time.Now()
		for i := 0; i < r.rounds(); i++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var err error
			if test.Type == TestTypeOpen {
				_, err = c.Open(input)
			} else {
				_, err = c.Seal(input)
			}
			if err != nil {
				return err
			}
			out.Bytes += uint64(len(buf))
		}
		elapsed = time.Since(start)
		return nil
	})
	return elapsed, err
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// FormatDuration formats duration for display.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// FormatThroughput formats bytes per second for display.
func FormatThroughput(bps float64) string {
	if bps == 0 {
		return "N/A"
	}
	return util.HumanRate(bps)
}
