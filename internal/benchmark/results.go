// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/enomcrypt/internal/util"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Result contains the results of one benchmark suite run.
type Result struct {
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	OS         string        `json:"os"`
	Arch       string        `json:"arch"`
	CPUs       int           `json:"cpus"`
	BufferSize int           `json:"buffer_size"`
	Rounds     int           `json:"rounds"`

	Tests       []TestResult `json:"tests"`
	PassedTests int          `json:"passed_tests"`
	FailedTests int          `json:"failed_tests"`
}

// TestResult contains the result of a single test.
type TestResult struct {
	Name       string        `json:"name"`
	Type       TestType      `json:"type"`
	Status     TestStatus    `json:"status"`
	KDF        string        `json:"kdf,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Iterations uint32        `json:"iterations,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	// Cipher tests only
	Bytes       uint64  `json:"bytes,omitempty"`
	BytesPerSec float64 `json:"bytes_per_sec,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// TestStatus indicates the outcome of a test.
type TestStatus string

const (
	TestStatusPending TestStatus = "pending"
	TestStatusRunning TestStatus = "running"
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
)

// computeAggregates fills the host fields and the pass/fail counts.
func (r *Result) computeAggregates() {
	r.OS = runtime.GOOS
	r.Arch = runtime.GOARCH
	r.CPUs = runtime.NumCPU()

	r.PassedTests, r.FailedTests = 0, 0
	for _, test := range r.Tests {
		switch test.Status {
		case TestStatusPassed:
			r.PassedTests++
		case TestStatusFailed:
			r.FailedTests++
		}
	}
}

// =============================================================================
// RESULT STORAGE
// =============================================================================

// Storage handles saving and loading benchmark results.
type Storage struct {
	dir string
}

// NewStorage creates a storage instance under ~/.enomcrypt/benchmarks/.
func NewStorage() (*Storage, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStorageWithDir(filepath.Join(homeDir, ".enomcrypt", "benchmarks"))
}

// NewStorageWithDir creates a storage instance with a custom directory.
func NewStorageWithDir(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create benchmark directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string { return s.dir }

// Save writes result to a timestamped file and returns its name.
func (s *Storage) Save(result *Result) (string, error) {
	filename := fmt.Sprintf("bench_%s.json", result.StartTime.Format("20060102-150405.000"))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.WriteFileAtomic(filepath.Join(s.dir, filename), data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	return filename, nil
}

// Load loads a benchmark result from disk.
func (s *Storage) Load(filename string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// List returns all benchmark result files, newest first. The timestamped
// names sort chronologically.
func (s *Storage) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, "bench_") && filepath.Ext(name) == ".json" {
			files = append(files, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// Latest returns the most recent saved result.
func (s *Storage) Latest() (*Result, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no benchmark results in %s", s.dir)
	}
	return s.Load(files[0])
}

// =============================================================================
// RESULT ANALYSIS
// =============================================================================

// Lookup returns the first test with the given name.
func (r *Result) Lookup(name string) (TestResult, bool) {
	for _, t := range r.Tests {
		if t.Name == name {
			return t, true
		}
	}
	return TestResult{}, false
}

// Summary returns a one-line summary of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d/%d tests passed on %s/%s (%d CPUs) in %s",
		r.PassedTests, len(r.Tests), r.OS, r.Arch, r.CPUs, FormatDuration(r.Duration))
}

// Metric is the display value of a test: derivation time for KDF tests,
// throughput for cipher tests.
func (t TestResult) Metric() string {
	if t.Status != TestStatusPassed {
		return "FAILED"
	}
	if t.Type == TestTypeKDF {
		return fmt.Sprintf("%s (%d iterations)", FormatDuration(t.Duration), t.Iterations)
	}
	return FormatThroughput(t.BytesPerSec)
}
