// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress samples run counters on a background ticker and reports
// percent-complete snapshots to an observer.
package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the sampling cadence.
const DefaultInterval = 100 * time.Millisecond

// Snapshot is one progress report. It is derived from counters each time it
// is emitted, never stored.
type Snapshot struct {
	Current    uint64
	Total      uint64
	Percentage float64
	Message    string
	// Final marks the snapshot emitted after the pipeline joined.
	Final bool
}

// Compute builds a snapshot. Percentage is 0 when total is 0.
func Compute(current, total uint64, message string) Snapshot {
	s := Snapshot{Current: current, Total: total, Message: message}
	if total > 0 {
		s.Percentage = float64(current) / float64(total) * 100
	}
	return s
}

// Observer receives snapshots. Emit is called from the tracker goroutine and
// must not block for long.
type Observer interface {
	Emit(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Emit calls f(s).
func (f ObserverFunc) Emit(s Snapshot) { f(s) }

// Counter is the value being tracked, usually success plus failure counts.
type Counter interface {
	Done() uint64
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker emits a snapshot every interval until stopped.
type Tracker struct {
	counter  Counter
	total    uint64
	message  string
	observer Observer
	interval time.Duration

	stop     chan struct{}
	stopped  atomic.Bool // Flag checked before every emission
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewTracker creates a tracker for total units of work. A nil observer makes
// the tracker a no-op; a non-positive interval uses DefaultInterval.
func NewTracker(counter Counter, total uint64, message string, observer Observer, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		counter:  counter,
		total:    total,
		message:  message,
		observer: observer,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the sampling goroutine.
func (t *Tracker) Start() {
	if t.observer == nil {
		return
	}
	t.wg.Add(1)
	go t.loop()
}

// Stop signals the goroutine and waits for it to exit. Safe to call more
// than once. The last periodic snapshot may lag the counters; use Final for
// a guaranteed-current one.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		close(t.stop)
	})
	t.wg.Wait()
}

// Final emits a snapshot of the current counter values, marked final. Call
// after the pipeline has joined.
func (t *Tracker) Final(message string) Snapshot {
	s := Compute(t.counter.Done(), t.total, message)
	s.Final = true
	if t.observer != nil {
		t.observer.Emit(s)
	}
	return s
}

func (t *Tracker) loop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if t.stopped.Load() {
				return
			}
			t.observer.Emit(Compute(t.counter.Done(), t.total, t.message))
		}
	}
}
