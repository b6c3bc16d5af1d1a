// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline transforms every file of a run on a bounded worker pool.
//
// Each file is an independent unit: read fully, seal or open under the
// installed key, write atomically to its mapped target, then dispose of the
// source. Per-file problems become typed outcomes and never abort the run.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/security"
	"github.com/jeranaias/enomcrypt/internal/util"
)

// ErrSourceIsTarget indicates a file that would be written over itself.
var ErrSourceIsTarget = errors.New("target path equals source path")

// Mapper yields the output path for a source file.
type Mapper interface {
	Map(path string) (string, error)
}

// Keys gives workers shared access to the installed cipher.
type Keys interface {
	View(mode model.Mode, fn func(security.Cipher) error) error
}

// Config is everything one pipeline run needs. It is not modified by Run.
type Config struct {
	Threads   int
	Operation model.Operation
	Mode      model.Mode
	Mapper    Mapper
	Keys      Keys
	Disposal  Disposal
	DryRun    bool

	// Verbose gates per-file log entries.
	Verbose bool
	// Logger receives per-file entries. Nil discards them.
	Logger logrus.FieldLogger
	// Counters, when set, are incremented as files finish so a tracker can
	// sample them. Run allocates its own otherwise.
	Counters *Counters
}

func (c *Config) validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("thread count must be at least 1, got %d", c.Threads)
	}
	if !c.Operation.Valid() {
		return fmt.Errorf("unknown operation %s", c.Operation)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("unknown mode %s", c.Mode)
	}
	if c.Mapper == nil {
		return errors.New("pipeline requires a path mapper")
	}
	if c.Keys == nil {
		return errors.New("pipeline requires a key store")
	}
	return nil
}

type runner struct {
	cfg      Config
	log      logrus.FieldLogger
	counters *Counters
}

// Run processes files and blocks until every one has an outcome. The only
// errors returned are configuration and pool construction failures, raised
// before any file is touched.
func Run(cfg Config, files []string) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &runner{cfg: cfg, log: cfg.Logger, counters: cfg.Counters}
	if r.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		r.log = l
	}
	if r.counters == nil {
		r.counters = &Counters{}
	}

	report := &Report{Outcomes: make([]Outcome, len(files))}
	if len(files) == 0 {
		return report, nil
	}

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(cfg.Threads, func(arg interface{}) {
		defer wg.Done()
		idx := arg.(int)
		report.Outcomes[idx] = r.process(files[idx])
	}, ants.WithLogger(r.log))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	for i := range files {
		wg.Add(1)
		// Invoke blocks while all workers are busy.
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			o := Outcome{Source: files[i], Status: StatusFailed, Err: fmt.Errorf("failed to schedule: %w", err)}
			r.counters.record(o.Status)
			report.Outcomes[i] = o
		}
	}
	wg.Wait()

	return report, nil
}

// process runs the per-file algorithm and records the verdict.
func (r *runner) process(src string) (o Outcome) {
	o = Outcome{Source: src}
	defer func() {
		if p := recover(); p != nil {
			o.Status = StatusFailed
			o.Err = fmt.Errorf("worker panic: %v", p)
		}
		r.counters.record(o.Status)
		r.emitOutcome(o)
	}()

	info, err := os.Stat(src)
	if err != nil {
		return skipped(o, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return skipped(o, err)
	}
	o.Bytes = len(data)

	target, err := r.cfg.Mapper.Map(src)
	if err != nil {
		return failed(o, err)
	}
	o.Target = target
	if target == src {
		return failed(o, ErrSourceIsTarget)
	}

	if r.cfg.DryRun {
		o.DryRun = true
		o.Status = StatusOk
		return o
	}

	out, err := r.transform(data)
	if r.cfg.Operation == model.Encrypt {
		// SECURITY: plaintext is no longer needed once sealed
		security.ZeroBytes(data)
	}
	if err != nil {
		return failed(o, err)
	}

	err = util.WriteFileAtomic(target, out, info.Mode().Perm())
	if r.cfg.Operation == model.Decrypt {
		security.ZeroBytes(out)
	}
	if err != nil {
		return failed(o, fmt.Errorf("failed to write output: %w", err))
	}

	o.Status = StatusOk
	if err := r.cfg.Disposal.dispose(src); err != nil {
		o.DisposeErr = err
	}
	return o
}

func (r *runner) transform(data []byte) ([]byte, error) {
	var out []byte
	err := r.cfg.Keys.View(r.cfg.Mode, func(c security.Cipher) error {
		var err error
		if r.cfg.Operation == model.Encrypt {
			out, err = c.Seal(data)
		} else {
			out, err = c.Open(data)
		}
		return err
	})
	return out, err
}

func skipped(o Outcome, err error) Outcome {
	o.Status = StatusSkipped
	o.Err = err
	return o
}

func failed(o Outcome, err error) Outcome {
	o.Status = StatusFailed
	o.Err = err
	return o
}

// emitOutcome writes the verbose entry for o.
func (r *runner) emitOutcome(o Outcome) {
	if !r.cfg.Verbose {
		return
	}

	entry := r.log.WithFields(logrus.Fields{
		"path": o.Source,
		"op":   r.cfg.Operation.String(),
		"mode": r.cfg.Mode.String(),
	})
	if o.Target != "" {
		entry = entry.WithField("target", o.Target)
	}

	switch o.Status {
	case StatusOk:
		if o.DryRun {
			entry.Info("dry run: file would be " + r.cfg.Operation.Past())
		} else {
			entry.Info("file " + r.cfg.Operation.Past())
		}
		if o.DisposeErr != nil {
			entry.WithError(o.DisposeErr).WithField("disposal", r.cfg.Disposal.String()).
				Warn("failed to dispose of source file")
		}
	case StatusSkipped:
		entry.WithError(o.Err).Warn("file skipped: could not be read")
	case StatusFailed:
		entry.WithError(o.Err).Error("file failed")
	}
}
