// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine runs one bulk encrypt or decrypt from validated options to a
// final result.
//
// A run is: reset state, pre-validate and collect the tree, derive and
// install the key, create the target directories, drive the pipeline while a
// tracker reports progress, aggregate the counters, then clear the key store
// and verify it is empty. Nothing survives from one run to the next.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/pathmap"
	"github.com/jeranaias/enomcrypt/internal/pipeline"
	"github.com/jeranaias/enomcrypt/internal/progress"
	"github.com/jeranaias/enomcrypt/internal/report"
	"github.com/jeranaias/enomcrypt/internal/security"
	"github.com/jeranaias/enomcrypt/internal/walk"
)

// Engine owns the key store. Runs on one Engine are serialized.
type Engine struct {
	runMu sync.Mutex

	keys     *security.KeyStore
	log      logrus.FieldLogger
	observer progress.Observer
	names    pathmap.NameBook
	interval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for verbose and diagnostic entries.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver sets the progress observer.
func WithObserver(o progress.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithNameBook records anonymized names on encrypt and restores them on
// decrypt.
func WithNameBook(b pathmap.NameBook) Option {
	return func(e *Engine) { e.names = b }
}

// WithProgressInterval overrides the tracker cadence.
func WithProgressInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// New creates an engine with an empty key store.
func New(opts ...Option) *Engine {
	e := &Engine{
		keys:     security.NewKeyStore(),
		interval: progress.DefaultInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.log = l
	}
	return e
}

// runContext is the state of one run.
type runContext struct {
	opts       Options
	collection *walk.Collection
	counters   *pipeline.Counters
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Run encrypts or decrypts the tree under opts.SourceRoot. Fatal problems are
// returned before any file is written. Per-file problems are reported in the
// result. creds are zeroed before Run returns.
func (e *Engine) Run(opts Options, creds Credentials) (*report.Result, error) {
	defer creds.Zero()

	e.runMu.Lock()
	defer e.runMu.Unlock()

	opts, err := e.prepare(opts, creds)
	if err != nil {
		return nil, err
	}

	if err := walk.PreValidate(opts.SourceRoot, opts.Operation); err != nil {
		return nil, err
	}
	coll, err := walk.Collect(opts.SourceRoot)
	if err != nil {
		return nil, err
	}

	return e.execute(&runContext{opts: opts, collection: coll}, creds)
}

// RunFile encrypts or decrypts a single file. The source root becomes the
// file's parent directory and the pool runs one worker.
func (e *Engine) RunFile(opts Options, creds Credentials) (*report.Result, error) {
	defer creds.Zero()

	e.runMu.Lock()
	defer e.runMu.Unlock()

	file, err := filepath.Abs(opts.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}
	opts.SourceRoot = filepath.Dir(file)
	if opts.TargetRoot == "" {
		opts.TargetRoot = opts.SourceRoot
	}
	opts.Threads = 1

	opts, err = e.prepare(opts, creds)
	if err != nil {
		return nil, err
	}

	if err := walk.CheckAllowed(opts.SourceRoot); err != nil {
		return nil, err
	}
	if opts.Operation == model.Encrypt && strings.HasSuffix(file, model.EncryptedExt) {
		return nil, &walk.AlreadyEncryptedError{Path: file}
	}
	coll, err := walk.CollectFile(file)
	if err != nil {
		return nil, err
	}

	return e.execute(&runContext{opts: opts, collection: coll}, creds)
}

// prepare normalizes and validates opts and resets the key store.
func (e *Engine) prepare(opts Options, creds Credentials) (Options, error) {
	opts, err := opts.normalized()
	if err != nil {
		return opts, err
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if err := creds.Validate(); err != nil {
		return opts, err
	}

	// Residue from an earlier run must never leak into this one.
	e.keys.Clear()
	return opts, nil
}

// =============================================================================
// EXECUTION
// =============================================================================

func (e *Engine) execute(rc *runContext, creds Credentials) (result *report.Result, err error) {
	opts := rc.opts

	defer func() {
		if clearErr := e.clearKeys(); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
	}()

	key, err := security.DeriveKey(creds.Password, creds.Salt, opts.KDF, opts.EffectiveIterations())
	creds.Zero()
	if err != nil {
		return nil, err
	}
	if err := e.keys.Install(opts.Mode, key); err != nil {
		return nil, err
	}

	mapper := &pathmap.Mapper{
		SourceRoot: opts.SourceRoot,
		TargetRoot: opts.TargetRoot,
		Operation:  opts.Operation,
		Anonymize:  opts.Anonymize,
	}
	if !opts.DryRun {
		mapper.Names = e.names
	}

	rc.counters = &pipeline.Counters{}
	tracker := progress.NewTracker(rc.counters, uint64(len(rc.collection.Files)), progressMessage(opts), e.observer, e.interval)
	tracker.Start()

	e.log.WithFields(logrus.Fields{
		"op":      opts.Operation.String(),
		"mode":    opts.Mode.String(),
		"source":  opts.SourceRoot,
		"target":  opts.TargetRoot,
		"files":   len(rc.collection.Files),
		"dry_run": opts.DryRun,
	}).Debug("run started")

	started := time.Now()
	if !opts.DryRun {
		e.createDirs(rc.collection.Dirs, mapper, opts.Verbose)
	}

	rep, err := pipeline.Run(pipeline.Config{
		Threads:   opts.Threads,
		Operation: opts.Operation,
		Mode:      opts.Mode,
		Mapper:    mapper,
		Keys:      e.keys,
		Disposal:  opts.Disposal(),
		DryRun:    opts.DryRun,
		Verbose:   opts.Verbose,
		Logger:    e.log,
		Counters:  rc.counters,
	}, rc.collection.Files)
	tracker.Stop()
	if err != nil {
		return nil, err
	}

	result = report.Aggregate(report.Input{
		Operation: opts.Operation,
		Mode:      opts.Mode,
		DryRun:    opts.DryRun,
		Success:   rc.counters.Success(),
		Failed:    rc.counters.Failed(),
		Skipped:   rc.counters.Skipped(),
		Report:    rep,
		Bytes:     rc.collection.TotalSize,
		Elapsed:   time.Since(started),
	})
	tracker.Final(result.Message)

	e.log.WithFields(logrus.Fields{
		"success": result.SuccessCount,
		"failed":  result.FailedCount,
		"skipped": result.SkippedCount,
	}).Debug("run finished")

	return result, nil
}

// createDirs mirrors the source directory tree under the target root. A
// directory that cannot be created surfaces later as write failures of the
// files inside it.
func (e *Engine) createDirs(dirs []string, mapper *pathmap.Mapper, verbose bool) {
	for _, dir := range dirs {
		target, err := mapper.MapDir(dir)
		if err != nil {
			continue
		}

		// Owner keeps write access so the outputs can be created.
		perm := os.FileMode(0o755)
		if info, err := os.Stat(dir); err == nil {
			perm = info.Mode().Perm() | 0o700
		}

		err = os.MkdirAll(target, perm)
		if !verbose {
			continue
		}
		entry := e.log.WithField("path", target)
		if err != nil {
			entry.WithError(err).Warn("failed to create directory")
			continue
		}
		entry.Info("directory created")
	}
}

func progressMessage(opts Options) string {
	verb := "Encrypting"
	if opts.Operation == model.Decrypt {
		verb = "Decrypting"
	}
	if opts.DryRun {
		verb = "Dry run: " + strings.ToLower(verb)
	}
	return fmt.Sprintf("%s files with AES-256-%s", verb, opts.Mode)
}

// clearKeys zeroizes every slot and verifies it. A surviving key is a defect.
func (e *Engine) clearKeys() error {
	e.keys.Clear()

	var errs []error
	for _, mode := range model.Modes {
		if !e.keys.VerifyCleared(mode) {
			e.log.WithField("mode", mode.String()).Error("key material survived clear")
			errs = append(errs, fmt.Errorf("%w: %s", security.ErrKeyNotCleared, mode))
		}
	}
	return errors.Join(errs...)
}

// KeysCleared reports whether no key is held for any mode.
func (e *Engine) KeysCleared() bool {
	for _, mode := range model.Modes {
		if !e.keys.VerifyCleared(mode) {
			return false
		}
	}
	return true
}
