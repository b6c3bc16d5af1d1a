// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jeranaias/enomcrypt/internal/config"
	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/pipeline"
	"github.com/jeranaias/enomcrypt/internal/security"
)

// ErrMissingCredentials indicates a run started without a password or salt.
var ErrMissingCredentials = errors.New("password and salt are required")

// ValidationErrors is returned by Options.Validate.
type ValidationErrors = config.ValidateErrors

// Options describe one run. They are not modified once the run starts.
type Options struct {
	Operation  model.Operation
	Mode       model.Mode
	KDF        model.KDF
	Iterations uint32 // 0 selects the KDF default
	Threads    int

	SourceRoot string
	// TargetRoot defaults to SourceRoot.
	TargetRoot string

	DeleteSource bool
	// Shred, when set, overrides DeleteSource.
	Shred *pipeline.ShredOptions

	Anonymize bool
	DryRun    bool
	Verbose   bool
}

// Validate checks every field and reports all problems at once.
func (o *Options) Validate() error {
	var errs ValidationErrors

	if !o.Operation.Valid() {
		errs = append(errs, config.ValidationError{Field: "operation", Message: fmt.Sprintf("unknown operation %s", o.Operation)})
	}
	if !o.Mode.Valid() {
		errs = append(errs, config.ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %s", o.Mode)})
	}
	if !o.KDF.Valid() {
		errs = append(errs, config.ValidationError{Field: "kdf", Message: fmt.Sprintf("unknown kdf %s", o.KDF)})
	}
	if o.Threads < 1 {
		errs = append(errs, config.ValidationError{Field: "threads", Message: fmt.Sprintf("must be at least 1, got %d", o.Threads)})
	}
	if o.SourceRoot == "" {
		errs = append(errs, config.ValidationError{Field: "source", Message: "cannot be empty"})
	}
	if o.Shred != nil {
		if o.Shred.RandomIterations < 0 || o.Shred.RenameTimes < 0 {
			errs = append(errs, config.ValidationError{Field: "shred", Message: "iteration and rename counts cannot be negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// EffectiveIterations resolves Iterations 0 to the KDF default.
func (o *Options) EffectiveIterations() uint32 {
	if o.Iterations == 0 {
		return o.KDF.DefaultIterations()
	}
	return o.Iterations
}

// Disposal returns the source disposal policy.
func (o *Options) Disposal() pipeline.Disposal {
	return pipeline.Disposal{Delete: o.DeleteSource, Shred: o.Shred}
}

// normalized returns a copy with absolute, cleaned roots and the target
// defaulted.
func (o Options) normalized() (Options, error) {
	src, err := filepath.Abs(o.SourceRoot)
	if err != nil {
		return o, fmt.Errorf("failed to resolve source path: %w", err)
	}
	o.SourceRoot = src

	if o.TargetRoot == "" {
		o.TargetRoot = src
	} else {
		dst, err := filepath.Abs(o.TargetRoot)
		if err != nil {
			return o, fmt.Errorf("failed to resolve target path: %w", err)
		}
		o.TargetRoot = dst
	}
	return o, nil
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials carry the secret inputs of a run. The engine zeroes both
// slices when the run ends.
type Credentials struct {
	Password []byte
	Salt     []byte
}

// Validate reports ErrMissingCredentials when either part is empty.
func (c *Credentials) Validate() error {
	if len(c.Password) == 0 || len(c.Salt) == 0 {
		return ErrMissingCredentials
	}
	return nil
}

// Zero wipes the password and salt.
func (c *Credentials) Zero() {
	security.ZeroBytes(c.Password)
	security.ZeroBytes(c.Salt)
}
