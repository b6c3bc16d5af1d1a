// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pathmap rewrites source-rooted paths into target-rooted paths.
//
// Mapping is anchored on whole path segments: the source root is stripped as
// a true prefix and the remainder joined onto the target root. A source root
// that merely appears as a substring of some other component is never
// replaced.
package pathmap

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/enomcrypt/internal/model"
)

// ErrOutsideRoot indicates a path that does not lie under the source root.
var ErrOutsideRoot = errors.New("path is outside the source root")

// Map returns the target path for a file under sourceRoot. Encrypt appends the
// encrypted marker; Decrypt strips it when it is the trailing suffix.
func Map(path, sourceRoot, targetRoot string, op model.Operation) (string, error) {
	mapped, err := MapDir(path, sourceRoot, targetRoot)
	if err != nil {
		return "", err
	}
	return withMarker(mapped, op), nil
}

// MapDir returns the target path for a directory (or any path) under
// sourceRoot without touching the extension.
func MapDir(path, sourceRoot, targetRoot string) (string, error) {
	rel, err := relative(path, sourceRoot)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return filepath.Clean(targetRoot), nil
	}
	return filepath.Join(targetRoot, rel), nil
}

func relative(path, sourceRoot string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(sourceRoot), filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return rel, nil
}

func withMarker(path string, op model.Operation) string {
	switch op {
	case model.Encrypt:
		return path + model.EncryptedExt
	case model.Decrypt:
		return strings.TrimSuffix(path, model.EncryptedExt)
	}
	return path
}

// =============================================================================
// ANONYMIZING MAPPER
// =============================================================================

// NameBook records the original name behind an anonymized one. Without a
// NameBook anonymization is one-way.
type NameBook interface {
	Record(anon, original string) error
	Lookup(anon string) (original string, ok bool, err error)
}

// Mapper binds the roots and policy of one run.
type Mapper struct {
	SourceRoot string
	TargetRoot string
	Operation  model.Operation

	// Anonymize replaces base names with opaque identifiers on Encrypt.
	Anonymize bool
	// Names, when set, records anonymized names on Encrypt and restores
	// them on Decrypt.
	Names NameBook

	// newID is swapped in tests.
	newID func() string
}

// Map returns the output path for one source file.
func (m *Mapper) Map(path string) (string, error) {
	mapped, err := MapDir(path, m.SourceRoot, m.TargetRoot)
	if err != nil {
		return "", err
	}

	switch {
	case m.Operation == model.Encrypt && m.Anonymize:
		return m.anonymize(path, mapped)
	case m.Operation == model.Decrypt && m.Names != nil:
		return m.restore(mapped)
	}
	return withMarker(mapped, m.Operation), nil
}

// MapDir returns the output path for one source directory.
func (m *Mapper) MapDir(path string) (string, error) {
	return MapDir(path, m.SourceRoot, m.TargetRoot)
}

func (m *Mapper) anonymize(source, mapped string) (string, error) {
	id := m.id()
	anon := id + model.EncryptedExt

	if m.Names != nil {
		rel, err := relative(source, m.SourceRoot)
		if err != nil {
			return "", err
		}
		if err := m.Names.Record(anon, filepath.ToSlash(rel)); err != nil {
			return "", fmt.Errorf("failed to record anonymized name: %w", err)
		}
	}
	return filepath.Join(filepath.Dir(mapped), anon), nil
}

// restore puts back the recorded base name, falling back to stripping the
// marker when the name was never recorded.
func (m *Mapper) restore(mapped string) (string, error) {
	original, ok, err := m.Names.Lookup(filepath.Base(mapped))
	if err != nil {
		return "", fmt.Errorf("failed to look up anonymized name: %w", err)
	}
	if !ok {
		return withMarker(mapped, model.Decrypt), nil
	}
	return filepath.Join(filepath.Dir(mapped), filepath.Base(filepath.FromSlash(original))), nil
}

func (m *Mapper) id() string {
	if m.newID != nil {
		return m.newID()
	}
	return uuid.NewString()
}
