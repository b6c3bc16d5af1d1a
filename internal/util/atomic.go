// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// tempPattern marks in-flight outputs so they are recognizable if a crash
// leaves one behind.
const tempPattern = ".enomcrypt-*.tmp"

// RELIABILITY: Atomic write with fsync prevents half-written outputs
//
// WriteFileAtomic writes data next to path and renames it into place:
// 1. Create a temporary file in the parent directory
// 2. Write and fsync the data
// 3. Close and chmod the temp file
// 4. Rename it over path
//
// The parent directory must already exist; it is never created here. An
// existing file at path is replaced. On any error the temp file is removed
// and path is left as it was.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	// RELIABILITY: Sync to disk before the rename makes the file visible
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}

	// Close before rename - required on Windows
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, perm.Perm()); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// IsTempFile reports whether name looks like a leftover WriteFileAtomic temp file.
func IsTempFile(name string) bool {
	ok, _ := filepath.Match(tempPattern, filepath.Base(name))
	return ok
}
