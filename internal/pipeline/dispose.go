// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ShredOptions control secure disposal of a source file.
type ShredOptions struct {
	// RandomIterations is how many times the contents are overwritten with
	// random data.
	RandomIterations int
	// RenameTimes is how many times the file is renamed to a random name
	// before removal.
	RenameTimes int
}

// Disposal is what happens to a source after its output is written. Shred,
// when set, wins over Delete.
type Disposal struct {
	Delete bool
	Shred  *ShredOptions
}

// Active reports whether the source will be removed.
func (d Disposal) Active() bool {
	return d.Shred != nil || d.Delete
}

func (d Disposal) String() string {
	switch {
	case d.Shred != nil:
		return "shred"
	case d.Delete:
		return "delete"
	default:
		return "keep"
	}
}

// dispose applies d to path. Leaving the file is a no-op.
func (d Disposal) dispose(path string) error {
	switch {
	case d.Shred != nil:
		return shredFile(path, *d.Shred, rand.Reader)
	case d.Delete:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete source: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SHRED
// =============================================================================

const shredChunk = 64 * 1024

// shredFile overwrites path with random data, renames it to random names in
// the same directory, truncates it and removes it.
//
// SECURITY: Journaling and copy-on-write filesystems, SSD wear levelling and
// backups may keep older copies of the data; overwriting in place covers only
// the blocks the filesystem hands back.
func shredFile(path string, opts ShredOptions, random io.Reader) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot shred directory %s", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open file for overwrite: %w", err)
	}

	for pass := 1; pass <= opts.RandomIterations; pass++ {
		if err := overwriteRandom(f, info.Size(), random); err != nil {
			f.Close()
			return fmt.Errorf("pass %d (random) failed: %w", pass, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("failed to sync pass %d: %w", pass, err)
		}
	}

	// Close before rename - required on Windows
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	current := path
	dir := filepath.Dir(path)
	for i := 0; i < opts.RenameTimes; i++ {
		next := filepath.Join(dir, uuid.NewString())
		if err := os.Rename(current, next); err != nil {
			return fmt.Errorf("rename %d failed: %w", i+1, err)
		}
		current = next
	}

	if err := os.Truncate(current, 0); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}
	if err := os.Remove(current); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// overwriteRandom writes size random bytes from the start of f.
func overwriteRandom(f *os.File, size int64, random io.Reader) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, shredChunk)
	for written := int64(0); written < size; {
		n := int64(len(buf))
		if size-written < n {
			n = size - written
		}
		if _, err := io.ReadFull(random, buf[:n]); err != nil {
			return err
		}
		m, err := f.Write(buf[:n])
		if err != nil {
			return err
		}
		written += int64(m)
	}
	return nil
}
