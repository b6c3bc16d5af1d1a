// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package walk discovers the directories and files of a source tree and
// refuses trees that must never be touched.
//
// Traversal follows the filesystem as-is, symlinks included. Symlinked
// directory cycles are not detected.
package walk

import (
	"fmt"
	"os"
	"path/filepath"
)

// Collection is the result of walking one source root.
type Collection struct {
	// Dirs holds every directory found, with the source root first.
	Dirs []string
	// Files holds every non-directory entry found.
	Files []string
	// TotalSize is the sum of the sizes of Files in bytes.
	TotalSize uint64
}

// Collect walks root recursively. Only a failure to read root itself is an
// error; unreadable children are skipped so one bad entry cannot abort the
// whole traversal.
func Collect(root string) (*Collection, error) {
	root = filepath.Clean(root)
	c := &Collection{Dirs: []string{root}}

	err := walkTree(root, func(path string, info os.FileInfo) bool {
		if info.IsDir() {
			c.Dirs = append(c.Dirs, path)
			return true
		}
		c.Files = append(c.Files, path)
		c.TotalSize += uint64(info.Size())
		return true
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CollectFile builds the collection for a single file: its parent directory
// and the file itself.
func CollectFile(path string) (*Collection, error) {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", path)
	}
	return &Collection{
		Dirs:      []string{filepath.Dir(path)},
		Files:     []string{path},
		TotalSize: uint64(info.Size()),
	}, nil
}

// walkTree calls fn for every entry below root, depth first. fn returns false
// to stop the walk. Entries that cannot be stat'ed or directories that cannot
// be listed are skipped.
func walkTree(root string, fn func(path string, info os.FileInfo) bool) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to read source root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source root %s is not a directory", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read source root: %w", err)
	}

	visit(root, entries, fn)
	return nil
}

func visit(dir string, entries []os.DirEntry, fn func(string, os.FileInfo) bool) bool {
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		// Stat follows symlinks, so a link to a directory is walked as one.
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !fn(path, info) {
			return false
		}
		if !info.IsDir() {
			continue
		}

		children, err := os.ReadDir(path)
		if err != nil {
			continue
		}
		if !visit(path, children, fn) {
			return false
		}
	}
	return true
}
