// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package walk

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jeranaias/enomcrypt/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// IllegalPathError reports a source root that overlaps an operating system
// location the engine refuses to touch.
type IllegalPathError struct {
	Path   string
	Denied string
}

func (e *IllegalPathError) Error() string {
	return fmt.Sprintf("illegal source path %s: overlaps protected location %s", e.Path, e.Denied)
}

// AlreadyEncryptedError reports an encrypted file found under a tree that was
// about to be encrypted.
type AlreadyEncryptedError struct {
	Path string
}

func (e *AlreadyEncryptedError) Error() string {
	return fmt.Sprintf("found already encrypted file %s: refusing to encrypt twice", e.Path)
}

// =============================================================================
// DENY LIST
// =============================================================================

// deniedPath is a protected location. Every source that equals it or
// contains it is refused; when subtree is set, every source inside it is
// refused as well.
type deniedPath struct {
	path    string
	subtree bool
}

var unixDenied = []deniedPath{
	{path: "/"},
	{path: "/root"},
	{path: "/home"},
	{path: "/usr"},
	{path: "/mnt"},
	{path: "/media"},
	{path: "/run"},
	{path: "/var"},
	{path: "/srv"},
	{path: "/opt"},
	{path: "/boot", subtree: true},
	{path: "/bin", subtree: true},
	{path: "/sbin", subtree: true},
	{path: "/lib", subtree: true},
	{path: "/lib32", subtree: true},
	{path: "/lib64", subtree: true},
	{path: "/libx32", subtree: true},
	{path: "/dev", subtree: true},
	{path: "/proc", subtree: true},
	{path: "/sys", subtree: true},
	{path: "/etc", subtree: true},
}

var windowsDenied = []deniedPath{
	{path: `C:\`},
	{path: `C:\Users`},
	{path: `C:\Windows`, subtree: true},
	{path: `C:\Program Files`, subtree: true},
	{path: `C:\Program Files (x86)`, subtree: true},
	{path: `C:\ProgramData`, subtree: true},
}

func deniedFor(goos string) []deniedPath {
	if goos == "windows" {
		return windowsDenied
	}
	return unixDenied
}

// DeniedLocations lists the protected locations for the running OS.
func DeniedLocations() []string {
	list := deniedFor(runtime.GOOS)
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.path)
	}
	return out
}

// =============================================================================
// PRE-VALIDATION
// =============================================================================

// PreValidate refuses a source root that overlaps a protected location and,
// for Encrypt, a tree that already holds an encrypted file. It performs no
// writes.
func PreValidate(root string, op model.Operation) error {
	if err := CheckAllowed(root); err != nil {
		return err
	}
	if op != model.Encrypt {
		return nil
	}
	return checkNotEncrypted(root)
}

// CheckAllowed applies the deny list to root, both as given and with
// symlinks resolved.
func CheckAllowed(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}

	list := deniedFor(runtime.GOOS)
	fold := runtime.GOOS == "windows"

	candidates := []string{abs}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != abs {
		candidates = append(candidates, resolved)
	}

	for _, candidate := range candidates {
		if denied, ok := matchDenied(candidate, list, fold); ok {
			return &IllegalPathError{Path: root, Denied: denied}
		}
	}
	return nil
}

func matchDenied(path string, list []deniedPath, fold bool) (string, bool) {
	for _, d := range list {
		if within(path, d.path, fold) {
			return d.path, true
		}
		if d.subtree && within(d.path, path, fold) {
			return d.path, true
		}
	}
	return "", false
}

// within reports whether child is parent or lies below it, comparing whole
// path segments.
func within(parent, child string, fold bool) bool {
	if fold {
		parent = strings.ToLower(parent)
		child = strings.ToLower(child)
	}
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// checkNotEncrypted stops at the first file carrying the encrypted marker.
func checkNotEncrypted(root string) error {
	var found string
	err := walkTree(filepath.Clean(root), func(path string, info os.FileInfo) bool {
		if !info.IsDir() && strings.HasSuffix(info.Name(), model.EncryptedExt) {
			found = path
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if found != "" {
		return &AlreadyEncryptedError{Path: found}
	}
	return nil
}
