// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package walk

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/enomcrypt/internal/model"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// =============================================================================
// COLLECTION TESTS
// =============================================================================

func TestCollect_Tree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":         "hello",
		"sub/b.txt":     "0123456789",
		"sub/deep/c.md": "x",
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	c, err := Collect(root)
	require.NoError(t, err)

	require.Equal(t, filepath.Clean(root), c.Dirs[0], "source root must be first")
	require.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "empty"),
		filepath.Join(root, "sub"),
		filepath.Join(root, "sub", "deep"),
	}, c.Dirs)
	require.ElementsMatch(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub", "b.txt"),
		filepath.Join(root, "sub", "deep", "c.md"),
	}, c.Files)
	require.Equal(t, uint64(16), c.TotalSize)
}

func TestCollect_EmptyRoot(t *testing.T) {
	root := t.TempDir()
	c, err := Collect(root)
	require.NoError(t, err)
	require.Equal(t, []string{root}, c.Dirs)
	require.Empty(t, c.Files)
	require.Zero(t, c.TotalSize)
}

func TestCollect_MissingRoot(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCollect_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"f": "x"})
	_, err := Collect(filepath.Join(root, "f"))
	require.Error(t, err)
}

func TestCollect_UnreadableChildSkipped(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"ok.txt":         "ok",
		"locked/hid.txt": "hidden",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	c, err := Collect(root)
	require.NoError(t, err, "an unreadable child must not abort traversal")
	require.Contains(t, c.Dirs, locked)
	require.Equal(t, []string{filepath.Join(root, "ok.txt")}, c.Files)
}

func TestCollect_DanglingSymlinkSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	c, err := Collect(root)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "a.txt")}, c.Files)
}

func TestCollectFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"one.bin": "12345"})

	c, err := CollectFile(filepath.Join(root, "one.bin"))
	require.NoError(t, err)
	require.Equal(t, []string{root}, c.Dirs)
	require.Equal(t, []string{filepath.Join(root, "one.bin")}, c.Files)
	require.Equal(t, uint64(5), c.TotalSize)

	_, err = CollectFile(root)
	require.Error(t, err)
}

// =============================================================================
// PRE-VALIDATION TESTS
// =============================================================================

func TestPreValidate_DeniedRoots(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix deny list")
	}
	for _, path := range []string{"/", "/etc", "/etc/ssh", "/home", "/proc/self", "/usr", "/var"} {
		err := PreValidate(path, model.Decrypt)
		var illegal *IllegalPathError
		require.True(t, errors.As(err, &illegal), "expected %s to be refused, got %v", path, err)
	}
}

func TestPreValidate_AllowedRoots(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix deny list")
	}
	for _, path := range []string{"/home/alice/docs", "/srv/data/backups", "/etcetera"} {
		require.NoError(t, CheckAllowed(path), path)
	}
}

func TestPreValidate_SymlinkToDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix deny list")
	}
	link := filepath.Join(t.TempDir(), "sneaky")
	require.NoError(t, os.Symlink("/etc", link))

	var illegal *IllegalPathError
	require.True(t, errors.As(CheckAllowed(link), &illegal))
	require.Equal(t, "/etc", illegal.Denied)
}

func TestMatchDenied_Windows(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("windows paths")
	}
	_, ok := matchDenied(`c:\windows\system32`, windowsDenied, true)
	require.True(t, ok)
	_, ok = matchDenied(`D:\data`, windowsDenied, true)
	require.False(t, ok)
}

func TestPreValidate_AlreadyEncrypted(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":         "plain",
		"nested/x.enom": "cipher",
	})

	err := PreValidate(root, model.Encrypt)
	var already *AlreadyEncryptedError
	require.True(t, errors.As(err, &already))
	require.Equal(t, filepath.Join(root, "nested", "x.enom"), already.Path)

	// Decrypt does not scan.
	require.NoError(t, PreValidate(root, model.Decrypt))
}

func TestPreValidate_CleanTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.enomx": "not the marker"})
	require.NoError(t, PreValidate(root, model.Encrypt))
}

func TestDeniedLocations(t *testing.T) {
	list := DeniedLocations()
	require.NotEmpty(t, list)
	if runtime.GOOS != "windows" {
		require.Contains(t, list, "/etc")
	}
}
