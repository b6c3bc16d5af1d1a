// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/enomcrypt/internal/manifest"
	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/pipeline"
	"github.com/jeranaias/enomcrypt/internal/progress"
	"github.com/jeranaias/enomcrypt/internal/security"
	"github.com/jeranaias/enomcrypt/internal/walk"
)

// =============================================================================
// HELPERS
// =============================================================================

func creds(password, salt string) Credentials {
	return Credentials{Password: []byte(password), Salt: []byte(salt)}
}

func fastOpts(op model.Operation, src, dst string) Options {
	return Options{
		Operation:  op,
		Mode:       model.GCM,
		KDF:        model.PBKDF2,
		Iterations: 1,
		Threads:    4,
		SourceRoot: src,
		TargetRoot: dst,
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// relFiles returns the slash-separated relative paths of every file under root.
func relFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() {
			rel, err := filepath.Rel(root, path)
			require.NoError(t, err)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	}))
	sort.Strings(out)
	return out
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

type snapshots struct {
	mu   sync.Mutex
	list []progress.Snapshot
}

func (s *snapshots) Emit(snap progress.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, snap)
}

func (s *snapshots) last() progress.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list[len(s.list)-1]
}

// =============================================================================
// EXAMPLE SCENARIOS
// =============================================================================

// TestEngine_EncryptDecryptExample runs the two-file tree through Argon2id with
// ten iterations and back.
func TestEngine_EncryptDecryptExample(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dst := filepath.Join(base, "dst")
	restored := filepath.Join(base, "restored")
	files := map[string]string{"a.txt": "hello", "sub/b.txt": "0123456789"}
	writeTree(t, src, files)

	e := New()
	opts := Options{
		Operation:  model.Encrypt,
		Mode:       model.GCM,
		KDF:        model.Argon2id,
		Iterations: 10,
		Threads:    2,
		SourceRoot: src,
		TargetRoot: dst,
	}

	result, err := e.Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, uint64(2), result.SuccessCount)
	require.Zero(t, result.FailedCount)
	require.Equal(t, uint64(15), result.Bytes)
	require.Equal(t, []string{"a.txt.enom", "sub/b.txt.enom"}, relFiles(t, dst))
	require.Equal(t, []string{"a.txt", "sub/b.txt"}, relFiles(t, src), "source untouched")
	require.True(t, e.KeysCleared())

	opts.Operation = model.Decrypt
	opts.SourceRoot = dst
	opts.TargetRoot = restored
	result, err = e.Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, uint64(2), result.SuccessCount)

	for rel, content := range files {
		got, err := os.ReadFile(filepath.Join(restored, filepath.FromSlash(rel)))
		require.NoError(t, err)
		require.Equal(t, content, string(got))
	}
	require.True(t, e.KeysCleared())
}

func TestEngine_RejectsEtc(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix deny list")
	}
	dst := t.TempDir()
	e := New()

	result, err := e.Run(fastOpts(model.Encrypt, "/etc", dst), creds("pw", "saltsalt"))
	require.Nil(t, result)
	var illegal *walk.IllegalPathError
	require.True(t, errors.As(err, &illegal))

	requireEmptyDir(t, dst)
	require.True(t, e.KeysCleared())
}

func TestEngine_RejectsAlreadyEncrypted(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dst := filepath.Join(base, "dst")
	writeTree(t, src, map[string]string{"a.txt": "plain", "x.enom": "cipher"})

	_, err := New().Run(fastOpts(model.Encrypt, src, dst), creds("pw", "saltsalt"))
	var already *walk.AlreadyEncryptedError
	require.True(t, errors.As(err, &already))

	_, statErr := os.Stat(dst)
	require.True(t, os.IsNotExist(statErr), "no directory may be created")
	require.Equal(t, []string{"a.txt", "x.enom"}, relFiles(t, src))
}

// =============================================================================
// FATAL ERROR TESTS
// =============================================================================

func TestEngine_MissingCredentials(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a": "a"})

	_, err := New().Run(fastOpts(model.Encrypt, src, ""), Credentials{Password: []byte("pw")})
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New().Run(fastOpts(model.Encrypt, src, ""), Credentials{Salt: []byte("saltsalt")})
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.Equal(t, []string{"a"}, relFiles(t, src))
}

func TestEngine_ShortArgon2Salt(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dst := filepath.Join(base, "dst")
	writeTree(t, src, map[string]string{"a": "a"})

	opts := fastOpts(model.Encrypt, src, dst)
	opts.KDF = model.Argon2id
	e := New()

	_, err := e.Run(opts, creds("pw", "salt"))
	var kdErr *security.KeyDerivationError
	require.True(t, errors.As(err, &kdErr))

	_, statErr := os.Stat(dst)
	require.True(t, os.IsNotExist(statErr))
	require.True(t, e.KeysCleared())
}

func TestEngine_InvalidOptions(t *testing.T) {
	opts := Options{Operation: model.Operation(7), Mode: model.Mode(9), KDF: model.KDF(4), Threads: 0, SourceRoot: t.TempDir()}
	_, err := New().Run(opts, creds("pw", "saltsalt"))

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 4)
}

func TestEngine_MissingSource(t *testing.T) {
	_, err := New().Run(fastOpts(model.Decrypt, filepath.Join(t.TempDir(), "nope"), ""), creds("pw", "saltsalt"))
	require.Error(t, err)
}

func TestEngine_CredentialsZeroed(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a": "a"})

	c := creds("pw", "saltsalt")
	_, err := New().Run(fastOpts(model.Encrypt, src, ""), c)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0}, c.Password)
	require.Equal(t, make([]byte, 8), c.Salt)

	// Fatal runs zero them too.
	c = creds("pw", "saltsalt")
	_, err = New().Run(fastOpts(model.Encrypt, "/definitely/not/here", ""), c)
	require.Error(t, err)
	require.Equal(t, []byte{0, 0}, c.Password)
}

// =============================================================================
// PARTIAL FAILURE TESTS
// =============================================================================

func TestEngine_WrongPassword(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	enc := filepath.Join(base, "enc")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	e := New()
	_, err := e.Run(fastOpts(model.Encrypt, src, enc), creds("right", "saltsalt"))
	require.NoError(t, err)

	opts := fastOpts(model.Decrypt, enc, out)
	opts.DeleteSource = true
	result, err := e.Run(opts, creds("wrong", "saltsalt"))
	require.NoError(t, err, "per-file failures never surface as a run error")

	require.False(t, result.Success)
	require.Equal(t, uint64(2), result.FailedCount)
	require.Zero(t, result.SuccessCount)
	require.Len(t, result.Failures, 2)
	require.Contains(t, result.Message, "password and salt")
	require.Empty(t, relFiles(t, out), "no output for failed files")
	require.Equal(t, []string{"a.txt.enom", "sub/b.txt.enom"}, relFiles(t, enc), "sources kept")
	require.True(t, e.KeysCleared())
}

func TestEngine_ECBRoundTrip(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	enc := filepath.Join(base, "enc")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"a.txt": "sixteen byte msg", "b/c": "x"})

	opts := fastOpts(model.Encrypt, src, enc)
	opts.Mode = model.ECB
	result, err := New().Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.Contains(t, result.Notes[0], "no integrity check")

	opts = fastOpts(model.Decrypt, enc, out)
	opts.Mode = model.ECB
	result, err = New().Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.True(t, result.Success)

	got, err := os.ReadFile(filepath.Join(out, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "sixteen byte msg", string(got))
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestEngine_InPlaceWithDelete(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	opts := fastOpts(model.Encrypt, src, "")
	opts.DeleteSource = true
	_, err := New().Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt.enom", "sub/b.txt.enom"}, relFiles(t, src))

	opts = fastOpts(model.Decrypt, src, "")
	opts.Shred = &pipeline.ShredOptions{RandomIterations: 1, RenameTimes: 1}
	_, err = New().Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "sub/b.txt"}, relFiles(t, src))
}

func TestEngine_DryRun(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dst := filepath.Join(base, "dst")
	writeTree(t, src, map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	opts := fastOpts(model.Encrypt, src, dst)
	opts.DryRun = true
	opts.DeleteSource = true
	result, err := New().Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)

	require.True(t, result.DryRun)
	require.Equal(t, uint64(2), result.SuccessCount)
	_, statErr := os.Stat(dst)
	require.True(t, os.IsNotExist(statErr), "dry run creates no directories")
	require.Equal(t, []string{"a.txt", "sub/b.txt"}, relFiles(t, src))
}

func TestEngine_AnonymizeWithManifest(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	enc := filepath.Join(base, "enc")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"report.pdf": "pdf", "sub/notes.txt": "notes"})

	store, err := manifest.Open(filepath.Join(base, "names.db"))
	require.NoError(t, err)
	defer store.Close()

	e := New(WithNameBook(store))

	opts := fastOpts(model.Encrypt, src, enc)
	opts.Anonymize = true
	_, err = e.Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)

	for _, rel := range relFiles(t, enc) {
		require.NotContains(t, rel, "report")
		require.NotContains(t, rel, "notes")
		require.True(t, strings.HasSuffix(rel, model.EncryptedExt))
	}
	n, err := store.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	result, err := e.Run(fastOpts(model.Decrypt, enc, out), creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, []string{"report.pdf", "sub/notes.txt"}, relFiles(t, out))
}

// =============================================================================
// SINGLE FILE TESTS
// =============================================================================

func TestEngine_RunFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"one.txt": "just one", "other.txt": "untouched"})

	e := New()
	result, err := e.RunFile(fastOpts(model.Encrypt, filepath.Join(dir, "one.txt"), ""), creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.SuccessCount)
	require.Equal(t, []string{"one.txt", "one.txt.enom", "other.txt"}, relFiles(t, dir))

	out := filepath.Join(dir, "out")
	result, err = e.RunFile(fastOpts(model.Decrypt, filepath.Join(dir, "one.txt.enom"), out), creds("pw", "saltsalt"))
	require.NoError(t, err)
	require.True(t, result.Success)

	got, err := os.ReadFile(filepath.Join(out, "one.txt"))
	require.NoError(t, err)
	require.Equal(t, "just one", string(got))
}

func TestEngine_RunFileAlreadyEncrypted(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"x.enom": "cipher"})

	_, err := New().RunFile(fastOpts(model.Encrypt, filepath.Join(dir, "x.enom"), ""), creds("pw", "saltsalt"))
	var ae *walk.AlreadyEncryptedError
	require.True(t, errors.As(err, &ae))
}

// =============================================================================
// OBSERVATION TESTS
// =============================================================================

func TestEngine_FinalProgressSnapshot(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a": "1", "b": "2", "c": "3"})

	obs := &snapshots{}
	e := New(WithObserver(obs), WithProgressInterval(time.Millisecond))
	_, err := e.Run(fastOpts(model.Encrypt, src, ""), creds("pw", "saltsalt"))
	require.NoError(t, err)

	final := obs.last()
	require.True(t, final.Final)
	require.Equal(t, uint64(3), final.Current)
	require.Equal(t, uint64(3), final.Total)
	require.Equal(t, 100.0, final.Percentage)
	require.Contains(t, final.Message, "3 file(s) encrypted")
}

func TestEngine_VerboseLogging(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	writeTree(t, src, map[string]string{"sub/a": "a"})

	logger, hook := logtest.NewNullLogger()
	opts := fastOpts(model.Encrypt, src, filepath.Join(base, "dst"))
	opts.Verbose = true
	_, err := New(WithLogger(logger)).Run(opts, creds("pw", "saltsalt"))
	require.NoError(t, err)

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	require.Contains(t, messages, "directory created")
	require.Contains(t, messages, "file encrypted")
}

// =============================================================================
// SCAN TESTS
// =============================================================================

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "hello", "sub/b.txt": "0123456789", "sub/c.enom": "x"})

	info, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, 3, info.Files)
	require.Equal(t, 1, info.Folders)
	require.Equal(t, 1, info.Encrypted)
	require.Equal(t, uint64(16), info.TotalSize)
	require.Equal(t, "16 B", info.HumanSize)
	require.Equal(t, runtime.GOOS, info.OS)
}
