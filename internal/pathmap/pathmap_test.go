// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pathmap

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/enomcrypt/internal/model"
)

func p(parts ...string) string {
	return filepath.Join(append([]string{string(filepath.Separator)}, parts...)...)
}

type memBook map[string]string

func (b memBook) Record(anon, original string) error {
	b[anon] = original
	return nil
}

func (b memBook) Lookup(anon string) (string, bool, error) {
	v, ok := b[anon]
	return v, ok, nil
}

type brokenBook struct{}

func (brokenBook) Record(string, string) error { return errors.New("disk full") }
func (brokenBook) Lookup(string) (string, bool, error) {
	return "", false, errors.New("disk full")
}

// =============================================================================
// MAP TESTS
// =============================================================================

func TestMap_Encrypt(t *testing.T) {
	got, err := Map(p("data", "src", "sub", "b.txt"), p("data", "src"), p("out"), model.Encrypt)
	require.NoError(t, err)
	require.Equal(t, p("out", "sub", "b.txt.enom"), got)
}

func TestMap_Decrypt(t *testing.T) {
	got, err := Map(p("out", "sub", "b.txt.enom"), p("out"), p("restored"), model.Decrypt)
	require.NoError(t, err)
	require.Equal(t, p("restored", "sub", "b.txt"), got)
}

func TestMap_DecryptStripsOnlyTrailingMarker(t *testing.T) {
	got, err := Map(p("in", "a.enom.dir", "notes.enom.txt"), p("in"), p("out"), model.Decrypt)
	require.NoError(t, err)
	require.Equal(t, p("out", "a.enom.dir", "notes.enom.txt"), got)
}

func TestMap_InPlace(t *testing.T) {
	got, err := Map(p("src", "a.txt"), p("src"), p("src"), model.Encrypt)
	require.NoError(t, err)
	require.Equal(t, p("src", "a.txt.enom"), got)
}

// A source root that is a substring of an unrelated component is not replaced.
func TestMap_SubstringCollision(t *testing.T) {
	got, err := Map(p("data", "data", "data-copy", "x.txt"), p("data"), p("t"), model.Encrypt)
	require.NoError(t, err)
	require.Equal(t, p("t", "data", "data-copy", "x.txt.enom"), got)

	got, err = Map(p("a", "ab", "a", "f"), p("a"), p("z"), model.Encrypt)
	require.NoError(t, err)
	require.Equal(t, p("z", "ab", "a", "f.enom"), got)
}

func TestMap_OutsideRoot(t *testing.T) {
	_, err := Map(p("srcfoo", "a.txt"), p("src"), p("out"), model.Encrypt)
	require.ErrorIs(t, err, ErrOutsideRoot)

	_, err = Map(p("elsewhere", "a.txt"), p("src"), p("out"), model.Encrypt)
	require.ErrorIs(t, err, ErrOutsideRoot)
}

func TestMapDir(t *testing.T) {
	got, err := MapDir(p("src"), p("src"), p("dst"))
	require.NoError(t, err)
	require.Equal(t, p("dst"), got)

	got, err = MapDir(p("src", "sub", "deep"), p("src"), p("dst"))
	require.NoError(t, err)
	require.Equal(t, p("dst", "sub", "deep"), got)
}

func TestMap_Windows(t *testing.T) {
	if filepath.Separator != '\\' {
		t.Skip("windows paths")
	}
	got, err := Map(`C:\src\a.txt`, `C:\src`, `D:\dst`, model.Encrypt)
	require.NoError(t, err)
	require.Equal(t, `D:\dst\a.txt.enom`, got)
}

// =============================================================================
// MAPPER TESTS
// =============================================================================

func TestMapper_Plain(t *testing.T) {
	m := &Mapper{SourceRoot: p("src"), TargetRoot: p("dst"), Operation: model.Encrypt}
	got, err := m.Map(p("src", "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, p("dst", "sub", "b.txt.enom"), got)
}

func TestMapper_AnonymizeOneWay(t *testing.T) {
	m := &Mapper{SourceRoot: p("src"), TargetRoot: p("dst"), Operation: model.Encrypt, Anonymize: true}

	got, err := m.Map(p("src", "sub", "secret-plans.txt"))
	require.NoError(t, err)
	require.Equal(t, p("dst", "sub"), filepath.Dir(got), "directory structure is kept")

	base := filepath.Base(got)
	require.True(t, strings.HasSuffix(base, model.EncryptedExt))
	require.NotContains(t, base, "secret")
	require.Len(t, strings.TrimSuffix(base, model.EncryptedExt), 36, "uuid")

	other, err := m.Map(p("src", "sub", "secret-plans.txt"))
	require.NoError(t, err)
	require.NotEqual(t, got, other, "every mapping gets a fresh identifier")
}

func TestMapper_AnonymizeIgnoredOnDecrypt(t *testing.T) {
	m := &Mapper{SourceRoot: p("dst"), TargetRoot: p("out"), Operation: model.Decrypt, Anonymize: true}
	got, err := m.Map(p("dst", "a.txt.enom"))
	require.NoError(t, err)
	require.Equal(t, p("out", "a.txt"), got)
}

func TestMapper_AnonymizeRoundTrip(t *testing.T) {
	book := memBook{}
	enc := &Mapper{
		SourceRoot: p("src"),
		TargetRoot: p("dst"),
		Operation:  model.Encrypt,
		Anonymize:  true,
		Names:      book,
		newID:      func() string { return "0000-id" },
	}

	anon, err := enc.Map(p("src", "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, p("dst", "sub", "0000-id.enom"), anon)
	require.Equal(t, "sub/b.txt", book["0000-id.enom"])

	dec := &Mapper{SourceRoot: p("dst"), TargetRoot: p("restored"), Operation: model.Decrypt, Names: book}
	got, err := dec.Map(anon)
	require.NoError(t, err)
	require.Equal(t, p("restored", "sub", "b.txt"), got)

	// Unrecorded names fall back to marker stripping.
	got, err = dec.Map(p("dst", "plain.txt.enom"))
	require.NoError(t, err)
	require.Equal(t, p("restored", "plain.txt"), got)
}

func TestMapper_NameBookErrors(t *testing.T) {
	enc := &Mapper{SourceRoot: p("src"), TargetRoot: p("dst"), Operation: model.Encrypt, Anonymize: true, Names: brokenBook{}}
	_, err := enc.Map(p("src", "a.txt"))
	require.Error(t, err)

	dec := &Mapper{SourceRoot: p("dst"), TargetRoot: p("out"), Operation: model.Decrypt, Names: brokenBook{}}
	_, err = dec.Map(p("dst", "a.enom"))
	require.Error(t, err)
}
