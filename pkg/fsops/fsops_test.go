package fsops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("content"), 0600))
}

func TestMoveRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "assimilation.wasm")
	dest := filepath.Join(dir, "assimilation_bg.wasm")
	writeFile(t, src)

	require.NoError(t, Move([]string{src}, dest))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dest)
	assert.NoError(t, err)
}

func TestMoveIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	site := filepath.Join(dir, "site")
	require.NoError(t, os.Mkdir(site, 0770))

	a := filepath.Join(dir, "a.js")
	b := filepath.Join(dir, "b.wasm")
	writeFile(t, a)
	writeFile(t, b)

	require.NoError(t, Move([]string{a, b}, site))

	for _, name := range []string{"a.js", "b.wasm"} {
		_, err := os.Stat(filepath.Join(site, name))
		assert.NoError(t, err, name)
	}
}

func TestMoveMultipleToFileFails(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a)
	writeFile(t, b)

	err := Move([]string{a, b}, filepath.Join(dir, "c"))
	assert.Error(t, err)
}

func TestMoveMissingDestParent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	writeFile(t, src)

	err := Move([]string{src}, filepath.Join(dir, "missing", "a"))
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	writeFile(t, file)

	require.NoError(t, Remove([]string{file}, false, false))
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveDirectoryNeedsRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0770))

	assert.Error(t, Remove([]string{sub}, false, false))
	assert.NoError(t, Remove([]string{sub}, true, false))
}

func TestRemoveMissing(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")

	assert.Error(t, Remove([]string{missing}, false, false))
	assert.NoError(t, Remove([]string{missing}, false, true))
}

func TestMakeDir(t *testing.T) {
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b", "c")
	assert.Error(t, MakeDir([]string{nested}, false))
	require.NoError(t, MakeDir([]string{nested}, true))

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
