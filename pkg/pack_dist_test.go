package pkg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJunk(path string) error {
	return os.WriteFile(path, []byte("JUNKJUNKJUNKJUNKJUNK"), 0600)
}

func TestDistWriterRoundtrip(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "site.dist")

	writer, err := NewDistWriter(bundle)
	require.NoError(t, err)

	require.NoError(t, writer.WriteFile("index.html", strings.NewReader("<html></html>")))

	writer.OpenDirectory("assets")
	require.NoError(t, writer.WriteFile("assimilation_bg.wasm", strings.NewReader("not actually wasm")))
	require.NoError(t, writer.CloseDirectory())

	require.NoError(t, writer.Close())

	items, err := ListDistItems(bundle)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byPath := map[string]DistItem{}
	for _, item := range items {
		byPath[item.Path] = item
	}

	require.Contains(t, byPath, "index.html")
	require.Contains(t, byPath, "assets/assimilation_bg.wasm")

	content, err := ReadDistItem(bundle, byPath["index.html"])
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(content))

	content, err = ReadDistItem(bundle, byPath["assets/assimilation_bg.wasm"])
	require.NoError(t, err)
	assert.Equal(t, "not actually wasm", string(content))
}

func TestDistWriterUnbalancedDirectories(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDistWriter(filepath.Join(dir, "broken.dist"))
	require.NoError(t, err)

	writer.OpenDirectory("assets")
	assert.Error(t, writer.Close())
}

func TestCloseDirectoryOnRoot(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDistWriter(filepath.Join(dir, "bundle.dist"))
	require.NoError(t, err)

	assert.Error(t, writer.CloseDirectory())
	writer.OpenDirectory("sub")
	require.NoError(t, writer.CloseDirectory())
	require.NoError(t, writer.Close())
}

func TestListDistItemsRejectsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.bin")
	require.NoError(t, writeJunk(other))

	_, err := ListDistItems(other)
	assert.Error(t, err)
}
