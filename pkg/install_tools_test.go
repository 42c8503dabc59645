package pkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTools(t *testing.T) {
	dir := t.TempDir()
	toolsFile := filepath.Join(dir, "tools.go")
	require.NoError(t, os.WriteFile(toolsFile, []byte(`//go:build tools

package main

import (
	_ "github.com/cortesi/modd/cmd/modd"
	_ "golang.org/x/tools/cmd/goimports"
)
`), 0600))

	tools, err := ListTools(toolsFile)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"github.com/cortesi/modd/cmd/modd",
		"golang.org/x/tools/cmd/goimports",
	}, tools)
}

func TestListToolsMissingFile(t *testing.T) {
	_, err := ListTools(filepath.Join(t.TempDir(), "tools.go"))
	assert.Error(t, err)
}
