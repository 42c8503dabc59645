package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(vars map[string]string) Env {
	return func(name string) string {
		return vars[name]
	}
}

func TestShouldPublish(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want bool
	}{
		{
			name: "push to source branch",
			vars: map[string]string{
				"GITHUB_EVENT_NAME": "push",
				"GITHUB_REF":        "refs/heads/master",
			},
			want: true,
		},
		{
			name: "push to other branch",
			vars: map[string]string{
				"GITHUB_EVENT_NAME": "push",
				"GITHUB_REF":        "refs/heads/feature",
			},
			want: false,
		},
		{
			name: "pull request targeting source branch",
			vars: map[string]string{
				"GITHUB_EVENT_NAME": "pull_request",
				"GITHUB_REF":        "refs/heads/master",
			},
			want: false,
		},
		{
			name: "pull request target event",
			vars: map[string]string{
				"GITHUB_EVENT_NAME": "pull_request_target",
				"GITHUB_REF":        "refs/heads/master",
			},
			want: false,
		},
		{
			name: "tag ref",
			vars: map[string]string{
				"GITHUB_EVENT_NAME": "push",
				"GITHUB_REF":        "refs/tags/v1.0.0",
			},
			want: false,
		},
		{
			name: "outside CI",
			vars: map[string]string{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldPublish(envMap(tt.vars), "master")
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "assets"), 0770))
	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git"), 0770))
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.html"), []byte("<html>"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "assets", "game.wasm"), []byte("wasm"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref"), 0600))

	require.NoError(t, CopyTree(src, dest))

	content, err := os.ReadFile(filepath.Join(dest, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(content))

	content, err = os.ReadFile(filepath.Join(dest, "assets", "game.wasm"))
	require.NoError(t, err)
	assert.Equal(t, "wasm", string(content))

	_, err = os.Stat(filepath.Join(dest, ".git"))
	assert.True(t, os.IsNotExist(err))
}
