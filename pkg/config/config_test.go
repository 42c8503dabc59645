package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "site", cfg.Site.Dir)
	assert.Equal(t, "assimilation", cfg.Site.Artifact)
	assert.Equal(t, "gh-pages", cfg.Publish.Branch)
	assert.Equal(t, "master", cfg.Publish.SourceBranch)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TOOL_PUBLISH_BRANCH", "pages")
	t.Setenv("TOOL_LOG_LEVEL", "debug")

	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	assert.Equal(t, "pages", cfg.Publish.Branch)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())
}

func TestValidate(t *testing.T) {
	cfg, loader := Loader()
	require.NoError(t, loader.Load())

	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg.Log.Level = "info"
	cfg.Publish.SourceBranch = cfg.Publish.Branch
	assert.Error(t, cfg.Validate())

	cfg.Publish.SourceBranch = "master"
	cfg.Site.Dir = ""
	assert.Error(t, cfg.Validate())
}
