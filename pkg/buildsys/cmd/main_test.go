package cmd

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerAppliesConfiguredLevel(t *testing.T) {
	t.Setenv("TOOL_LOG_LEVEL", "debug")
	assert.Equal(t, zerolog.DebugLevel, newLogger().GetLevel())

	t.Setenv("TOOL_LOG_LEVEL", "error")
	assert.Equal(t, zerolog.ErrorLevel, newLogger().GetLevel())
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Setenv("TOOL_LOG_LEVEL", "not-a-level")
	assert.Equal(t, zerolog.InfoLevel, newLogger().GetLevel())
}
