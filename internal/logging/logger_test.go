package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptvault/internal/config"
)

func TestNewHonoursLevel(t *testing.T) {
	logger, err := New("production", config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	defer logger.Sync()

	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewDevelopmentDefaults(t *testing.T) {
	logger, err := New("development", config.LoggingConfig{})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("development", config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
