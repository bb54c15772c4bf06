package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"pdf-rag-chat/internal/config"
)

func TestNew(t *testing.T) {
	logger, err := New(config.AppConfig{Environment: "production", LogLevel: "warn", LogFormat: "json"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewInvalid(t *testing.T) {
	_, err := New(config.AppConfig{LogLevel: "loud", LogFormat: "json"})
	assert.ErrorContains(t, err, "invalid log level")

	_, err = New(config.AppConfig{LogLevel: "info", LogFormat: "xml"})
	assert.ErrorContains(t, err, "invalid log format")
}
