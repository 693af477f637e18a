package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		logger, err := NewLogger("warn", "STRUCTURED")
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("console lowercase", func(t *testing.T) {
		logger, err := NewLogger("debug", "console")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("default profile", func(t *testing.T) {
		_, err := NewLogger("info", "")
		require.NoError(t, err)
	})

	t.Run("bad profile", func(t *testing.T) {
		_, err := NewLogger("info", "fancy")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging profile")
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := NewLogger("chatty", "STRUCTURED")
		require.Error(t, err)
	})
}

func TestInitCLILogger(t *testing.T) {
	orig := CLILogger
	defer func() { CLILogger = orig }()

	InitCLILogger("test", false)
	require.NotNil(t, CLILogger)
	assert.False(t, CLILogger.Core().Enabled(zapcore.DebugLevel))

	InitCLILogger("test", true)
	assert.True(t, CLILogger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitTelemetry(t *testing.T) {
	origExporter, origSystem := PrometheusExporter, TelemetrySystem
	defer func() {
		PrometheusExporter, TelemetrySystem = origExporter, origSystem
	}()

	PrometheusExporter, TelemetrySystem = nil, nil
	require.Error(t, TelemetryReady())

	obs, err := InitTelemetry("test")
	require.NoError(t, err)
	require.NotNil(t, obs)
	require.NoError(t, TelemetryReady())

	again, err := InitTelemetry("test")
	require.NoError(t, err)
	assert.Same(t, obs, again)

	families, err := PrometheusExporter.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
