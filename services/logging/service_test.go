package logging

import (
	"testing"

	"github.com/authmesh/authcore/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewService(t *testing.T) {
	svc, err := NewService(config.LogConfig{Level: "debug", Format: "json", OutputPath: "stdout"})

	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.NotNil(t, svc.Logger())
}

func TestNewService_ConsoleFormat(t *testing.T) {
	svc, err := NewService(config.LogConfig{Level: "warn", Format: "console"})

	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestNilServiceIsSafe(t *testing.T) {
	var svc *Service

	assert.Nil(t, svc.Logger())
	assert.NoError(t, svc.Sync())

	svc.Debug("debug")
	svc.Info("info")
	svc.Warn("warn")
	svc.Error("error")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.level))
		})
	}
}
