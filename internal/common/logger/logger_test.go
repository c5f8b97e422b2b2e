package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_ProductionLevel(t *testing.T) {
	log, err := New(Options{Env: "production", Name: "service-booking", Level: "warn"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_DevelopmentIsDebug(t *testing.T) {
	log, err := New(Options{Env: "development", Name: "service-booking"})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_FileSink(t *testing.T) {
	dir := t.TempDir()

	log, err := New(Options{Env: "production", Name: "service-booking", FilePath: dir})
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	_, err = os.Stat(filepath.Join(dir, "service-booking.log"))
	assert.NoError(t, err)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Env: "production", Level: "loud"})
	assert.Error(t, err)
}
