package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("production defaults to info", func(t *testing.T) {
		log, err := NewLogger(Options{ServiceName: "orchid-store"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("explicit level", func(t *testing.T) {
		log, err := NewLogger(Options{ServiceName: "orchid-store", Level: "warn"})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("development enables debug", func(t *testing.T) {
		log, err := NewLogger(Options{ServiceName: "orchid-store", Development: true})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger(Options{Level: "loud"})
		assert.Error(t, err)
	})
}
