package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNew_RespectsLevel(t *testing.T) {
	l, err := New("error")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestGet_ReturnsSameInstance(t *testing.T) {
	a := Get()
	b := Get()
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.NotNil(t, Named("matching"))
}
