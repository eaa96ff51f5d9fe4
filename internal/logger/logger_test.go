package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zap.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zap.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zap.InfoLevel, ParseLevel("verbose"))
}

func TestNew(t *testing.T) {
	lgr, err := New("warn", "json")
	require.NoError(t, err)
	assert.False(t, lgr.Core().Enabled(zap.InfoLevel))
	assert.True(t, lgr.Core().Enabled(zap.WarnLevel))

	lgr, err = New("debug", "console")
	require.NoError(t, err)
	assert.True(t, lgr.Core().Enabled(zap.DebugLevel))
}
