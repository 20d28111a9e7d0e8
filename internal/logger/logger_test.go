package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)

	_, err = New("info", "xml")
	require.Error(t, err)

	l, err := New("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestZapLoggerWritesEventAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.WarnObj("listing fetch failed", "fetch_error", map[string]any{"source_id": "cnn"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "listing fetch failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "fetch_error", ctx["event"])
	assert.Equal(t, "cnn", ctx["source_id"])
}

func TestEnsure(t *testing.T) {
	assert.Equal(t, NopLogger{}, Ensure(nil))
	l := NewFromZap(nil)
	assert.Same(t, l, Ensure(l))
}
