package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNewWriterLogger_TraceIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, Config{Level: "debug", Format: FormatJSON})

	ctx := ContextWithTraceID(context.Background(), "trace-123")
	logger.Info().Ctx(ctx).Str("operation", "test").Msg("hello")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "trace-123", event[TraceIDField])
	assert.Equal(t, "hello", event["message"])
	assert.Equal(t, "test", event["operation"])
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := ComponentLogger(NewWriterLogger(&buf, Config{}), "syncer")
	logger.Warn().Msg("careful")
	assert.Contains(t, buf.String(), `"component":"syncer"`)
}

func TestFromContext(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		l.Info().Msg("discarded")
	})

	t.Run("uses logger stored in context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWriterLogger(&buf, Config{})
		ctx := logger.WithContext(context.Background())
		FromContext(ctx).Info().Msg("stored")
		assert.Contains(t, buf.String(), "stored")
	})
}

func TestGetOrGenerateTraceID(t *testing.T) {
	generated := GetOrGenerateTraceID(context.Background())
	assert.Len(t, generated, 26)

	ctx := ContextWithTraceID(context.Background(), generated)
	assert.Equal(t, generated, GetOrGenerateTraceID(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestNewLoggerWithPath(t *testing.T) {
	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "agrovihan.log")
		result := NewLoggerWithPath(Config{Output: OutputFile, File: path})
		t.Cleanup(func() { _ = result.Close() })

		assert.True(t, result.UsingFile)
		assert.False(t, result.FallbackUsed)
		assert.Equal(t, path, result.FilePath)
		assert.FileExists(t, path)
	})

	t.Run("missing file falls back", func(t *testing.T) {
		result := NewLoggerWithPath(Config{Output: OutputFile})
		assert.False(t, result.UsingFile)
		assert.True(t, result.FallbackUsed)
		assert.NotEmpty(t, result.FallbackReason)
		assert.NoError(t, result.Close())
	})
}

func TestPrintMessages(t *testing.T) {
	var buf bytes.Buffer
	PrintLogPathMessage(&buf, "/tmp/a.log")
	PrintFallbackWarning(&buf, "denied")
	assert.Contains(t, buf.String(), "Logging to /tmp/a.log")
	assert.Contains(t, buf.String(), "denied")
}
