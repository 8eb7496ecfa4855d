package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(buf *bytes.Buffer, level string) Config {
	cfg := DefaultConfig()
	cfg.Output = buf
	cfg.Level = level
	cfg.ServiceName = "ohq-statistics-test"
	return cfg
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(newBufferedLogger(&buf, "info"))

	ctx := WithRunID(WithUserID(WithRequestID(context.Background(), "req-1"), "user-1"), "run-1")
	logger.InfoContext(ctx, "batch operation started")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "batch operation started", entry["msg"])
	assert.Equal(t, "ohq-statistics-test", entry["service"])
	assert.Equal(t, "development", entry["environment"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "run-1", entry["run_id"])
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(newBufferedLogger(&buf, "warn"))

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Equal(t, "WARN", decodeLine(t, &buf)["level"])
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(newBufferedLogger(&buf, "info"))

	ctx := WithRequestID(context.Background(), "req-9")
	LoggerFromContext(ctx, base).Info("handled")

	assert.Equal(t, "req-9", decodeLine(t, &buf)["request_id"])
	assert.Equal(t, "req-9", GetRequestID(ctx))
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestLogPanic(t *testing.T) {
	var buf bytes.Buffer
	LogPanic(NewLogger(newBufferedLogger(&buf, "info")), "boom")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "boom", entry["panic"])
	assert.Contains(t, entry["stack_trace"], "goroutine")
}
