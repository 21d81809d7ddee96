package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newBufferedSlogHandler(buf *bytes.Buffer) *SlogHandler {
	return NewSlogHandlerWithLogger(zerolog.New(buf))
}

func TestSlogHandlerHandleWritesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	h := newBufferedSlogHandler(&buf)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "agent started", 0)
	record.AddAttrs(slog.String("component", "agentcore"))

	assert.NoError(t, h.Handle(context.Background(), record))
	assert.Contains(t, buf.String(), "agent started")
	assert.Contains(t, buf.String(), `"component":"agentcore"`)
}

func TestSlogHandlerWithAttrsPersistsAcrossHandle(t *testing.T) {
	var buf bytes.Buffer
	h := newBufferedSlogHandler(&buf)
	withAttrs := h.WithAttrs([]slog.Attr{slog.String("service", "ingestd")})

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "circuit breaker tripped", 0)
	assert.NoError(t, withAttrs.Handle(context.Background(), record))
	assert.Contains(t, buf.String(), `"service":"ingestd"`)
}

func TestSlogHandlerWithGroupPrefixesNestedKeys(t *testing.T) {
	var buf bytes.Buffer
	h := newBufferedSlogHandler(&buf)
	grouped := h.WithGroup("breaker")

	record := slog.NewRecord(time.Now(), slog.LevelError, "state change", 0)
	record.AddAttrs(slog.String("state", "open"))
	assert.NoError(t, grouped.Handle(context.Background(), record))
	assert.Contains(t, buf.String(), `"breaker.state":"open"`)
}

func TestSlogHandlerEnabledRespectsUnderlyingLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestNewSlogLoggerProducesWorkingLogger(t *testing.T) {
	logger := NewSlogLogger()
	assert.NotNil(t, logger)
	logger.Info("smoke test")
}
