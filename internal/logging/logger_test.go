package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitAndLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Msg("should not appear")
	assert.Empty(t, buf.String())

	Warn().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	WithComponent("detector").Info().Msg("scored event")
	assert.Contains(t, buf.String(), `"component":"detector"`)
}
