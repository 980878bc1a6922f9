package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{" info ", InfoLevel},
		{"warn", WarnLevel},
		{"Warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}

func TestInit_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("session", "abc").Msg("opened")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, "opened", entry["message"])
	assert.Equal(t, "repobridge", entry["service"])
}

func TestInit_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("hidden")
	Debug().Msg("hidden too")
	assert.Zero(t, buf.Len())

	Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
