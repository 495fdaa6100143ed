package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out), "logger output should be valid JSON")
	return out
}

func TestNew_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Service: "order-sync-gateway", Version: "1.4.0", Out: &buf})

	log.Info().Str("key", "value").Msg("test message")

	out := decodeLine(t, &buf)
	assert.Equal(t, "test message", out["message"])
	assert.Equal(t, "value", out["key"])
	assert.Equal(t, "info", out["level"])
	assert.Equal(t, "order-sync-gateway", out["service"])
	assert.Equal(t, "1.4.0", out["version"])
	assert.Contains(t, out, "time", "should include timestamp")
	assert.Contains(t, out, "caller")
}

func TestNew_OmitsEmptyServiceFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Out: &buf})

	log.Info().Msg("bare")

	out := decodeLine(t, &buf)
	assert.NotContains(t, out, "service")
	assert.NotContains(t, out, "version")
}

func TestNew_LevelFiltering(t *testing.T) {
	cases := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, false},
		{"error", false, false},
		{"", false, true},
		{"verbose", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Options{Level: tc.level, Out: &buf})

			log.Debug().Msg("debug")
			assert.Equal(t, tc.debugSeen, buf.Len() > 0)

			buf.Reset()
			log.Info().Msg("info")
			assert.Equal(t, tc.infoSeen, buf.Len() > 0)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNew_PrettyMode(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Pretty: true, Service: "osg", Out: &buf})

	log.Info().Msg("pretty mode test")
	assert.Contains(t, buf.String(), "pretty mode test")
	assert.Contains(t, buf.String(), "osg")
}

func TestCorrelationContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Out: &buf})

	ctx := WithCorrelationID(context.Background(), base, "a1b2c3d4e5f6")
	assert.Equal(t, "a1b2c3d4e5f6", CorrelationID(ctx))

	FromContext(ctx, zerolog.Nop()).Info().Msg("tagged")

	out := decodeLine(t, &buf)
	assert.Equal(t, "a1b2c3d4e5f6", out[CorrelationField])
}

func TestFromContext_Fallback(t *testing.T) {
	var buf bytes.Buffer
	fallback := New(Options{Out: &buf})

	FromContext(context.Background(), fallback).Info().Msg("fallback")
	FromContext(nil, fallback).Info().Msg("nil context")

	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Empty(t, CorrelationID(context.Background()))
}
