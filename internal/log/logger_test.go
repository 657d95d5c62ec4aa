package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureWritesJSONWithServiceField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "shadehub-test", Version: "v0.0.0"})

	L().Info().Str("event", "unit.test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "shadehub-test", entry["service"])
	require.Equal(t, "unit.test", entry["event"])
}

func TestContextCorrelationFieldsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "shadehub-test"})

	ctx := ContextWithRequestID(nil, "req-1")
	ctx = ContextWithTaskID(ctx, "task-1")

	FromContext(ctx).Info().Msg("enriched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "req-1", entry["request_id"])
	require.Equal(t, "task-1", entry["task_id"])
}
