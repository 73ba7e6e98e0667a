package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs_RedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"provider", "gemini", "api_key", "abc", "Authorization", "Bearer x", "dangling"})
	assert.Equal(t, []interface{}{"provider", "gemini", "api_key", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}, out)
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("run_id", "r1").Warn("gap analysis failed", "err", "boom", "token", "t0k")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "gap analysis failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "r1", fields["run_id"])
	assert.Equal(t, "boom", fields["err"])
	assert.Equal(t, "[REDACTED]", fields["token"])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
