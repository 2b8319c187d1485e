package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		logInfo bool
	}{
		{name: "debug_level", level: "debug", logInfo: true},
		{name: "info_level", level: "info", logInfo: true},
		{name: "warn_level", level: "warn", logInfo: false},
		{name: "invalid_level_defaults_to_info", level: "loud", logInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level, nil)
			log.Info().Msg(testMessage)

			if tt.logInfo {
				assert.Contains(t, buf.String(), testMessage)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestLogEventFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", nil)

	log.Warn().
		Str("api", "achievements").
		Int("status", 503).
		Int64("attempt", 2).
		Bool("network_failure", false).
		Dur("delay", 2*time.Second).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "achievements", entry["api"])
	assert.EqualValues(t, 503, entry["status"])
	assert.EqualValues(t, 2, entry["attempt"])
	assert.Equal(t, false, entry["network_failure"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, testMessage, entry["message"])
}

func TestSensitiveValuesAreMasked(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", nil)

	headers := http.Header{}
	headers.Set("Authorization", "XBL3.0 x=123;abc")
	headers.Set("Signature", "sig")
	headers.Set("Accept", "*/*")

	log.Info().
		Str("authorization", "XBL3.0 x=123;abc").
		Interface("headers", headers).
		Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["authorization"])

	logged, ok := entry["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DefaultMaskValue, logged["Authorization"])
	assert.Equal(t, DefaultMaskValue, logged["Signature"])
	assert.Equal(t, "*/*", logged["Accept"])
}

func TestWithFieldsFiltersSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", nil).WithFields(map[string]any{
		"xbox_user_id": "2533274",
		"token":        "secret-token",
	})

	log.Info().Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "2533274", entry["xbox_user_id"])
	assert.Equal(t, DefaultMaskValue, entry["token"])
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "info", nil)

	t.Run("non_context_returns_original", func(t *testing.T) {
		assert.Same(t, base, base.WithContext("not a context"))
	})

	t.Run("context_without_logger_returns_original", func(t *testing.T) {
		assert.Same(t, base, base.WithContext(context.Background()))
	})

	t.Run("context_logger_is_used", func(t *testing.T) {
		var ctxBuf bytes.Buffer
		zl := zerolog.New(&ctxBuf)
		ctx := zl.WithContext(context.Background())

		base.WithContext(ctx).Info().Msg("from context")
		assert.Contains(t, ctxBuf.String(), "from context")
	})
}

func TestCustomFilterConfig(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", &FilterConfig{SensitiveFields: []string{"gamertag"}})

	log.Info().Str("gamertag", "Major Nelson").Str("token", "visible").Msg(testMessage)

	entry := decodeLine(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["gamertag"])
	assert.Equal(t, "visible", entry["token"])
}

func TestAttemptCounterContext(t *testing.T) {
	ctx := WithAttemptCounter(context.Background())

	IncrementAttemptCounter(ctx)
	IncrementAttemptCounter(ctx)
	AddAttemptElapsed(ctx, int64(time.Millisecond))

	assert.Equal(t, int64(2), GetAttemptCounter(ctx))
	assert.Equal(t, int64(time.Millisecond), GetAttemptElapsed(ctx))

	plain := context.Background()
	IncrementAttemptCounter(plain)
	assert.Equal(t, int64(0), GetAttemptCounter(plain))
	assert.Equal(t, int64(0), GetAttemptElapsed(plain))
}

func TestNopLoggerDiscards(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Error().Str("k", "v").Msg("dropped")
	})
}
