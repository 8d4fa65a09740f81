package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		debugShown bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
		{"unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, tt.level)
			logger.Debug("debug message")
			assert.Equal(t, tt.debugShown, strings.Contains(buf.String(), "debug message"))
		})
	}
}

func TestErr_NilError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("operation completed", Err(nil))
	assert.NotContains(t, buf.String(), "error=")
}

func TestErr_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("operation failed", Err(errors.New("boom")))
	assert.Contains(t, buf.String(), "error=boom")
}

func TestAnonymizeEmail(t *testing.T) {
	assert.Empty(t, AnonymizeEmail(""))

	h1 := AnonymizeEmail("user@example.com")
	h2 := AnonymizeEmail("user@example.com")
	h3 := AnonymizeEmail("other@example.com")

	assert.True(t, strings.HasPrefix(h1, "user:"))
	assert.Equal(t, h1, h2, "hashing must be deterministic")
	assert.NotEqual(t, h1, h3)
	assert.NotContains(t, h1, "example.com")
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	assert.Equal(t, "[token:6 chars]", SanitizeToken("secret"))
	assert.NotContains(t, SanitizeToken("ya29.supersecret"), "supersecret")
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithCalendar(WithOperation(logger, "events.list"), "primary").Info("fetched page")

	out := buf.String()
	assert.Contains(t, out, "operation=events.list")
	assert.Contains(t, out, "calendar=primary")
}
