package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlinks/internal/logging"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("loud"))
}

func TestSlogLogger_WritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "info").With("component", "test")

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "account registered", "email", "a@x.com")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "account registered", record["msg"])
	assert.Equal(t, "a@x.com", record["email"])
	assert.Equal(t, "test", record["component"])
	assert.Equal(t, "INFO", record["level"])
}
