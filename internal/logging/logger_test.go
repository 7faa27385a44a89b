package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Warn("remote query failed", "error", errors.New("timeout"), "domain", "event")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "remote query failed", entry["msg"])
	assert.Equal(t, "timeout", entry["err"])
	assert.Equal(t, "event", entry["domain"])
	assert.NotContains(t, entry, "error")
}

func TestNewNop_DiscardsEverything(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() { logger.Error("nothing", "error", errors.New("x")) })
}
