package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftingwater/MemoryVault/internal/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	log.Info("hidden")
	log.Warn("shown", "card_id", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, float64(3), entry["card_id"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "DEBUG", Format: "text"}, &buf)

	log.Debug("reviewed", "box", 2)
	assert.Contains(t, buf.String(), "msg=reviewed")
	assert.Contains(t, buf.String(), "box=2")
}

func TestNewUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "loud", Format: "json"}, &buf)

	log.Debug("hidden")
	assert.Empty(t, buf.String())
	log.Info("shown")
	assert.NotEmpty(t, buf.String())
}
