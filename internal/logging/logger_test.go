package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kiranshivaraju/a1gen/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProductionEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("production", &buf)

	logger.Info().Str("task_id", "t-1").Msg("submitted")
	logger.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "submitted", line["message"])
	assert.Equal(t, "t-1", line["task_id"])
	assert.Equal(t, "a1gen", line["service"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewWithWriter_DevelopmentIsDebugConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("development", &buf)

	logger.Debug().Msg("visible")

	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
