package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "zimshelf", zerolog.InfoLevel)

	logger.Info().Str("collection_id", "Z").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "zimshelf", line["service"])
	assert.Equal(t, "Z", line["collection_id"])
	assert.Equal(t, "hello", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewWithWriterFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "zimshelf", zerolog.WarnLevel)

	logger.Info().Msg("quiet")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("loud")
	assert.NotZero(t, buf.Len())
}
