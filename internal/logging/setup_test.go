package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterRoutesOnlyErrorsToErrorLog(t *testing.T) {
	var console, errorLog bytes.Buffer
	logger := zerolog.New(NewWriter(&console, &errorLog)).With().Timestamp().Logger()

	logger.Info().Msg("frame read")
	logger.Warn().Msg("sensor stalled")
	logger.Error().Str("sensor", "camera").Msg("Unable to read the input")

	assert.Contains(t, console.String(), "frame read")
	assert.Contains(t, console.String(), "Unable to read the input")

	lines := strings.Split(strings.TrimSpace(errorLog.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "ERR")
	assert.Contains(t, lines[0], "Unable to read the input")
	assert.Contains(t, lines[0], "sensor=camera")
	assert.NotContains(t, errorLog.String(), "\x1b[", "error log must not carry color codes")
}

func TestOpenErrorLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "errors.log")

	f, err := OpenErrorLog(path)
	require.NoError(t, err)
	_, err = f.WriteString("first\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenErrorLog(path)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestNewRunIDUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
