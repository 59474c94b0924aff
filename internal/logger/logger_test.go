package logger_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yellowduckie/duckline/internal/logger"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(logger.Options{Level: "debug", Output: &buf})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(logger.Options{Output: &buf})
	require.NoError(t, err)
	l.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := logger.New(logger.Options{Level: "loud"})
	assert.Error(t, err)
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duckline.log")
	l, err := logger.New(logger.Options{Level: "info", File: path})
	require.NoError(t, err)

	logger.Component(l, "pipeline").WithField("rows", 3).Info("loaded")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "loaded", entry["message"])
	assert.Equal(t, "pipeline", entry["component"])
	assert.EqualValues(t, 3, entry["rows"])
}

func TestWithLoadID(t *testing.T) {
	entry, id := logger.WithLoadID(logger.Discard())
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, entry.Data["load_id"])

	_, other := logger.WithLoadID(nil)
	assert.NotEqual(t, id, other)
}

func TestComponentToleratesNilLogger(t *testing.T) {
	var l *logrus.Logger
	var e *logrus.Entry
	assert.NotPanics(t, func() {
		logger.Component(l, "watch").Info("dropped")
		logger.Component(e, "watch").Info("dropped")
		logger.Component(nil, "watch").Info("dropped")
		entry, id := logger.WithLoadID(l)
		entry.Info("dropped")
		assert.NotEmpty(t, id)
	})
}
