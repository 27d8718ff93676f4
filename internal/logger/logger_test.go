package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_RejectsUnknownFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := Logger()
	require.Error(t, l.Configure("info", "xml", "stdout", 0))
}

func TestConfigure_RejectsUnknownLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := Logger()
	require.Error(t, l.Configure("loud", "json", "stdout", 0))
}

func TestConfigure_FileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := Logger()
	path := filepath.Join(t.TempDir(), "logs", "harvester.log")
	require.NoError(t, l.Configure("debug", "text", path, 7))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestWithComponent_JSONFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := Logger()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithComponent("poller").WithField("batch", 2).Info("tick")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "poller", out["component"])
	assert.Equal(t, "tick", out["message"])
	assert.EqualValues(t, 2, out["batch"])
}
