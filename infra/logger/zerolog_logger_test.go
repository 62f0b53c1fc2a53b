package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	var buf bytes.Buffer
	l := NewZerologLogger("test", &buf, "debug")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
	assert.Contains(t, buf.String(), "info test")
}

func TestZerologLoggerJSONComponent(t *testing.T) {
	t.Setenv("APP_ENV", "")
	var buf bytes.Buffer
	l := NewZerologLogger("sim", &buf, "")
	l.Debugf("hidden")
	l.Infof("replan %d", 3)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	assert.Equal(t, "sim", m["component"])
	assert.Equal(t, "replan 3", m["message"])
}

func TestNewSelectsBackend(t *testing.T) {
	t.Setenv("LOG_BACKEND", "logrus")
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	l := NewWithWriter("sweep", &buf)
	_, ok := l.(*LogrusLogger)
	require.True(t, ok)
	l.Debugw("rate done", map[string]any{"rate": 0.5})
	out := buf.String()
	assert.Contains(t, out, "component=sweep")
	assert.Contains(t, out, "rate=0.5")

	t.Setenv("LOG_BACKEND", "")
	_, ok = NewWithWriter("x", &buf).(*ZerologLogger)
	assert.True(t, ok)
}
