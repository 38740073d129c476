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
	l := New("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestJSONOutputCarriesComponent(t *testing.T) {
	Configure("debug", "json")
	var buf bytes.Buffer
	l := NewWithWriter("solver", &buf)
	l.Infof("solve done in %dms", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output is not JSON")
	assert.Equal(t, "solver", entry["component"])
	assert.Equal(t, "solve done in 42ms", entry["message"])
}

func TestConsoleFormat(t *testing.T) {
	Configure("info", "console")
	defer Configure("info", "json")
	var buf bytes.Buffer
	l := NewWithWriter("cli", &buf)
	l.Infof("hello")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected console output, got JSON: %s", out)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("missing message in output: %s", out)
	}
}

func TestConfigureLevelFiltersDebug(t *testing.T) {
	Configure("warn", "json")
	defer Configure("debug", "json")
	var buf bytes.Buffer
	l := NewWithWriter("quiet", &buf)
	l.Debugf("hidden")
	l.Infof("also hidden")
	l.Warnf("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level entries leaked: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn entry missing: %s", out)
	}
}
