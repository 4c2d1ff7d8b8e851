package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"Verbose": log.DebugLevel,
		"warn":    log.WarnLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"quiet":   log.PanicLevel,
		"silent":  log.PanicLevel,
		"":        log.InfoLevel,
		"bogus":   log.InfoLevel,
	}
	for name, expected := range tests {
		SetLogLevel(name)
		assert.Equal(t, expected, log.GetLevel(), "level %q", name)
	}
}

func TestLineFormatter(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "backup failed\n",
		Data:    log.Fields{"zeta": 1, "path": "/tmp/x", "tool": "codex"},
	}

	out, err := (&LineFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2025-03-04 05:06:07] [warn ] backup failed tool=codex path=/tmp/x zeta=1\n", string(out))
}

func TestSetupWritesToFile(t *testing.T) {
	defer Close()

	file := filepath.Join(t.TempDir(), "logs", "ccsw.log")
	require.NoError(t, Setup("debug", file))

	log.WithField("site", "duck").Debug("switched")
	Close()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "switched site=duck"), "log file content: %s", data)
}

func TestSetupDefaultsToStderr(t *testing.T) {
	defer Close()
	t.Setenv(EnvLogLevel, "error")

	require.NoError(t, Setup("", ""))
	assert.Equal(t, log.ErrorLevel, log.GetLevel())
	assert.Equal(t, os.Stderr, Output())

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.Warn("hidden")
	assert.Empty(t, buf.String())
}
