// Package logging configures the process-wide logrus logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EnvLogLevel overrides the default level when no flag is given
const EnvLogLevel = "CCSW_LOG_LEVEL"

var (
	writerMu  sync.Mutex
	logWriter *lumberjack.Logger
)

// fieldOrder lists the fields printed first; others follow sorted
var fieldOrder = []string{"tool", "site", "path", "backup"}

// LineFormatter renders `[time] [level] message key=value ...`
type LineFormatter struct{}

// Format implements logrus.Formatter
func (f *LineFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}
	fmt.Fprintf(buffer, "[%s] [%-5s] %s", entry.Time.Format("2006-01-02 15:04:05"), level, strings.TrimRight(entry.Message, "\r\n"))

	for _, k := range orderedKeys(entry.Data) {
		fmt.Fprintf(buffer, " %s=%v", k, entry.Data[k])
	}
	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

func orderedKeys(data log.Fields) []string {
	keys := make([]string, 0, len(data))
	seen := make(map[string]bool, len(fieldOrder))
	for _, k := range fieldOrder {
		if _, ok := data[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range data {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// SetLogLevel maps a level name onto logrus. Unknown names mean info.
func SetLogLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "verbose":
		log.SetLevel(log.DebugLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "quiet", "silent":
		log.SetLevel(log.PanicLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// Setup installs the formatter, the level and the output. A non-empty file
// routes logs to a rotating file, otherwise they go to stderr. An empty
// level falls back to CCSW_LOG_LEVEL, then to warn.
func Setup(level, file string) error {
	log.SetFormatter(&LineFormatter{})

	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	if level == "" {
		level = "warn"
	}
	SetLogLevel(level)

	return setOutput(file)
}

func setOutput(file string) error {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	if file == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logWriter = &lumberjack.Logger{
		Filename:   file,
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     30,
	}
	log.SetOutput(logWriter)
	return nil
}

// Output returns the writer logs currently go to
func Output() io.Writer {
	return log.StandardLogger().Out
}

// Close releases the rotating file, if any
func Close() {
	writerMu.Lock()
	defer writerMu.Unlock()
	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	log.SetOutput(os.Stderr)
}
