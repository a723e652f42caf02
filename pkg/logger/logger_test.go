package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/wonny/recap/backend/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{
			name:      "debug level",
			cfg:       &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"},
			wantLevel: zerolog.DebugLevel,
		},
		{
			name:      "info level",
			cfg:       &config.Config{Env: "production", LogLevel: "info", LogFormat: "json"},
			wantLevel: zerolog.InfoLevel,
		},
		{
			name:      "warn level console",
			cfg:       &config.Config{Env: "staging", LogLevel: "warn", LogFormat: "console"},
			wantLevel: zerolog.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.cfg)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v (%q)", err, buf.String())
	}
	return entry
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", "test")

	logger.Infof("fetched %d bars", 2)

	entry := decode(t, &buf)
	if entry["level"] != "info" {
		t.Errorf("Expected level info, got %v", entry["level"])
	}
	if entry["message"] != "fetched 2 bars" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
	if entry["env"] != "test" {
		t.Errorf("Expected env test, got %v", entry["env"])
	}
}

func TestLoggerMethods(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	tests := []struct {
		name    string
		logFunc func(*Logger)
		level   string
	}{
		{"Debug", func(l *Logger) { l.Debug("debug message") }, "debug"},
		{"Info", func(l *Logger) { l.Info("info message") }, "info"},
		{"Warn", func(l *Logger) { l.Warn("warn message") }, "warn"},
		{"Error", func(l *Logger) { l.Error("error message") }, "error"},
		{"Warnf", func(l *Logger) { l.Warnf("warn %s", "formatted") }, "warn"},
		{"Errorf", func(l *Logger) { l.Errorf("error %d", 1) }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := &Logger{zlog: zerolog.New(&buf)}

			tt.logFunc(logger)

			entry := decode(t, &buf)
			if entry["level"] != tt.level {
				t.Errorf("Expected level %s, got %v", tt.level, entry["level"])
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{zlog: zerolog.New(&buf)}

	logger.WithField("run_id", "r-1").WithFields(map[string]interface{}{
		"instrument": "AAPL",
		"attempts":   3,
	}).Info("fetch failed")

	entry := decode(t, &buf)
	if entry["run_id"] != "r-1" {
		t.Errorf("Expected run_id r-1, got %v", entry["run_id"])
	}
	if entry["instrument"] != "AAPL" {
		t.Errorf("Expected instrument AAPL, got %v", entry["instrument"])
	}
	if entry["attempts"] != float64(3) {
		t.Errorf("Expected attempts 3, got %v", entry["attempts"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{zlog: zerolog.New(&buf)}

	logger.WithError(errors.New("upstream unavailable")).Error("stage failed")

	entry := decode(t, &buf)
	if entry["error"] != "upstream unavailable" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.WithField("k", "v").Info("discarded")

	zl := logger.Zerolog()
	if zl.GetLevel() != zerolog.Disabled {
		t.Errorf("Expected disabled level, got %v", zl.GetLevel())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{zlog: zerolog.New(zerolog.ConsoleWriter{Out: &buf, NoColor: true})}

	logger.Info("console output")

	if !strings.Contains(buf.String(), "console output") {
		t.Errorf("Expected console output, got %q", buf.String())
	}
}
