package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestInitAndLog(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Info("TestSubsystem", "hello %s", "world")
	out := buf.String()
	if !strings.Contains(out, "hello world") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, "TestSubsystem") {
		t.Errorf("expected subsystem in output, got: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)

	Debug("Filter", "should not appear")
	Info("Filter", "should not appear either")
	Warn("Filter", "warning shows")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("low-severity messages leaked through filter: %s", out)
	}
	if !strings.Contains(out, "warning shows") {
		t.Errorf("warning missing from output: %s", out)
	}
}

func TestErrorIncludesErr(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)

	Error("Errors", errors.New("boom"), "operation failed")
	out := buf.String()
	if !strings.Contains(out, "boom") {
		t.Errorf("expected wrapped error in output, got: %s", out)
	}
}

func TestTruncateSessionID(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"short", "short"},
		{"12345678", "12345678"},
		{"123456789", "12345678..."},
		{"0d9f2c4a-9a1b-4c7e-8f3d-2b6a5e4d3c2b", "0d9f2c4a..."},
	}

	for _, test := range tests {
		if got := TruncateSessionID(test.in); got != test.expected {
			t.Errorf("TruncateSessionID(%q) = %q, expected %q", test.in, got, test.expected)
		}
	}
}
