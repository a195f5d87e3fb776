package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()

	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{" info ", InfoLevel},
		{"Warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if got := Level(42).String(); got != "UNKNOWN" {
		t.Errorf("Level(42).String() = %q, want UNKNOWN", got)
	}
	if got := ErrorLevel.String(); got != "ERROR" {
		t.Errorf("ErrorLevel.String() = %q, want ERROR", got)
	}
}

func TestTransactionFields(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{ScopeID("abc"), "scope_id", "abc"},
		{Mode("immediate"), "mode", "immediate"},
		{Statement("COMMIT"), "statement", "COMMIT"},
		{Savepoint("s1"), "savepoint", "s1"},
		{Operation("commit"), "operation", "commit"},
		{Latency(2 * time.Second), "latency", "2s"},
		{Error(errors.New("locked")), "error", "locked"},
		{Error(nil), "error", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if tt.field.Key != tt.key || tt.field.Value != tt.value {
				t.Errorf("field = %+v, want {Key:%s Value:%v}", tt.field, tt.key, tt.value)
			}
		})
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("transaction committed", Statement("COMMIT"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "transaction committed" {
		t.Errorf("Message = %v, want 'transaction committed'", entry.Message)
	}
	if entry.Fields["statement"] != "COMMIT" {
		t.Errorf("Fields[statement] = %v, want COMMIT", entry.Fields["statement"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("Levels = %s,%s, want WARN,ERROR", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("txscope"), ScopeID("s-1"))
	child.Info("begin", Mode("deferred"))

	// The parent must not inherit the child's fields
	logger.Info("parent")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "txscope" || entries[0].Fields["scope_id"] != "s-1" {
		t.Errorf("child preset fields missing: %v", entries[0].Fields)
	}
	if entries[0].Fields["mode"] != "deferred" {
		t.Errorf("mode field = %v, want deferred", entries[0].Fields["mode"])
	}
	if entries[1].Fields != nil {
		t.Errorf("parent entry has fields %v, want none", entries[1].Fields)
	}
}

func TestJSONLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.SetLevel(ErrorLevel)
	if logger.GetLevel() != ErrorLevel {
		t.Errorf("After SetLevel, level = %v, want ErrorLevel", logger.GetLevel())
	}

	logger.Info("info")
	if buf.Len() != 0 {
		t.Error("Expected no output for Info at ErrorLevel")
	}

	logger.Error("error")
	if buf.Len() == 0 {
		t.Error("Expected output for Error at ErrorLevel")
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("message without fields")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, exists := entry["fields"]; exists {
		t.Error("Expected fields key to be omitted when empty")
	}
}

func TestSetDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))
	t.Cleanup(func() { SetDefaultLogger(nil) })

	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	ErrorLog("error msg")
	With(Component("cli")).Info("child")

	entries := decodeLines(t, &buf)
	if len(entries) != 5 {
		t.Fatalf("Expected 5 log entries, got %d", len(entries))
	}
	for i, want := range []string{"DEBUG", "INFO", "WARN", "ERROR", "INFO"} {
		if entries[i].Level != want {
			t.Errorf("Entry %d level = %v, want %v", i, entries[i].Level, want)
		}
	}
	if entries[4].Fields["component"] != "cli" {
		t.Errorf("component = %v, want cli", entries[4].Fields["component"])
	}
}

func TestDefaultLoggerLazyInit(t *testing.T) {
	SetDefaultLogger(nil)
	t.Setenv("LOG_LEVEL", "error")

	logger := DefaultLogger()
	if logger == nil {
		t.Fatal("DefaultLogger() returned nil")
	}
	if logger.GetLevel() != ErrorLevel {
		t.Errorf("level = %v, want ErrorLevel from LOG_LEVEL", logger.GetLevel())
	}
	if DefaultLogger() != logger {
		t.Error("DefaultLogger() should return the same instance")
	}
	SetDefaultLogger(nil)
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	op := StartTimer(logger, "commit", ScopeID("s-2"))
	op.End()
	op.EndError(errors.New("database is locked"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "DEBUG" || entries[0].Fields["latency"] == nil {
		t.Errorf("End entry = %+v, want DEBUG with latency", entries[0])
	}
	if entries[1].Level != "ERROR" || entries[1].Fields["error"] != "database is locked" {
		t.Errorf("EndError entry = %+v", entries[1])
	}
	if op.Elapsed() <= 0 {
		t.Error("Elapsed() should be positive")
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = NewNopLogger()
	l.Error("dropped", Error(errors.New("x")))
	if l.With(Component("x")) == nil {
		t.Error("NopLogger.With returned nil")
	}
}

func BenchmarkJSONLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("statement", Statement("COMMIT"), ScopeID("bench"))
	}
}

func BenchmarkJSONLogger_DebugFiltered(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("statement", Statement("COMMIT"), ScopeID("bench"))
	}
}

func TestNewDefaultLoggerWritesToStderr(t *testing.T) {
	l := NewDefaultLogger()

	if l.out.w != os.Stderr {
		t.Errorf("default logger writes to %v, want os.Stderr", l.out.w)
	}
	if l.GetLevel() != InfoLevel {
		t.Errorf("level = %s, want INFO", l.GetLevel())
	}
}
