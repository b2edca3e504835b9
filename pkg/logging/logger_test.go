package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger()
	if logger == nil {
		t.Fatal("NewLogger() returned nil")
	}
	if logger.Logger == nil {
		t.Fatal("Logger.Logger is nil")
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected slog.Level
	}{
		{"debug level", "DEBUG", slog.LevelDebug},
		{"info level", "INFO", slog.LevelInfo},
		{"warn level", "WARN", slog.LevelWarn},
		{"warning level", "WARNING", slog.LevelWarn},
		{"error level", "ERROR", slog.LevelError},
		{"lowercase debug", "debug", slog.LevelDebug},
		{"mixed case", "Info", slog.LevelInfo},
		{"padded", "  warn ", slog.LevelWarn},
		{"invalid level", "INVALID", slog.LevelInfo},
		{"empty value", "", slog.LevelInfo},
	}

	originalLevel := os.Getenv(LevelEnvVar)
	defer os.Setenv(LevelEnvVar, originalLevel)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(LevelEnvVar, tt.envValue)
			level := getLogLevelFromEnv()
			if level != tt.expected {
				t.Errorf("getLogLevelFromEnv() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestSessionID(t *testing.T) {
	t.Run("generate session ID", func(t *testing.T) {
		id1 := NewSessionID()
		id2 := NewSessionID()

		if id1 == "" || id2 == "" {
			t.Fatal("NewSessionID() returned empty string")
		}
		if id1 == id2 {
			t.Error("NewSessionID() returned duplicate IDs")
		}
		if len(id1) != 16 {
			t.Errorf("NewSessionID() returned wrong length: %d", len(id1))
		}
	})

	t.Run("context with session ID", func(t *testing.T) {
		ctx := WithSessionID(context.Background(), "run-42")
		if got := GetSessionID(ctx); got != "run-42" {
			t.Errorf("GetSessionID() = %q, want %q", got, "run-42")
		}
	})

	t.Run("context without session ID", func(t *testing.T) {
		if id := GetSessionID(context.Background()); id != "" {
			t.Errorf("GetSessionID() = %q, want empty string", id)
		}
	})

	t.Run("auto-generate session ID", func(t *testing.T) {
		ctx := WithSessionID(context.Background(), "")
		if id := GetSessionID(ctx); len(id) != 16 {
			t.Errorf("auto-generated session ID has wrong length: %q", id)
		}
	})
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log JSON %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: slog.LevelDebug})
	ctx := WithSessionID(context.Background(), "test-session")

	t.Run("info logging", func(t *testing.T) {
		buf.Reset()
		logger.Info(ctx, "chunk generated", "key", "0_0_0")

		entry := decodeEntry(t, &buf)
		if entry["msg"] != "chunk generated" {
			t.Errorf("Expected message 'chunk generated', got %v", entry["msg"])
		}
		if entry["level"] != "INFO" {
			t.Errorf("Expected level 'INFO', got %v", entry["level"])
		}
		if entry["session_id"] != "test-session" {
			t.Errorf("Expected session_id 'test-session', got %v", entry["session_id"])
		}
		if entry["key"] != "0_0_0" {
			t.Errorf("Expected key '0_0_0', got %v", entry["key"])
		}
	})

	t.Run("error logging", func(t *testing.T) {
		buf.Reset()
		logger.Error(ctx, "physics init failed", errors.New("no backend"))

		entry := decodeEntry(t, &buf)
		if entry["level"] != "ERROR" {
			t.Errorf("Expected level 'ERROR', got %v", entry["level"])
		}
		if entry["error"] != "no backend" {
			t.Errorf("Expected error 'no backend', got %v", entry["error"])
		}
	})

	t.Run("debug logging", func(t *testing.T) {
		buf.Reset()
		logger.Debug(ctx, "debug message")
		if entry := decodeEntry(t, &buf); entry["level"] != "DEBUG" {
			t.Errorf("Expected level 'DEBUG', got %v", entry["level"])
		}
	})

	t.Run("warn logging", func(t *testing.T) {
		buf.Reset()
		logger.Warn(ctx, "placement exhausted")
		if entry := decodeEntry(t, &buf); entry["level"] != "WARN" {
			t.Errorf("Expected level 'WARN', got %v", entry["level"])
		}
	})
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: slog.LevelInfo}).Component("chunk")

	logger.Info(context.Background(), "scan")
	entry := decodeEntry(t, &buf)
	if entry["component"] != "chunk" {
		t.Errorf("Expected component 'chunk', got %v", entry["component"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: slog.LevelInfo, Format: "text"})

	logger.Info(context.Background(), "hello", "n", 3)
	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "n=3") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: slog.LevelWarn})

	logger.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Errorf("info entry should be filtered at WARN level, got %q", buf.String())
	}
}

func TestWrapError(t *testing.T) {
	t.Run("wrap nil error", func(t *testing.T) {
		if result := WrapError(nil, "context"); result != nil {
			t.Errorf("WrapError(nil) should return nil, got %v", result)
		}
	})

	t.Run("wrap error with context", func(t *testing.T) {
		originalErr := errors.New("original error")
		wrapped := WrapError(originalErr, "additional context")

		if wrapped.Error() != "additional context: original error" {
			t.Errorf("WrapError() = %q", wrapped.Error())
		}
		if !errors.Is(wrapped, originalErr) {
			t.Error("WrapError() should preserve original error")
		}
	})

	t.Run("wrap error with formatted context", func(t *testing.T) {
		wrapped := WrapError(errors.New("boom"), "chunk %d_%d_%d", 1, 0, -2)
		if wrapped.Error() != "chunk 1_0_-2: boom" {
			t.Errorf("WrapError() = %q", wrapped.Error())
		}
	})
}

func TestLogWithoutSessionID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: slog.LevelInfo})

	logger.Info(context.Background(), "test message")
	if strings.Contains(buf.String(), "session_id") {
		t.Error("Log should not contain session_id when none is set in context")
	}
}
