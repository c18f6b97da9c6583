package avd

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

func TestLogEventIncludesCorrelationAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	previous := avdLogger
	avdLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{}))
	t.Cleanup(func() { avdLogger = previous })

	env := Env{CorrelationID: "corr-123"}
	logEvent(env, "test message", "key", "value")

	records := decodeLogLines(t, &buf)
	if len(records) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(records))
	}
	if records[0]["correlation_id"] != "corr-123" {
		t.Fatalf("expected correlation_id corr-123, got %#v", records[0]["correlation_id"])
	}
	if _, ok := records[0]["timestamp_ns"]; !ok {
		t.Fatal("expected timestamp_ns field in log record")
	}
}

func TestEnvLoggerOverridesPackageLogger(t *testing.T) {
	var pkgBuf, envBuf bytes.Buffer
	previous := avdLogger
	avdLogger = slog.New(slog.NewJSONHandler(&pkgBuf, &slog.HandlerOptions{}))
	t.Cleanup(func() { avdLogger = previous })

	env := Env{Logger: slog.New(slog.NewJSONHandler(&envBuf, &slog.HandlerOptions{}))}
	logWarn(env, "careful")

	if pkgBuf.Len() != 0 {
		t.Fatalf("expected package logger untouched, got %q", pkgBuf.String())
	}
	records := decodeLogLines(t, &envBuf)
	if len(records) != 1 || records[0]["level"] != "WARN" {
		t.Fatalf("expected one WARN record, got %#v", records)
	}
}

func TestCommandLogWriterIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	env := Env{CorrelationID: "corr-456", Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{}))}

	writer := newCommandLogWriter(env, "android", []string{"update", "sdk"}, "stderr")
	_, _ = writer.Write([]byte("bo"))
	_, _ = writer.Write([]byte("om\nhalf"))

	records := decodeLogLines(t, &buf)
	if len(records) != 1 {
		t.Fatalf("expected 1 log line before flush, got %d", len(records))
	}
	record := records[0]
	if record["msg"] != "command stderr" {
		t.Fatalf("expected message 'command stderr', got %#v", record["msg"])
	}
	if record["command"] != "android" {
		t.Fatalf("expected command android, got %#v", record["command"])
	}
	if record["args"] != "update sdk" {
		t.Fatalf("expected args 'update sdk', got %#v", record["args"])
	}
	if record["line"] != "boom" {
		t.Fatalf("expected line boom, got %#v", record["line"])
	}
	if record["correlation_id"] != "corr-456" {
		t.Fatalf("expected correlation_id corr-456, got %#v", record["correlation_id"])
	}

	writer.Flush()
	records = decodeLogLines(t, &buf)
	if len(records) != 2 || records[1]["line"] != "half" {
		t.Fatalf("expected flushed trailing line, got %#v", records)
	}
}
