package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestSetupEmitsCanonicalShape(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "pegd", "test", slog.LevelInfo)

	logger.Info("epoch allocated", slog.Uint64("epoch", 3))
	entry := decodeLine(t, &buf)

	if entry["message"] != "epoch allocated" {
		t.Fatalf("message = %v", entry["message"])
	}
	if entry["severity"] != "INFO" {
		t.Fatalf("severity = %v", entry["severity"])
	}
	if entry["service"] != "pegd" || entry["env"] != "test" {
		t.Fatalf("service/env = %v/%v", entry["service"], entry["env"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatal("missing timestamp")
	}
	if _, ok := entry["time"]; ok {
		t.Fatal("raw time key leaked through")
	}
}

func TestSetupLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "pegd", "", slog.LevelWarn)

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info emitted below the warn floor: %q", buf.String())
	}
	logger.Warn("loud")
	if entry := decodeLine(t, &buf); entry["severity"] != "WARN" {
		t.Fatalf("severity = %v", entry["severity"])
	}
}

func TestComponentTagsSubsystem(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "pegd", "", slog.LevelInfo)

	Component(logger, "scheduler").Info("tick")
	if entry := decodeLine(t, &buf); entry["component"] != "scheduler" {
		t.Fatalf("component = %v", entry["component"])
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"  WARN ": slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := levelFromEnv(raw); got != want {
			t.Fatalf("levelFromEnv(%q) = %v, want %v", raw, got, want)
		}
	}
}
