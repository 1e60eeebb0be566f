package svlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStandardLoggerGatesByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLogger("WARN", &buf)

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("careful: %s", "disk low")
	logger.Error("failed: %d", 42)

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected debug/info to be gated out, got %q", out)
	}
	if !strings.Contains(out, "[WARN] careful: disk low") {
		t.Fatalf("expected warn line in output, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed: 42") {
		t.Fatalf("expected error line in output, got %q", out)
	}
}

func TestStandardLoggerFormatsWithoutArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLogger("DEBUG", &buf)

	logger.Info("plain message")
	if !strings.Contains(buf.String(), "[INFO] plain message") {
		t.Fatalf("expected plain message in output, got %q", buf.String())
	}
}
