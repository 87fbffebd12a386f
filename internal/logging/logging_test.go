package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("codec")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("configured", "codec", "h264")

	out := buf.String()
	if strings.Contains(out, `msg="INFO configured`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, "msg=configured") {
		t.Fatalf("expected plain configured message, got: %s", out)
	}
	if !strings.Contains(out, "component=codec") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "codec=h264") {
		t.Fatalf("expected codec field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("codec")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}
