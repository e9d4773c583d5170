package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithSessionTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "session-123").With("extra", "value")
	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"session_id":"session-123"`) {
		t.Errorf("expected session_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestWithSessionReplacesPreviousID(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "first")
	WithSession(logger, "second").Info("retagged")

	output := buf.String()
	if strings.Contains(output, "first") || strings.Count(output, "session_id") != 1 {
		t.Errorf("expected a single replaced session_id, got: %s", output)
	}
}

func TestSessionHandlerNilBase(t *testing.T) {
	if _, ok := newSessionIDHandler(nil, "session-123").(NoopHandler); !ok {
		t.Error("expected NoopHandler when base is nil")
	}
}

func TestConsoleHandlerShortensSessionID(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := WithSession(slog.New(newPrettyHandler(&buf, level, false)), "0123456789abcdef")
	logger.Info("download started")

	if !strings.Contains(buf.String(), "[01234567] download started") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}
