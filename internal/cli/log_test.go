package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Info("test message")
	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("logger output = %q, want it to contain the message", buf.String())
	}

	buf.Reset()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message logged at info level: %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, log.InfoLevel)

	if got := loggerFromContext(withLogger(context.Background(), logger)); got != logger {
		t.Error("loggerFromContext() did not return the stored logger")
	}
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("loggerFromContext() without a logger should return log.Default()")
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))
	p.done("finished")

	if out := buf.String(); !strings.Contains(out, "finished (") {
		t.Errorf("progress output = %q", out)
	}
}
