package process

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/ytget/ytdl-gui/internal/model"
)

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPump(t *testing.T) {
	dec, _ := newDecoder("")
	stream := &closeRecorder{Reader: strings.NewReader("one\n\xff\ntwo\rthree")}
	buf := NewBuffer()

	runPump(stream, model.SourceStderr, buf, dec, discardLogger())

	lines := buf.Drain()
	expected := []string{"one\n", "two\r"}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d: %v", len(expected), len(lines), lines)
	}
	for i, line := range lines {
		if line.Text != expected[i] {
			t.Errorf("Expected line %d to be %q, got %q", i, expected[i], line.Text)
		}
		if line.Source != model.SourceStderr {
			t.Errorf("Expected source STDERR, got %s", line.Source)
		}
	}
	if !stream.closed {
		t.Error("Expected pump to close its stream")
	}
}

func TestRunPumpStopsOnReadError(t *testing.T) {
	dec, _ := newDecoder("")
	stream := &closeRecorder{Reader: io.MultiReader(
		strings.NewReader("kept\n"),
		iotest.ErrReader(errors.New("pipe broke")),
	)}
	buf := NewBuffer()

	runPump(stream, model.SourceStdout, buf, dec, discardLogger())

	lines := buf.Drain()
	if len(lines) != 1 || lines[0].Text != "kept\n" {
		t.Errorf("Expected the line read before the error, got %v", lines)
	}
	if !stream.closed {
		t.Error("Expected pump to close its stream")
	}
}

func TestRunPumpLogsDroppedTail(t *testing.T) {
	dec, _ := newDecoder("")
	stream := &closeRecorder{Reader: strings.NewReader("done\nprogress 42%")}
	buf := NewBuffer()

	var logged strings.Builder
	log := slog.New(slog.NewTextHandler(&logged, &slog.HandlerOptions{Level: slog.LevelDebug}))

	runPump(stream, model.SourceStdout, buf, dec, log)

	lines := buf.Drain()
	if len(lines) != 1 || lines[0].Text != "done\n" {
		t.Errorf("Expected only the terminated line, got %v", lines)
	}
	if !strings.Contains(logged.String(), "dropping unterminated output") || !strings.Contains(logged.String(), "progress 42%") {
		t.Errorf("Expected dropped tail to be logged, got %q", logged.String())
	}
}
