package main

import (
	"bytes"
	"testing"

	"github.com/ytget/ytdl-gui/internal/model"
)

func stdoutLine(text string) model.OutputLine {
	return model.OutputLine{Text: text, Source: model.SourceStdout}
}

func stderrLine(text string) model.OutputLine {
	return model.OutputLine{Text: text, Source: model.SourceStderr}
}

func TestRenderer(t *testing.T) {
	tests := []struct {
		name       string
		inPlace    bool
		lines      []model.OutputLine
		wantStdout string
		wantStderr string
	}{
		{
			name:       "plain lines",
			lines:      []model.OutputLine{stdoutLine("a\n"), stdoutLine("b\n")},
			wantStdout: "a\nb\n",
		},
		{
			name:       "unterminated tail gets a newline",
			lines:      []model.OutputLine{stdoutLine("tail")},
			wantStdout: "tail\n",
		},
		{
			name:       "progress as lines when not a terminal",
			lines:      []model.OutputLine{stdoutLine(" 10%\r"), stdoutLine(" 20%\r"), stdoutLine("done\n")},
			wantStdout: " 10%\n 20%\ndone\n",
		},
		{
			name:       "progress in place on a terminal",
			inPlace:    true,
			lines:      []model.OutputLine{stdoutLine(" 10%\r"), stdoutLine(" 20%\r"), stdoutLine("done\n")},
			wantStdout: " 10%\x1b[K\r 20%\x1b[K\rdone\x1b[K\n",
		},
		{
			name:       "stderr keeps the progress line",
			inPlace:    true,
			lines:      []model.OutputLine{stdoutLine(" 10%\r"), stderrLine("WARNING: slow\n"), stdoutLine("done\n")},
			wantStdout: " 10%\x1b[K\r\ndone\n",
			wantStderr: "WARNING: slow\n",
		},
		{
			name:       "crlf line stays visible on a terminal",
			inPlace:    true,
			lines:      []model.OutputLine{stdoutLine("hello\r"), stdoutLine("\n"), stdoutLine("next\n")},
			wantStdout: "hello\x1b[K\r\nnext\n",
		},
		{
			name:       "crlf line printed once when not a terminal",
			lines:      []model.OutputLine{stdoutLine("hello\r"), stdoutLine("\n"), stdoutLine("\n")},
			wantStdout: "hello\n\n",
		},
		{
			name:       "crlf is one line",
			lines:      []model.OutputLine{stderrLine("ERROR: x\r\n")},
			wantStderr: "ERROR: x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			r := newRenderer(&stdout, &stderr, tt.inPlace)
			r.RenderAll(tt.lines)

			if stdout.String() != tt.wantStdout {
				t.Errorf("Expected stdout %q, got %q", tt.wantStdout, stdout.String())
			}
			if stderr.String() != tt.wantStderr {
				t.Errorf("Expected stderr %q, got %q", tt.wantStderr, stderr.String())
			}
		})
	}
}

func TestRendererPrintln(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := newRenderer(&stdout, &stderr, true)

	r.Render(stdoutLine(" 50%\r"))
	r.Println("Interrupted")

	if stdout.String() != " 50%\x1b[K\r\n" {
		t.Errorf("Expected progress line to be kept, got %q", stdout.String())
	}
	if stderr.String() != "Interrupted\n" {
		t.Errorf("Expected status message on stderr, got %q", stderr.String())
	}
}

func TestShellExitCode(t *testing.T) {
	tests := []struct {
		code     int
		expected int
	}{
		{0, 0},
		{3, 3},
		{-9, 137},
		{-15, 143},
	}

	for _, test := range tests {
		if got := shellExitCode(test.code); got != test.expected {
			t.Errorf("shellExitCode(%d) = %d, expected %d", test.code, got, test.expected)
		}
	}
}
