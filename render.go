package main

import (
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/ytget/ytdl-gui/internal/model"
)

// clearToEOL erases the rest of the terminal line
const clearToEOL = "\x1b[K"

// renderer writes supervised output to the console. Lines ending in a bare
// carriage return are redrawn in place when stdout is a terminal and printed
// as ordinary lines otherwise.
type renderer struct {
	mu      sync.Mutex
	stdout  io.Writer
	stderr  io.Writer
	inPlace bool
	pending bool // an in-place line is on screen
	afterCR bool // the previous stdout line ended with '\r'
}

func newRenderer(stdout, stderr io.Writer, inPlace bool) *renderer {
	return &renderer{stdout: stdout, stderr: stderr, inPlace: inPlace}
}

// newConsoleRenderer renders to the process's own stdout and stderr
func newConsoleRenderer() *renderer {
	return newRenderer(os.Stdout, os.Stderr, term.IsTerminal(int(os.Stdout.Fd())))
}

func (r *renderer) RenderAll(lines []model.OutputLine) {
	for _, line := range lines {
		r.Render(line)
	}
}

func (r *renderer) Render(line model.OutputLine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body := strings.TrimRight(line.Text, "\r\n")

	if line.Source == model.SourceStderr {
		r.breakPending()
		io.WriteString(r.stderr, body+"\n")
		return
	}

	// The '\n' of a "\r\n" pair arrives as its own line and completes the
	// previous one.
	crlf := r.afterCR && line.Text == "\n"
	r.afterCR = line.IsProgressUpdate()
	if crlf {
		if r.pending {
			io.WriteString(r.stdout, "\n")
			r.pending = false
		}
		return
	}

	if line.IsProgressUpdate() && r.inPlace {
		io.WriteString(r.stdout, body+clearToEOL+"\r")
		r.pending = true
		return
	}

	if r.pending {
		io.WriteString(r.stdout, body+clearToEOL+"\n")
		r.pending = false
		return
	}
	io.WriteString(r.stdout, body+"\n")
}

// Println writes a status message on stderr below any in-place line.
func (r *renderer) Println(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakPending()
	io.WriteString(r.stderr, msg+"\n")
}

// breakPending keeps the in-place line on screen. Caller must hold mu.
func (r *renderer) breakPending() {
	r.afterCR = false
	if r.pending {
		io.WriteString(r.stdout, "\n")
		r.pending = false
	}
}
