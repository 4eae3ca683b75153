package process

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Default timings for TerminateWithDeadline callers that have no settings
const (
	DefaultTerminateDeadline = 3 * time.Second
	DefaultPollInterval      = 200 * time.Millisecond
)

// Command is an executable followed by its arguments.
type Command []string

// Program returns the executable, or "" for an empty command
func (c Command) Program() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Args returns the arguments after the executable
func (c Command) Args() []string {
	if len(c) < 2 {
		return nil
	}
	return c[1:]
}

// Clone returns a copy that does not share the backing array
func (c Command) Clone() Command {
	return slices.Clone(c)
}

// String renders the command as a bracketed list of quoted words,
// e.g. ["youtube-dl" "--version"].
func (c Command) String() string {
	quoted := make([]string, len(c))
	for i, arg := range c {
		quoted[i] = strconv.Quote(arg)
	}
	return "[" + strings.Join(quoted, " ") + "]"
}

// Options configures a single launch.
type Options struct {
	// WorkingDir is the directory the process starts in. Empty means the
	// current directory.
	WorkingDir string

	// Encoding names the text encoding of the process output
	// (DefaultEncoding when empty).
	Encoding string

	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string

	// EchoCommand pushes a "cmd: ..." stdout line ahead of any process output.
	EchoCommand bool

	// PseudoTerminal attaches stdout to a pseudo-terminal instead of a pipe,
	// so tools that only draw live progress on a terminal keep doing so.
	// Unix only.
	PseudoTerminal bool

	// Logger receives supervisor diagnostics. Defaults to the application
	// logger tagged with the run ID.
	Logger *slog.Logger
}
