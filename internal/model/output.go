package model

// Source tags the output stream a line was read from.
type Source string

const (
	SourceStdout Source = "STDOUT"
	SourceStderr Source = "STDERR"
)

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// OutputLine is one decoded line of process output, terminator included.
type OutputLine struct {
	Text   string
	Source Source
}

// IsProgressUpdate reports whether the line was terminated by a bare carriage
// return, which download tools use to redraw a progress line in place.
func (l OutputLine) IsProgressUpdate() bool {
	n := len(l.Text)
	return n > 0 && l.Text[n-1] == '\r'
}
