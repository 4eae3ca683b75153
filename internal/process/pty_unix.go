//go:build unix

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// openStdoutTerminal opens a pseudo-terminal pair for the child's stdout.
// The slave is put in raw mode so the line discipline does not rewrite '\n'
// into "\r\n", which would split every line in two.
func openStdoutTerminal() (io.ReadCloser, *os.File, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pseudo-terminal: %w", err)
	}
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		master.Close()
		slave.Close()
		return nil, nil, fmt.Errorf("failed to set pseudo-terminal raw mode: %w", err)
	}
	return &ptyReader{File: master}, slave, nil
}

// ptyReader maps the EIO a pty master returns after the slave side closes
// to io.EOF.
type ptyReader struct {
	*os.File
}

func (p *ptyReader) Read(b []byte) (int, error) {
	n, err := p.File.Read(b)
	if err != nil && errors.Is(err, syscall.EIO) {
		return n, io.EOF
	}
	return n, err
}
