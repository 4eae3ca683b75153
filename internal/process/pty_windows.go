//go:build windows

package process

import (
	"errors"
	"io"
	"os"
)

var errPseudoTerminalUnsupported = errors.New("pseudo-terminal output is not supported on windows")

func openStdoutTerminal() (io.ReadCloser, *os.File, error) {
	return nil, nil, errPseudoTerminalUnsupported
}
