package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

var (
	// ErrNotRunning is returned when termination is requested before Start.
	ErrNotRunning = errors.New("process not running")

	// ErrNotFinished is returned by ExitCode while the process is still alive.
	ErrNotFinished = errors.New("process not finished")

	// ErrAlreadyStarted is returned when Start is called twice on one Supervisor.
	ErrAlreadyStarted = errors.New("supervisor already started")

	// ErrEmptyCommand is returned when Start receives no executable.
	ErrEmptyCommand = errors.New("empty command")

	// ErrUnknownEncoding is returned when Options.Encoding names no known encoding.
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

// SpawnErrorKind classifies why a process could not be launched.
type SpawnErrorKind int

const (
	// SpawnOther is any launch failure not covered by a more specific kind.
	SpawnOther SpawnErrorKind = iota
	// SpawnNotFound means the executable does not resolve to an existing file.
	SpawnNotFound
	// SpawnPermissionDenied means the executable exists but cannot be executed.
	SpawnPermissionDenied
)

// String returns the string representation of SpawnErrorKind
func (k SpawnErrorKind) String() string {
	switch k {
	case SpawnNotFound:
		return "NotFound"
	case SpawnPermissionDenied:
		return "PermissionDenied"
	default:
		return "Other"
	}
}

// SpawnError reports a synchronous failure to launch the process.
type SpawnError struct {
	Kind SpawnErrorKind
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	switch e.Kind {
	case SpawnNotFound:
		return fmt.Sprintf("spawn %s: executable not found: %v", e.Path, e.Err)
	case SpawnPermissionDenied:
		return fmt.Sprintf("spawn %s: permission denied: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
	}
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// newSpawnError classifies a launch error from os/exec.
func newSpawnError(path string, err error) *SpawnError {
	kind := SpawnOther
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		kind = SpawnNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = SpawnPermissionDenied
	}
	return &SpawnError{Kind: kind, Path: path, Err: err}
}

// IsNotFound reports whether err is a SpawnError of kind SpawnNotFound.
func IsNotFound(err error) bool {
	var se *SpawnError
	return errors.As(err, &se) && se.Kind == SpawnNotFound
}

// IsPermissionDenied reports whether err is a SpawnError of kind SpawnPermissionDenied.
func IsPermissionDenied(err error) bool {
	var se *SpawnError
	return errors.As(err, &se) && se.Kind == SpawnPermissionDenied
}

// DecodeError reports a line whose bytes are invalid under the configured encoding.
type DecodeError struct {
	Encoding string
	Line     []byte
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d bytes as %s: %v", len(e.Line), e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
