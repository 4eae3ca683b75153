package process

import (
	"bytes"
	"errors"
	"io"
	"iter"
)

// Line terminators recognized by LineReader. Download tools use a bare '\r'
// to redraw progress in place, so it ends a line just like '\n'.
const (
	LineFeed       = '\n'
	CarriageReturn = '\r'
)

// maxEmptyReads bounds consecutive (0, nil) reads before giving up, as
// bufio does, so a misbehaving reader cannot spin a pump forever.
const maxEmptyReads = 100

// LineReader yields decoded lines from a byte stream.
//
// It reads one byte per Read call: the source gives no guarantee of buffered
// line reads, and a line must be available as soon as its terminator arrives.
// Output volume is human-readable progress text, so the syscall cost is fine.
type LineReader struct {
	r    io.Reader
	dec  *decoder
	one  [1]byte
	line bytes.Buffer
	eof  bool
}

// NewLineReader creates a LineReader decoding with the named encoding
// (DefaultEncoding when empty).
func NewLineReader(r io.Reader, encodingName string) (*LineReader, error) {
	dec, err := newDecoder(encodingName)
	if err != nil {
		return nil, err
	}
	return &LineReader{r: r, dec: dec}, nil
}

// ReadLine returns the next line including its terminator.
//
// It returns io.EOF once the stream is exhausted. Bytes left without a
// terminator at end of stream are discarded; use Pending to inspect them. A line
// that cannot be decoded yields a *DecodeError; the reader stays usable and
// the next call continues with the following line. Other read errors are
// returned as is.
func (lr *LineReader) ReadLine() (string, error) {
	if lr.eof {
		return "", io.EOF
	}

	lr.line.Reset()
	empty := 0
	for {
		n, err := lr.r.Read(lr.one[:])
		if n > 0 {
			empty = 0
			c := lr.one[0]
			lr.line.WriteByte(c)
			if c == LineFeed || c == CarriageReturn {
				return lr.dec.decode(lr.line.Bytes())
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", err
			}
			lr.eof = true
			return "", io.EOF
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return "", io.ErrNoProgress
			}
		}
	}
}

// Pending returns the unterminated bytes left when the stream ended.
func (lr *LineReader) Pending() []byte {
	if !lr.eof {
		return nil
	}
	return bytes.Clone(lr.line.Bytes())
}

// Lines returns the remaining lines as a sequence of (line, error) pairs.
// The sequence ends at end of stream; a read error is yielded once and ends
// it, a DecodeError is yielded and iteration continues.
func (lr *LineReader) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := lr.ReadLine()
			if errors.Is(err, io.EOF) {
				return
			}
			var decErr *DecodeError
			if err != nil && !errors.As(err, &decErr) {
				yield("", err)
				return
			}
			if !yield(line, err) {
				return
			}
		}
	}
}
