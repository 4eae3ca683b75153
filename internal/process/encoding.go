package process

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used when Options.Encoding is empty
const DefaultEncoding = "utf-8"

var errInvalidUTF8 = errors.New("invalid UTF-8 sequence")

// decoder turns the raw bytes of one line into text, strictly.
type decoder struct {
	name string
	enc  encoding.Encoding // nil for the UTF-8 fast path
}

// newDecoder resolves an encoding by IANA name or WHATWG label.
func newDecoder(name string) (*decoder, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultEncoding
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		enc, err = htmlindex.Get(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
		}
	}

	if enc == unicode.UTF8 {
		return &decoder{name: name}, nil
	}
	return &decoder{name: name, enc: enc}, nil
}

// decode returns a DecodeError instead of substituting U+FFFD for bad input.
func (d *decoder) decode(b []byte) (string, error) {
	if d.enc == nil {
		if !utf8.Valid(b) {
			return "", &DecodeError{Encoding: d.name, Line: b, Err: errInvalidUTF8}
		}
		return string(b), nil
	}

	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", &DecodeError{Encoding: d.name, Line: b, Err: err}
	}

	// x/text decoders replace invalid input with U+FFFD. A genuine U+FFFD
	// survives a round trip through the encoder, a substituted one does not.
	if bytes.ContainsRune(out, utf8.RuneError) {
		back, err := d.enc.NewEncoder().Bytes(out)
		if err != nil || !bytes.Equal(back, b) {
			if err == nil {
				err = fmt.Errorf("invalid %s sequence", d.name)
			}
			return "", &DecodeError{Encoding: d.name, Line: b, Err: err}
		}
	}
	return string(out), nil
}

// ValidateEncoding reports whether name resolves to a supported encoding
func ValidateEncoding(name string) error {
	_, err := newDecoder(name)
	return err
}
