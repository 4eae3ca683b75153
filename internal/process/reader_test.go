package process

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func readAll(t *testing.T, lr *LineReader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines
		}
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestLineReaderSplitting(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty stream", "", nil},
		{"single line", "hello\n", []string{"hello\n"}},
		{"line feeds", "a\nb\nc\n", []string{"a\n", "b\n", "c\n"}},
		{"carriage returns", "10%\r20%\r30%\r", []string{"10%\r", "20%\r", "30%\r"}},
		{"mixed terminators", "start\n 5%\r50%\rdone\n", []string{"start\n", " 5%\r", "50%\r", "done\n"}},
		{"crlf is two lines", "a\r\n", []string{"a\r", "\n"}},
		{"empty lines kept", "\n\n", []string{"\n", "\n"}},
		{"unterminated tail dropped", "a\nprogress 42%", []string{"a\n"}},
		{"only unterminated bytes", "rest", nil},
		{"multibyte text", "загрузка 42%\r", []string{"загрузка 42%\r"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr, err := NewLineReader(strings.NewReader(tt.input), "")
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}
			lines := readAll(t, lr)
			if len(lines) != len(tt.expected) {
				t.Fatalf("Expected %d lines, got %d: %q", len(tt.expected), len(lines), lines)
			}
			for i := range lines {
				if lines[i] != tt.expected[i] {
					t.Errorf("Expected line %d to be %q, got %q", i, tt.expected[i], lines[i])
				}
			}
		})
	}
}

func TestLineReaderEOFIsSticky(t *testing.T) {
	lr, _ := NewLineReader(strings.NewReader("x"), "")
	if line, err := lr.ReadLine(); !errors.Is(err, io.EOF) || line != "" {
		t.Fatalf("Expected io.EOF with the tail dropped, got %q (%v)", line, err)
	}
	if string(lr.Pending()) != "x" {
		t.Errorf("Expected pending bytes %q, got %q", "x", lr.Pending())
	}
	for i := 0; i < 3; i++ {
		if _, err := lr.ReadLine(); !errors.Is(err, io.EOF) {
			t.Errorf("Expected io.EOF on call %d, got %v", i, err)
		}
	}
}

func TestLineReaderPartialReads(t *testing.T) {
	input := "first line\nsecond\rthird\n"
	expected := []string{"first line\n", "second\r", "third\n"}

	readers := map[string]io.Reader{
		"one byte":   iotest.OneByteReader(strings.NewReader(input)),
		"half":       iotest.HalfReader(strings.NewReader(input)),
		"data + EOF": iotest.DataErrReader(strings.NewReader(input)),
		"stalling":   &stallingReader{r: strings.NewReader(input), stalls: 5},
	}

	for name, r := range readers {
		t.Run(name, func(t *testing.T) {
			lr, _ := NewLineReader(r, "utf-8")
			lines := readAll(t, lr)
			if strings.Join(lines, "|") != strings.Join(expected, "|") {
				t.Errorf("Expected %q, got %q", expected, lines)
			}
		})
	}
}

// stallingReader returns (0, nil) a few times before every real read
type stallingReader struct {
	r      io.Reader
	stalls int
	count  int
}

func (s *stallingReader) Read(p []byte) (int, error) {
	if s.count < s.stalls {
		s.count++
		return 0, nil
	}
	s.count = 0
	return s.r.Read(p)
}

type nilReader struct{}

func (nilReader) Read([]byte) (int, error) { return 0, nil }

func TestLineReaderNoProgress(t *testing.T) {
	lr, _ := NewLineReader(nilReader{}, "")
	if _, err := lr.ReadLine(); !errors.Is(err, io.ErrNoProgress) {
		t.Errorf("Expected io.ErrNoProgress, got %v", err)
	}
}

func TestLineReaderReadError(t *testing.T) {
	boom := errors.New("boom")
	lr, _ := NewLineReader(io.MultiReader(strings.NewReader("ok\n"), iotest.ErrReader(boom)), "")

	line, err := lr.ReadLine()
	if err != nil || line != "ok\n" {
		t.Fatalf("Expected %q, got %q (%v)", "ok\n", line, err)
	}
	if _, err := lr.ReadLine(); !errors.Is(err, boom) {
		t.Errorf("Expected read error to be returned, got %v", err)
	}
}

func TestLineReaderDecodeError(t *testing.T) {
	lr, _ := NewLineReader(strings.NewReader("good\n\xff\xfe\nafter\n"), "")

	if line, err := lr.ReadLine(); err != nil || line != "good\n" {
		t.Fatalf("Expected %q, got %q (%v)", "good\n", line, err)
	}

	_, err := lr.ReadLine()
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if string(decErr.Line) != "\xff\xfe\n" {
		t.Errorf("Expected raw line bytes in error, got %q", decErr.Line)
	}

	if line, err := lr.ReadLine(); err != nil || line != "after\n" {
		t.Errorf("Expected reader to continue with %q, got %q (%v)", "after\n", line, err)
	}
}

func TestLineReaderEncodings(t *testing.T) {
	tests := []struct {
		encoding string
		input    string
		expected string
	}{
		{"utf-8", "café\n", "café\n"},
		{"UTF8", "café\n", "café\n"},
		{"iso-8859-1", "caf\xe9\n", "café\n"},
		{"latin1", "caf\xe9\n", "café\n"},
		{"windows-1251", "\xe7\xe0\xe3\xf0\xf3\xe7\xea\xe0\r", "загрузка\r"},
		{"utf-8", "keep � as is\n", "keep � as is\n"},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			lr, err := NewLineReader(strings.NewReader(tt.input), tt.encoding)
			if err != nil {
				t.Fatalf("Failed to create reader for %s: %v", tt.encoding, err)
			}
			line, err := lr.ReadLine()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if line != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, line)
			}
		})
	}
}

func TestLineReaderUnknownEncoding(t *testing.T) {
	_, err := NewLineReader(strings.NewReader(""), "no-such-charset")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Expected ErrUnknownEncoding, got %v", err)
	}
}

func TestLineReaderLines(t *testing.T) {
	lr, _ := NewLineReader(strings.NewReader("a\n\xff\nb\rc"), "")

	var lines []string
	decodeErrors := 0
	for line, err := range lr.Lines() {
		if err != nil {
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("Unexpected error: %v", err)
			}
			decodeErrors++
			continue
		}
		lines = append(lines, line)
	}

	if strings.Join(lines, "") != "a\nb\rc" {
		t.Errorf("Expected lines %q, got %q", []string{"a\n", "b\r", "c"}, lines)
	}
	if decodeErrors != 1 {
		t.Errorf("Expected 1 decode error, got %d", decodeErrors)
	}
}
