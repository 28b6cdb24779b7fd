package parser

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// DefaultWrapWidth is where TeX hard-wraps its terminal output: max_print_line
// (79) plus the newline.
const DefaultWrapWidth = 80

// LineReader turns a tool's physical output lines into logical statements,
// joining lines that the tool broke at its fixed wrap width.
type LineReader struct {
	r         *bufio.Reader
	wrapWidth int
	err       error
}

// NewLineReader creates a reader; wrapWidth <= 0 selects DefaultWrapWidth
func NewLineReader(r io.Reader, wrapWidth int) *LineReader {
	if wrapWidth <= 0 {
		wrapWidth = DefaultWrapWidth
	}
	return &LineReader{
		r:         bufio.NewReaderSize(r, 64*1024),
		wrapWidth: wrapWidth,
	}
}

// Next returns the next logical line without its terminator. ok is false
// once the stream is exhausted; a blank physical line is returned as "" with
// ok set.
func (lr *LineReader) Next() (string, bool) {
	var statement strings.Builder
	read := false
	for {
		physical, more := lr.readPhysical()
		if !more {
			return statement.String(), read
		}
		read = true
		statement.WriteString(strings.TrimRight(physical, "\r\n"))
		if len(physical) != lr.wrapWidth {
			return statement.String(), true
		}
	}
}

// ReadRaw returns the next physical line with its terminator stripped.
// Handlers use it to pick up the detail lines that follow a match.
func (lr *LineReader) ReadRaw() (string, bool) {
	line, ok := lr.readPhysical()
	if !ok {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// Drain discards whatever is left in the stream
func (lr *LineReader) Drain() {
	if _, err := io.Copy(io.Discard, lr.r); err != nil && lr.err == nil {
		lr.err = err
	}
}

// Err returns the first read error other than io.EOF
func (lr *LineReader) Err() error {
	return lr.err
}

func (lr *LineReader) readPhysical() (string, bool) {
	if lr.err != nil {
		return "", false
	}
	line, err := lr.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			lr.err = err
		}
		// a last line without terminator is still data
		return line, line != ""
	}
	return line, true
}
