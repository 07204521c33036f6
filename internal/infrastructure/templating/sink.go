package templating

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
)

// Sink receives rendered output. Exactly one of Close or Abort is called
// once rendering ends.
type Sink interface {
	io.Writer
	// Close commits the output
	Close() error
	// Abort releases resources and discards the output
	Abort() error
}

// BufferSink collects output in memory
type BufferSink struct {
	buf bytes.Buffer
}

// NewBufferSink creates an empty in-memory sink
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// Write implements io.Writer
func (s *BufferSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Close implements Sink
func (s *BufferSink) Close() error {
	return nil
}

// Abort implements Sink
func (s *BufferSink) Abort() error {
	s.buf.Reset()
	return nil
}

// String returns the collected output
func (s *BufferSink) String() string {
	return s.buf.String()
}

// FileSink streams output to a file. Abort removes the file.
type FileSink struct {
	file   *os.File
	writer *bufio.Writer
	path   string
	closed bool
}

func newFileSink(file *os.File) *FileSink {
	return &FileSink{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   file.Name(),
	}
}

// Path returns the path of the file being written
func (s *FileSink) Path() string {
	return s.path
}

// Write implements io.Writer
func (s *FileSink) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

// Close flushes and closes the file. If that fails the file is removed.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := errors.Join(s.writer.Flush(), s.file.Close())
	if err != nil {
		_ = os.Remove(s.path)
	}
	return err
}

// Abort closes and removes the file
func (s *FileSink) Abort() error {
	if !s.closed {
		s.closed = true
		_ = s.file.Close()
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var (
	_ Sink = (*BufferSink)(nil)
	_ Sink = (*FileSink)(nil)
)
