package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriterSink appends lines to an io.Writer it does not own. Each line is
// delivered in a single Write call so writers that are safe for
// concurrent use stay line-atomic.
type WriterSink struct {
	w io.Writer
}

// NewWriter creates a sink appending to w.
func NewWriter(w io.Writer) *WriterSink { return &WriterSink{w: w} }

// NewStdout returns a sink that appends to os.Stdout.
func NewStdout() *WriterSink { return &WriterSink{w: os.Stdout} }

// WriteLine appends line plus a terminator in one write.
func (s *WriterSink) WriteLine(line []byte) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	_, err := s.w.Write(buf)
	return err
}

// Close is a no-op; the writer is externally owned.
func (s *WriterSink) Close() error { return nil }

// FileSink appends lines to a file it owns. Writes are buffered but
// flushed per line, so every accepted line is durable before WriteLine
// returns.
type FileSink struct {
	f  *os.File
	bw *bufio.Writer
}

// NewFile opens (creating if needed) path in append mode.
func NewFile(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink file: %w", err)
	}
	return &FileSink{f: f, bw: bufio.NewWriter(f)}, nil
}

// WriteLine appends line plus a terminator and flushes.
func (s *FileSink) WriteLine(line []byte) error {
	if _, err := s.bw.Write(line); err != nil {
		return err
	}
	if err := s.bw.WriteByte('\n'); err != nil {
		return err
	}
	return s.bw.Flush()
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	if err := s.bw.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
