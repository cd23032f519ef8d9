// Package jsonline is a streaming serializer for statistics output in
// JSON Lines form. Call sites build one object at a time as an
// alternating sequence of key and value appends; every finished object
// is written to an injected sink as a single compact line.
package jsonline

import (
	"sync"
	"time"

	"github.com/statline/statline/internal/sink"
)

// Logger is a receiver of JSON output objects. It owns the accumulation
// buffer for the currently open Line and writes each completed object to
// its Sink as one line.
//
// The mutex is held for the whole StartLine..Finish span, so each
// emitted line is one atomic object even when several goroutines share a
// Logger. A caller that starts a line must finish it (or defer Close on
// it), otherwise the Logger stays locked.
type Logger struct {
	sink sink.Sink

	mu       sync.Mutex
	buf      []byte
	elements int // append counter; parity picks the next separator

	epoch time.Time
	nowFn func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithNow overrides the clock used for the automatic ts field.
func WithNow(fn func() time.Time) Option {
	return func(l *Logger) { l.nowFn = fn }
}

// New creates a Logger writing to s. The timestamp epoch is captured
// here; ts fields count microseconds since this moment using the
// monotonic clock reading carried by time.Time.
func New(s sink.Sink, opts ...Option) *Logger {
	l := &Logger{sink: s, nowFn: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	l.epoch = l.nowFn()
	return l
}

// StartLine opens a new Line bound to this Logger. The buffer and
// element counter are reset and the automatic "ts" pair is appended
// before the Line is handed to the caller. Nothing reaches the sink
// until the Line is finished.
func (l *Logger) StartLine() *Line {
	l.mu.Lock()
	l.buf = l.buf[:0]
	l.elements = 0

	ln := &Line{logger: l}
	return ln.
		Append(Str("ts")).
		Append(Int(l.nowFn().Sub(l.epoch).Microseconds()))
}

// Log is shorthand for a single-field line: the value is emitted under
// the implicit key "msg".
func (l *Logger) Log(v Value) error {
	return l.StartLine().Append(Str("msg")).Append(v).Finish()
}

// commit wraps the accumulated pairs in braces and hands the completed
// object to the sink. This is the only place the sink is touched.
func (l *Logger) commit() error {
	line := make([]byte, 0, len(l.buf)+2)
	line = append(line, '{')
	line = append(line, l.buf...)
	line = append(line, '}')
	return l.sink.WriteLine(line)
}

// Line is a single-use builder for one JSON object. While open it holds
// exclusive access to its Logger's buffer; finishing releases the Logger
// and makes the Line unusable. Any call on a finished Line panics.
type Line struct {
	logger *Logger
}

// Append adds one element, key or value by turn. The caller alternates
// a text key with an arbitrary value; separators are chosen from the
// element counter's parity: nothing before the first element, ',' before
// each new key, ':' before each value.
func (ln *Line) Append(v Value) *Line {
	l := ln.logger
	if l == nil {
		panic("jsonline: Append on a finished Line")
	}
	if l.elements > 0 {
		if l.elements%2 == 0 {
			l.buf = append(l.buf, ',')
		} else {
			l.buf = append(l.buf, ':')
		}
	}
	l.elements++
	l.buf = v.appendTo(l.buf)
	return ln
}

// Finish commits the object to the Logger's sink and invalidates the
// Line. An odd number of appends means a key is missing its value; that
// is a contract violation and Finish panics before anything reaches the
// sink. A sink write failure is returned to the caller.
func (ln *Line) Finish() error {
	l := ln.logger
	if l == nil {
		panic("jsonline: Finish on a finished Line")
	}
	ln.logger = nil
	if l.elements%2 != 0 {
		l.mu.Unlock()
		panic("jsonline: line finished with a key missing its value")
	}
	err := l.commit()
	l.mu.Unlock()
	return err
}

// Close finishes the Line if it is still open and is a no-op otherwise.
// Deferring Close right after StartLine guarantees exactly one commit on
// every exit path, including early returns.
func (ln *Line) Close() error {
	if ln.logger == nil {
		return nil
	}
	return ln.Finish()
}
