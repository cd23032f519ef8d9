package jsonline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (f *fakeSink) WriteLine(line []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.lines = append(f.lines, string(line))
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// newFrozenLogger returns a logger whose ts field is always offset
// microseconds after the epoch.
func newFrozenLogger(fs *fakeSink, offset time.Duration) *Logger {
	base := time.Now()
	l := New(fs, WithNow(func() time.Time { return base }))
	l.nowFn = func() time.Time { return base.Add(offset) }
	return l
}

func TestLogger_EventDone(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 1234*time.Microsecond)

	require.NoError(t, l.StartLine().
		Append(Str("event")).
		Append(Str("done")).
		Finish())

	require.Equal(t, []string{`{"ts":1234,"event":"done"}`}, fs.all())
}

func TestLogger_CountsArray(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	require.NoError(t, l.StartLine().
		Append(Str("counts")).
		Append(Ints([]int{1, 2, 3})).
		Finish())

	require.Equal(t, []string{`{"ts":0,"counts":[1,2,3]}`}, fs.all())
}

func TestLogger_EscapedQuote(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	require.NoError(t, l.StartLine().
		Append(Str("msg")).
		Append(Str(`a"b`)).
		Finish())

	require.Equal(t, []string{`{"ts":0,"msg":"a\"b"}`}, fs.all())
}

func TestLogger_TsOnlyLine(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	require.NoError(t, l.StartLine().Finish())
	require.Equal(t, []string{`{"ts":0}`}, fs.all())
}

func TestLogger_LogShorthand(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	require.NoError(t, l.Log(Str("hello")))
	require.Equal(t, []string{`{"ts":0,"msg":"hello"}`}, fs.all())
}

func TestLogger_PairsKeepAppendOrder(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	const n = 5
	ln := l.StartLine()
	for i := 0; i < n; i++ {
		ln.Append(Str(fmt.Sprintf("k%d", i))).Append(Int(i))
	}
	require.NoError(t, ln.Finish())

	lines := fs.all()
	require.Len(t, lines, 1)

	// Valid JSON object with exactly n+1 fields.
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &obj))
	require.Len(t, obj, n+1)

	// Keys appear in append order, ts first.
	keys := decodeKeys(t, lines[0])
	require.Equal(t, []string{"ts", "k0", "k1", "k2", "k3", "k4"}, keys)
}

// decodeKeys returns the top-level object keys in wire order.
func decodeKeys(t *testing.T, line string) []string {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(line))
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))

		var v any
		require.NoError(t, dec.Decode(&v))
	}
	return keys
}

func TestLine_OddAppendsPanicsBeforeSink(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	ln := l.StartLine().Append(Str("orphan-key"))
	require.Panics(t, func() { _ = ln.Finish() })

	// Nothing may reach the sink on a parity violation.
	assert.Empty(t, fs.all())
}

func TestLine_UseAfterFinishPanics(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	ln := l.StartLine()
	require.NoError(t, ln.Finish())

	require.Panics(t, func() { ln.Append(Str("k")) })
	require.Panics(t, func() { _ = ln.Finish() })
}

func TestLine_CloseIsIdempotent(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	ln := l.StartLine()
	require.NoError(t, ln.Close())
	require.NoError(t, ln.Close())

	require.Len(t, fs.all(), 1)
}

func TestLine_DeferredCloseCommitsOnEarlyReturn(t *testing.T) {
	fs := &fakeSink{}
	l := newFrozenLogger(fs, 0)

	emit := func() (err error) {
		ln := l.StartLine()
		defer func() {
			if cerr := ln.Close(); err == nil {
				err = cerr
			}
		}()

		ln.Append(Str("partial")).Append(Bool(true))
		return errors.New("downstream failure")
	}

	require.Error(t, emit())
	require.Equal(t, []string{`{"ts":0,"partial":true}`}, fs.all())
}

func TestLine_SinkErrorPropagates(t *testing.T) {
	sinkErr := errors.New("sink closed")
	fs := &fakeSink{err: sinkErr}
	l := newFrozenLogger(fs, 0)

	err := l.StartLine().Append(Str("k")).Append(Int(1)).Finish()
	require.ErrorIs(t, err, sinkErr)
}

func TestLogger_ConcurrentLinesStayAtomic(t *testing.T) {
	fs := &fakeSink{}
	l := New(fs)

	const goroutines = 4
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				err := l.StartLine().
					Append(Str("worker")).Append(Int(g)).
					Append(Str("i")).Append(Int(i)).
					Finish()
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	lines := fs.all()
	require.Len(t, lines, goroutines*perGoroutine)
	for _, line := range lines {
		require.True(t, json.Valid([]byte(line)), "not valid JSON: %q", line)
	}
}
