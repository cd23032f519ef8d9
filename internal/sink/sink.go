package sink

//go:generate mockgen -source=sink.go -destination=./mocks/mock_sink.go -package=mocks

// Sink is an append-only destination for completed lines of text. The
// sink owns line framing and flushing: callers pass a line without its
// terminator and the sink appends one.
type Sink interface {
	// WriteLine appends one line of text.
	WriteLine(line []byte) error
	// Close flushes buffered data and releases resources.
	Close() error
}
