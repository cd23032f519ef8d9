// Package generator produces random records sampled from a seed file.
// The total record count is partitioned across workers; each worker
// samples uniformly with replacement and emits every record as one JSON
// line through its Logger.
package generator

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/statline/statline/internal/jsonline"
)

// Load reads the seed file into memory, one record per line. Trailing
// carriage returns are stripped so CRLF files behave like LF files.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var records []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		records = append(records, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("seed file %s has no records", path)
	}
	return records, nil
}

// PartitionCount returns rank's share of total split across workers.
// Every worker gets an equal share; the last worker takes the remainder.
func PartitionCount(total, workers, rank int) int {
	per := total / workers
	if rank == workers-1 {
		return total - (workers-1)*per
	}
	return per
}

// Worker emits a fixed number of records sampled from the seed set.
type Worker struct {
	rank    int
	records []string
	count   int
	rng     *rand.Rand
	logger  *jsonline.Logger

	// Optional metric callback provided by the owner.
	incrRecords func(int64)
}

// NewWorker creates a worker with its own RNG and Logger. Sharing a
// Logger between workers is fine; sharing an RNG is not.
func NewWorker(rank int, records []string, count int, rng *rand.Rand, logger *jsonline.Logger) *Worker {
	return &Worker{
		rank:    rank,
		records: records,
		count:   count,
		rng:     rng,
		logger:  logger,
	}
}

// SetMetricsCallback installs an optional callback invoked once per
// emitted record. If not provided, no metrics are recorded.
func (w *Worker) SetMetricsCallback(incrRecords func(int64)) {
	w.incrRecords = incrRecords
}

// Run emits the worker's share of records, then a completion event.
// Cancellation is checked between emissions.
func (w *Worker) Run(ctx context.Context) error {
	for i := 0; i < w.count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.emitRecord(w.records[w.rng.IntN(len(w.records))]); err != nil {
			return fmt.Errorf("emit record: %w", err)
		}
		if w.incrRecords != nil {
			w.incrRecords(1)
		}
	}
	return w.emitDone()
}

func (w *Worker) emitRecord(record string) (err error) {
	ln := w.logger.StartLine()
	defer func() {
		if cerr := ln.Close(); err == nil {
			err = cerr
		}
	}()

	ln.
		Append(jsonline.Str("rank")).Append(jsonline.Int(w.rank)).
		Append(jsonline.Str("record")).Append(jsonline.Str(record))
	return nil
}

func (w *Worker) emitDone() error {
	return w.logger.StartLine().
		Append(jsonline.Str("class")).Append(jsonline.Str("Generate")).
		Append(jsonline.Str("event")).Append(jsonline.Str("done")).
		Append(jsonline.Str("rank")).Append(jsonline.Int(w.rank)).
		Append(jsonline.Str("emitted")).Append(jsonline.Int(w.count)).
		Finish()
}
