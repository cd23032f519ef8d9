package orchestrator

//go:generate mockgen -source=orchestrator.go -destination=./mocks/mock_orchestrator.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	cfgpkg "github.com/statline/statline/internal/config"
	"github.com/statline/statline/internal/generator"
	"github.com/statline/statline/internal/jsonline"
	"github.com/statline/statline/internal/sink"
)

const instrumentationName = "github.com/statline/statline"

type Orchestrator interface {
	Run(ctx context.Context) error
	Close(ctx context.Context) error
}

// orchestratorSvc holds all instance-scoped dependencies and metrics.
type orchestratorSvc struct {
	Cfg    cfgpkg.Config
	Logger *slog.Logger
	Tracer oteltrace.Tracer
	Meter  otelmetric.Meter

	// Metrics
	RecordsGenerated otelmetric.Int64Counter
	LinesEmitted     otelmetric.Int64Counter
	WriteFailures    otelmetric.Int64Counter

	Workers []*generator.Worker

	outSink    sink.Sink
	nowFn      func() time.Time
	ownedSinks []sink.Sink
}

// Option configures the orchestrator during New.
type Option func(*orchestratorSvc) error

// WithSink overrides the configured output with a custom sink (useful for tests).
func WithSink(s sink.Sink) Option {
	return func(svc *orchestratorSvc) error { svc.outSink = s; return nil }
}

// WithNow overrides the clock used for line timestamps (useful for tests).
func WithNow(fn func() time.Time) Option {
	return func(svc *orchestratorSvc) error { svc.nowFn = fn; return nil }
}

func New(cfg cfgpkg.Config, logger *slog.Logger, opts ...Option) (*orchestratorSvc, error) {
	s := &orchestratorSvc{
		Cfg:    cfg,
		Logger: logger,
		Tracer: otel.Tracer(instrumentationName),
		Meter:  otel.Meter(instrumentationName),
		nowFn:  time.Now,
	}

	var err error
	if s.RecordsGenerated, err = s.Meter.Int64Counter(
		"statline.records.generated",
		otelmetric.WithDescription("The number of records generated by statline workers"),
		otelmetric.WithUnit("{record}"),
	); err != nil {
		return nil, err
	}

	if s.LinesEmitted, err = s.Meter.Int64Counter(
		"statline.lines.emitted",
		otelmetric.WithDescription("The number of JSON lines accepted by the output sink"),
		otelmetric.WithUnit("{line}"),
	); err != nil {
		return nil, err
	}

	if s.WriteFailures, err = s.Meter.Int64Counter(
		"statline.write.failed",
		otelmetric.WithDescription("Number of failed sink writes"),
		otelmetric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	records, err := generator.Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	// One Logger per worker when per-worker files are configured;
	// otherwise all workers share a single Logger on the one sink.
	loggers, err := s.buildLoggers()
	if err != nil {
		return nil, err
	}

	s.Workers = make([]*generator.Worker, cfg.Workers)
	for rank := range s.Workers {
		count := generator.PartitionCount(cfg.Count, cfg.Workers, rank)
		rng := rand.New(rand.NewPCG(seed, uint64(rank)))
		w := generator.NewWorker(rank, records, count, rng, loggers[rank])
		w.SetMetricsCallback(func(n int64) { s.RecordsGenerated.Add(context.Background(), n) })
		s.Workers[rank] = w
	}

	return s, nil
}

// buildLoggers resolves the configured output into one jsonline Logger
// per worker. Sinks created here are owned and closed by Close.
func (s *orchestratorSvc) buildLoggers() ([]*jsonline.Logger, error) {
	loggers := make([]*jsonline.Logger, s.Cfg.Workers)

	if s.Cfg.OutputDir != "" && s.outSink == nil {
		for rank := range loggers {
			fs, err := sink.NewFile(filepath.Join(s.Cfg.OutputDir, fmt.Sprintf("worker-%d.jsonl", rank)))
			if err != nil {
				return nil, errors.Join(err, s.closeSinks())
			}
			s.ownedSinks = append(s.ownedSinks, fs)
			loggers[rank] = jsonline.New(s.countingSink(fs), jsonline.WithNow(s.nowFn))
		}
		return loggers, nil
	}

	out := s.outSink
	if out == nil {
		if s.Cfg.OutputFile != "" {
			fs, err := sink.NewFile(s.Cfg.OutputFile)
			if err != nil {
				return nil, err
			}
			s.ownedSinks = append(s.ownedSinks, fs)
			out = fs
		} else {
			out = sink.NewStdout()
		}
	}

	shared := jsonline.New(s.countingSink(out), jsonline.WithNow(s.nowFn))
	for rank := range loggers {
		loggers[rank] = shared
	}
	return loggers, nil
}

// Run executes all workers to completion. Each worker runs in its own
// goroutine; the joined error of all workers is returned.
func (s *orchestratorSvc) Run(ctx context.Context) error {
	ctx, span := s.Tracer.Start(ctx, "orchestrator.Run")
	defer span.End()

	s.Logger.InfoContext(ctx, "starting generation",
		slog.Int("workers", len(s.Workers)), slog.Int("count", s.Cfg.Count))

	var wg sync.WaitGroup
	errs := make([]error, len(s.Workers))
	for rank, w := range s.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[rank] = w.Run(ctx)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("generation run: %w", err)
	}

	s.Logger.InfoContext(ctx, "generation complete")
	return nil
}

// Close releases the sinks created by New. Safe to call more than once.
func (s *orchestratorSvc) Close(ctx context.Context) error {
	_, span := s.Tracer.Start(ctx, "orchestrator.Close")
	defer span.End()

	return s.closeSinks()
}

func (s *orchestratorSvc) closeSinks() error {
	var err error
	for _, snk := range s.ownedSinks {
		err = errors.Join(err, snk.Close())
	}
	s.ownedSinks = nil
	return err
}

// countingSink decorates a sink with the emit/failure counters.
func (s *orchestratorSvc) countingSink(next sink.Sink) sink.Sink {
	return &countingSink{svc: s, next: next}
}

type countingSink struct {
	svc  *orchestratorSvc
	next sink.Sink
}

func (c *countingSink) WriteLine(line []byte) error {
	if err := c.next.WriteLine(line); err != nil {
		c.svc.WriteFailures.Add(context.Background(), 1)
		return err
	}
	c.svc.LinesEmitted.Add(context.Background(), 1)
	return nil
}

func (c *countingSink) Close() error { return c.next.Close() }
