package config

import (
	"errors"
	"flag"
	"time"
)

// Config holds instance-level configuration for a generation run.
type Config struct {
	SeedFile   string
	Count      int
	Workers    int
	OutputFile string
	OutputDir  string
	Seed       uint64

	LogLevel        string
	GracefulTimeout time.Duration
}

// RegisterFlags registers CLI flags and returns a reader that captures them after flag.Parse().
func RegisterFlags() func() Config {
	seedFile := flag.String("seedFile", "", "Path to the seed file, one record per line (required)")
	count := flag.Int("count", 1000, "Total number of records to generate across all workers")
	workers := flag.Int("workers", 4, "Number of generator workers")
	outFile := flag.String("outputFile", "", "Append all output to this file instead of stdout")
	outDir := flag.String("outputDir", "", "Write one output file per worker into this directory")
	seed := flag.Uint64("seed", 0, "RNG seed; 0 picks a random seed")
	logLevel := flag.String("logLevel", "info", "Log level: debug|info|warn|error")
	graceful := flag.Duration("gracefulTimeout", 10*time.Second, "Graceful shutdown timeout")

	return func() Config {
		return Config{
			SeedFile:        *seedFile,
			Count:           *count,
			Workers:         *workers,
			OutputFile:      *outFile,
			OutputDir:       *outDir,
			Seed:            *seed,
			LogLevel:        *logLevel,
			GracefulTimeout: *graceful,
		}
	}
}

// Validate reports configuration errors that flag parsing cannot catch.
func (c Config) Validate() error {
	if c.SeedFile == "" {
		return errors.New("seedFile is required")
	}
	if c.Count < 0 {
		return errors.New("count must not be negative")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.OutputFile != "" && c.OutputDir != "" {
		return errors.New("outputFile and outputDir are mutually exclusive")
	}
	return nil
}
