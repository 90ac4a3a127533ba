// Package bench runs timed write, read and decompress trials of a storage
// method against a generated table and turns them into result records.
package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/gen"
	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/results"
	"github.com/basekick-labs/dfio/internal/table"
	"github.com/basekick-labs/dfio/internal/timing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds the trial parameters.
type Config struct {
	BurnIn  int
	Samples int
}

// Runner executes benchmark trials. It is not safe for concurrent use;
// trials run one at a time so they don't disturb each other's timings.
type Runner struct {
	provider *gen.Provider
	burnIn   int
	samples  int
	hostname string
	logger   zerolog.Logger
}

// NewRunner creates a runner drawing tables from provider.
func NewRunner(provider *gen.Provider, cfg Config, logger zerolog.Logger) (*Runner, error) {
	if cfg.Samples < 1 {
		return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidTiming,
			fmt.Sprintf("samples must be at least 1, got %d", cfg.Samples))
	}
	if cfg.BurnIn < 0 {
		return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidTiming,
			fmt.Sprintf("burn-in must be non-negative, got %d", cfg.BurnIn))
	}

	hostname, _ := os.Hostname()

	return &Runner{
		provider: provider,
		burnIn:   cfg.BurnIn,
		samples:  cfg.Samples,
		hostname: hostname,
		logger:   logger.With().Str("component", "bench").Logger(),
	}, nil
}

// Run benchmarks op for strategy on the (schema, length) table, with the
// artifact placed in dir. Strategy failures are execution errors; the
// artifact is removed whether the trial succeeds or not.
func (r *Runner) Run(ctx context.Context, op string, strategy methods.Strategy, schema string, length int, dir string) (*results.Record, error) {
	if err := checkTrial(op, strategy, dir); err != nil {
		return nil, err
	}

	cacheSize, tbl, err := r.provider.GetTable(ctx, schema, length)
	if err != nil {
		return nil, err
	}

	rec, err := r.measure(op, strategy, tbl, dir)
	if err != nil {
		return nil, err
	}
	rec.Schema = schema
	rec.Codename = schema
	rec.CacheFileSize = &cacheSize
	return rec, nil
}

// RunFile benchmarks op for strategy on a table loaded from an external
// Arrow IPC file instead of a generated one.
func (r *Runner) RunFile(op string, strategy methods.Strategy, dataPath string, dir string) (*results.Record, error) {
	if err := checkTrial(op, strategy, dir); err != nil {
		return nil, err
	}

	_, tbl, err := gen.LoadFile(dataPath)
	if err != nil {
		return nil, err
	}

	rec, err := r.measure(op, strategy, tbl, dir)
	if err != nil {
		return nil, err
	}
	rec.Data = filepath.Base(dataPath)
	return rec, nil
}

// checkTrial validates everything about a trial that doesn't need the table.
func checkTrial(op string, strategy methods.Strategy, dir string) error {
	if err := checkDir(dir); err != nil {
		return err
	}
	if !results.ValidOperation(op) {
		return apperrors.NewConfigurationError(apperrors.CodeInvalidOperation,
			fmt.Sprintf("unknown operation %q", op))
	}
	if op == results.OpDecompress {
		if _, ok := methods.AsDecompressor(strategy); !ok {
			return apperrors.NewNotSupportedError(apperrors.CodeNoDecompress,
				fmt.Sprintf("%s does not support decompress", strategy))
		}
	}
	return nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return apperrors.NewConfigurationError(apperrors.CodeNotADirectory,
			fmt.Sprintf("not a directory: %s", dir))
	}
	return nil
}

// tempPath returns a path in dir that doesn't exist yet.
func tempPath(dir string) (string, error) {
	for range 100 {
		path := filepath.Join(dir, "dfio-"+uuid.NewString())
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no free temporary name in %s", dir)
}

func (r *Runner) measure(op string, strategy methods.Strategy, tbl *table.Table, dir string) (*results.Record, error) {
	path, err := tempPath(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := strategy.CleanUp(path); err != nil {
			r.logger.Warn().Err(err).Str("path", path).Msg("Failed to clean up benchmark artifact")
		}
	}()

	var fn func() error
	switch op {
	case results.OpWrite:
		fn = func() error { return strategy.Write(tbl, path) }
	case results.OpRead:
		if err := strategy.Write(tbl, path); err != nil {
			return nil, apperrors.NewExecutionError(apperrors.CodeWriteFailed, "setup write failed", err)
		}
		fn = func() error {
			_, err := strategy.Read(path)
			return err
		}
	case results.OpDecompress:
		dec, _ := methods.AsDecompressor(strategy)
		if err := strategy.Write(tbl, path); err != nil {
			return nil, apperrors.NewExecutionError(apperrors.CodeWriteFailed, "setup write failed", err)
		}
		fn = func() error {
			_, err := dec.Decompress(path)
			return err
		}
	}

	times, err := timing.Time(fn, r.burnIn, r.samples)
	if err != nil {
		code := apperrors.CodeReadFailed
		if op == results.OpWrite {
			code = apperrors.CodeWriteFailed
		}
		return nil, apperrors.NewExecutionError(code, op+" failed", err)
	}

	// Measured before the deferred cleanup runs. An unknown size stays nil
	// rather than becoming zero.
	var fileSize *int64
	if size, err := strategy.FileSize(path); err == nil {
		fileSize = &size
	} else {
		r.logger.Warn().Err(err).Str("method", strategy.String()).Msg("Could not measure file size")
	}

	dataSize := tbl.DataSize()
	burnIn := r.burnIn
	return &results.Record{
		Operation:  op,
		Method:     strategy.Descriptor(),
		MethodName: strategy.String(),
		Length:     tbl.NumRows(),
		Cols:       tbl.NumCols(),
		DataSize:   &dataSize,
		FileSize:   fileSize,
		Dir:        dir,
		Time:       timing.Summarize(times),
		Samples:    r.samples,
		BurnIn:     &burnIn,
		Timestamp:  results.NewTimestamp(time.Now()),
		Hostname:   r.hostname,
	}, nil
}
