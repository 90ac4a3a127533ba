package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/basekick-labs/dfio/internal/bench"
	"github.com/basekick-labs/dfio/internal/config"
	"github.com/basekick-labs/dfio/internal/database"
	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/gen"
	"github.com/basekick-labs/dfio/internal/logger"
	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/results"
	"github.com/basekick-labs/dfio/internal/shutdown"
	"github.com/basekick-labs/dfio/internal/storage"
	"github.com/rs/zerolog/log"
)

// errUsage marks errors caused by how the command was invoked rather than
// by the benchmark itself.
var errUsage = errors.New("usage error")

// app is everything a benchmarking command needs, built from the
// configuration after flags have been applied.
type app struct {
	cfg      *config.Config
	registry *methods.Registry
	runner   *bench.Runner
	store    *results.Store
	shutdown *shutdown.Coordinator
}

// listFlag is a comma separated string list flag that replaces its
// configured default when set.
type listFlag struct{ values *[]string }

func (f listFlag) String() string {
	if f.values == nil {
		return ""
	}
	return strings.Join(*f.values, ",")
}

func (f listFlag) Set(s string) error {
	*f.values = splitList(s)
	return nil
}

// intListFlag is the integer counterpart of listFlag.
type intListFlag struct{ values *[]int }

func (f intListFlag) String() string {
	if f.values == nil {
		return ""
	}
	parts := make([]string, len(*f.values))
	for i, n := range *f.values {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func (f intListFlag) Set(s string) error {
	var out []int
	for _, field := range splitList(s) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return fmt.Errorf("invalid integer %q", field)
		}
		out = append(out, n)
	}
	*f.values = out
	return nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// loadConfig loads the configuration, lets bind register flags whose
// defaults are the configured values, parses args and validates the
// result. Logging is set up from the final configuration.
func loadConfig(name string, args []string, bind func(fs *flag.FlagSet, cfg *config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: console or json")
	if bind != nil {
		bind(fs, cfg)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// bindBench registers the flags shared by run and sweep.
func bindBench(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Bench.Methods, "method", cfg.Bench.Methods,
		"method class list, catalogue name or JSON descriptor (default: all)")
	fs.Var(listFlag{&cfg.Bench.Operations}, "operation", "operations to run: write, read, decompress")
	fs.StringVar(&cfg.Bench.Dir, "dir", cfg.Bench.Dir, "directory benchmark files are written to")
	fs.IntVar(&cfg.Bench.Samples, "samples", cfg.Bench.Samples, "timed samples per benchmark")
	fs.IntVar(&cfg.Bench.BurnIn, "burn-in", cfg.Bench.BurnIn, "untimed executions before sampling")
	fs.StringVar(&cfg.Bench.ResultsPath, "results", cfg.Bench.ResultsPath, "results log path")
	fs.StringVar(&cfg.Cache.LocalPath, "cache", cfg.Cache.LocalPath, "generated dataset cache directory (local backend)")
}

// newApp opens the dataset cache and builds the catalogue and runner.
func newApp(cfg *config.Config) (*app, error) {
	coord := shutdown.New(logger.Get("shutdown"))

	cache, err := openCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset cache: %w", err)
	}
	coord.Register("cache", cache, shutdown.PriorityCache)

	registry := newCatalog(cfg)
	provider := gen.NewProvider(cache, logger.Get("gen"))
	runner, err := bench.NewRunner(provider, bench.Config{
		BurnIn:  cfg.Bench.BurnIn,
		Samples: cfg.Bench.Samples,
	}, logger.Get("bench"))
	if err != nil {
		_ = coord.Shutdown()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		registry: registry,
		runner:   runner,
		store:    results.NewStore(cfg.Bench.ResultsPath),
		shutdown: coord,
	}, nil
}

// newCatalog builds the standard method catalogue with the configured
// DuckDB settings.
func newCatalog(cfg *config.Config) *methods.Registry {
	return methods.DefaultCatalog(methods.Env{
		DuckDB: &database.Config{
			MemoryLimit: cfg.DuckDB.MemoryLimit,
			ThreadCount: cfg.DuckDB.ThreadCount,
		},
		Logger: logger.Get("methods"),
	})
}

func openCache(cfg config.CacheConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Backend(&storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
		}, logger.Get("storage"))
	default:
		return storage.NewLocalBackend(cfg.LocalPath, logger.Get("storage"))
	}
}

// selectMethods resolves a -method value: a JSON descriptor, a catalogue
// name, or a comma separated list of classes. Empty selects everything.
func selectMethods(reg *methods.Registry, sel string) ([]methods.Strategy, error) {
	sel = strings.TrimSpace(sel)
	switch {
	case sel == "":
		return reg.All(), nil
	case strings.HasPrefix(sel, "{"):
		d, err := methods.ParseDescriptor(sel)
		if err != nil {
			return nil, err
		}
		s, err := reg.Reconstruct(d)
		if err != nil {
			return nil, err
		}
		return []methods.Strategy{s}, nil
	}

	if s, ok := reg.Find(sel); ok {
		return []methods.Strategy{s}, nil
	}

	var out []methods.Strategy
	for _, class := range splitList(sel) {
		if !slices.Contains(methods.Classes, class) {
			return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidMethod,
				fmt.Sprintf("unknown method %q (classes: %s)", class, strings.Join(methods.Classes, ", ")))
		}
		out = append(out, reg.Filter(class)...)
	}
	return out, nil
}

// run executes fn with a context that an interrupt cancels, then closes
// the app's components and prints the failure digest.
func (a *app) run(fn func(ctx context.Context) (bench.SweepSummary, error)) error {
	ctx, stop := a.shutdown.Context(context.Background())
	summary, err := fn(ctx)
	stop()

	if closeErr := a.shutdown.Shutdown(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("Failed to close components")
	}

	printDigest(summary, a.store.Path())
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted after %d recorded benchmarks", summary.Recorded)
	}
	return err
}

// printDigest writes the sweep counts and every logged benchmark failure
// to stderr.
func printDigest(summary bench.SweepSummary, resultsPath string) {
	fmt.Fprintf(os.Stderr, "%s %d recorded, %d skipped, %d failed %s\n",
		titleStyle.Render("dfio:"),
		summary.Recorded, summary.Skipped, summary.Failed,
		descStyle.Render("-> "+resultsPath))

	if summary.Failed == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, errorStyle.Render("Failures:"))
	for _, e := range logger.GetBuffer().Entries("ERROR") {
		if e.Operation == "" || e.Method == "" {
			continue
		}
		target := e.Schema
		if target != "" {
			target = fmt.Sprintf("%s x %d", e.Schema, e.Length)
		}
		fmt.Fprintf(os.Stderr, "  %s %s %s\n    %s\n",
			commandStyle.Render(e.Operation), e.Method, target, descStyle.Render(e.Error))
	}
}
