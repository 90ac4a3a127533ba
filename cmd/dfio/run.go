package main

import (
	"context"
	"flag"

	"github.com/basekick-labs/dfio/internal/bench"
	"github.com/basekick-labs/dfio/internal/config"
	"github.com/rs/zerolog/log"
)

func runCommand(args []string) error {
	cfg, err := loadConfig("run", args, func(fs *flag.FlagSet, cfg *config.Config) {
		bindBench(fs, cfg)
		fs.Var(listFlag{&cfg.Bench.Schemas}, "schema", "schema codes or preset names to generate")
		fs.Var(intListFlag{&cfg.Bench.Lengths}, "length", "table lengths to generate")
		fs.StringVar(&cfg.Bench.Data, "data", cfg.Bench.Data, "benchmark the Arrow IPC table in this file instead of a generated one")
	})
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	strategies, err := selectMethods(a.registry, cfg.Bench.Methods)
	if err != nil {
		_ = a.shutdown.Shutdown()
		return err
	}

	if cfg.Bench.Data != "" {
		log.Info().
			Str("data", cfg.Bench.Data).
			Int("methods", len(strategies)).
			Strs("operations", cfg.Bench.Operations).
			Msg("Benchmarking external table")
		return a.run(func(ctx context.Context) (bench.SweepSummary, error) {
			return a.runner.SweepFile(ctx, strategies, cfg.Bench.Operations, cfg.Bench.Data, cfg.Bench.Dir, a.store)
		})
	}

	plan := bench.Plan{
		Methods:    strategies,
		Operations: cfg.Bench.Operations,
		Schemas:    cfg.Bench.Schemas,
		Lengths:    cfg.Bench.Lengths,
		Dir:        cfg.Bench.Dir,
	}
	return a.run(func(ctx context.Context) (bench.SweepSummary, error) {
		return a.runner.Sweep(ctx, plan, a.store)
	})
}

func sweepCommand(args []string) error {
	cfg, err := loadConfig("sweep", args, func(fs *flag.FlagSet, cfg *config.Config) {
		bindBench(fs, cfg)
		fs.Var(listFlag{&cfg.Sweep.Schemas}, "schema", "schema codes or preset names to sweep")
		fs.Var(intListFlag{&cfg.Sweep.Lengths}, "length", "table lengths to sweep")
	})
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	strategies, err := selectMethods(a.registry, cfg.Bench.Methods)
	if err != nil {
		_ = a.shutdown.Shutdown()
		return err
	}

	plan := bench.Plan{
		Methods:    strategies,
		Operations: cfg.Bench.Operations,
		Schemas:    cfg.Sweep.Schemas,
		Lengths:    cfg.Sweep.Lengths,
		Dir:        cfg.Bench.Dir,
	}
	return a.run(func(ctx context.Context) (bench.SweepSummary, error) {
		return a.runner.Sweep(ctx, plan, a.store)
	})
}
