package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
	"github.com/basekick-labs/dfio/internal/gen"
	"github.com/basekick-labs/dfio/internal/methods"
	"github.com/basekick-labs/dfio/internal/results"
	"github.com/rs/zerolog"
)

// Plan is the cross product a sweep walks: methods x operations x schemas
// x lengths, in that nesting order.
type Plan struct {
	Methods    []methods.Strategy
	Operations []string
	Schemas    []string
	Lengths    []int
	Dir        string
}

// Validate checks the plan before any trial runs.
func (p *Plan) Validate() error {
	if err := checkDir(p.Dir); err != nil {
		return err
	}
	for _, op := range p.Operations {
		if !results.ValidOperation(op) {
			return apperrors.NewConfigurationError(apperrors.CodeInvalidOperation,
				fmt.Sprintf("unknown operation %q", op))
		}
	}
	for _, schema := range p.Schemas {
		if _, err := gen.ParseSchema(schema); err != nil {
			return err
		}
	}
	for _, length := range p.Lengths {
		if length < 0 {
			return apperrors.NewConfigurationError(apperrors.CodeInvalidLength,
				fmt.Sprintf("length must be non-negative, got %d", length))
		}
	}
	return nil
}

// Size is the number of combinations in the plan.
func (p *Plan) Size() int {
	return len(p.Methods) * len(p.Operations) * len(p.Schemas) * len(p.Lengths)
}

// SweepSummary counts how each combination of a sweep ended.
type SweepSummary struct {
	Recorded int
	Skipped  int
	Failed   int
}

// Sweep runs every combination of plan and appends a record for each one
// that succeeds. Unsupported combinations are skipped and failing ones are
// logged and skipped; neither stops the sweep. Configuration errors, dataset
// cache errors and results log errors do.
func (r *Runner) Sweep(ctx context.Context, plan Plan, store *results.Store) (SweepSummary, error) {
	var summary SweepSummary
	if err := plan.Validate(); err != nil {
		return summary, err
	}

	start := time.Now()
	r.logger.Info().
		Int("combinations", plan.Size()).
		Str("dir", plan.Dir).
		Str("results", store.Path()).
		Msg("Starting sweep")

	for _, strategy := range plan.Methods {
		for _, op := range plan.Operations {
			for _, schema := range plan.Schemas {
				for _, length := range plan.Lengths {
					if err := ctx.Err(); err != nil {
						return summary, err
					}

					rec, err := r.Run(ctx, op, strategy, schema, length, plan.Dir)
					trial := func(e *zerolog.Event) *zerolog.Event {
						return e.Str("operation", op).
							Str("method", strategy.String()).
							Str("schema", schema).
							Int("length", length)
					}
					if err := r.settle(&summary, store, rec, err, trial); err != nil {
						return summary, err
					}
				}
			}
		}
	}

	r.logger.Info().
		Int("recorded", summary.Recorded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", time.Since(start)).
		Msg("Sweep complete")
	return summary, nil
}

// SweepFile runs every method x operation on the table stored in dataPath,
// settling each trial the way Sweep does.
func (r *Runner) SweepFile(ctx context.Context, strategies []methods.Strategy, ops []string, dataPath, dir string, store *results.Store) (SweepSummary, error) {
	var summary SweepSummary
	data := filepath.Base(dataPath)

	for _, strategy := range strategies {
		for _, op := range ops {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			rec, err := r.RunFile(op, strategy, dataPath, dir)
			trial := func(e *zerolog.Event) *zerolog.Event {
				return e.Str("operation", op).
					Str("method", strategy.String()).
					Str("data", data)
			}
			if err := r.settle(&summary, store, rec, err, trial); err != nil {
				return summary, err
			}
		}
	}

	r.logger.Info().
		Int("recorded", summary.Recorded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("File benchmarks complete")
	return summary, nil
}

// settle records the outcome of one trial. Unsupported and failed trials
// are logged and counted; any other error is returned to stop the sweep.
func (r *Runner) settle(summary *SweepSummary, store *results.Store, rec *results.Record, err error, trial func(*zerolog.Event) *zerolog.Event) error {
	switch {
	case err == nil:
	case apperrors.IsNotSupported(err):
		trial(r.logger.Info()).Msg("Skipping unsupported combination")
		summary.Skipped++
		return nil
	case apperrors.IsExecution(err):
		trial(r.logger.Error().Err(err)).Msg("Benchmark failed")
		summary.Failed++
		return nil
	default:
		return err
	}

	if err := store.Append(*rec); err != nil {
		return err
	}
	summary.Recorded++

	trial(r.logger.Info()).
		Float64("min", rec.Time.Min).
		Msg("Recorded benchmark")
	return nil
}
