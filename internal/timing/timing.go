// Package timing runs an operation repeatedly and measures it.
package timing

import (
	"fmt"
	"math"
	"time"

	apperrors "github.com/basekick-labs/dfio/internal/errors"
)

// Defaults used when the caller does not configure the trial.
const (
	DefaultBurnIn  = 1
	DefaultSamples = 3
)

// Time calls fn burnIn times without measuring it, then samples times with
// each call timed on the monotonic clock. Durations are returned in call
// order. The first error from fn aborts the run and is returned as is, with
// no partial measurements.
func Time(fn func() error, burnIn, samples int) ([]time.Duration, error) {
	if burnIn < 0 {
		return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidTiming,
			fmt.Sprintf("burn-in count must be >= 0, got %d", burnIn))
	}
	if samples < 1 {
		return nil, apperrors.NewConfigurationError(apperrors.CodeInvalidTiming,
			fmt.Sprintf("sample count must be >= 1, got %d", samples))
	}

	for i := 0; i < burnIn; i++ {
		if err := fn(); err != nil {
			return nil, err
		}
	}

	times := make([]time.Duration, 0, samples)
	for i := 0; i < samples; i++ {
		start := time.Now()
		err := fn()
		elapsed := time.Since(start)
		if err != nil {
			return nil, err
		}
		times = append(times, elapsed)
	}
	return times, nil
}

// Stats summarizes a sample set in seconds. Std is the population standard
// deviation.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Spread float64 `json:"spread"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// Summarize reduces durations to Stats. An empty input yields zero Stats.
func Summarize(times []time.Duration) Stats {
	if len(times) == 0 {
		return Stats{}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	var sum float64
	for _, d := range times {
		s := d.Seconds()
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
		sum += s
	}
	mean := sum / float64(len(times))

	var sq float64
	for _, d := range times {
		diff := d.Seconds() - mean
		sq += diff * diff
	}

	return Stats{
		Count:  len(times),
		Min:    lo,
		Spread: hi - lo,
		Mean:   mean,
		Std:    math.Sqrt(sq / float64(len(times))),
	}
}
