// Package fluctuation corrects radiograph stacks for time-varying beam
// intensity. Each frame is divided by a scalar factor estimated from
// its own air pixels; the factor comes either from a caller-sized fixed
// margin (delegated to normbg) or from the adaptive edge-based detector
// in this package. Frames are independent, so the adaptive path fans
// chunks of frames out to a bounded worker pool over one shared
// snapshot of the input.
package fluctuation

import (
	"context"
	"time"

	"github.com/beamline-data/fluxnorm/internal/monitoring"
	"github.com/beamline-data/fluxnorm/internal/normbg"
	"github.com/beamline-data/fluxnorm/internal/progress"
	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// Result is the full outcome of a correction run.
type Result struct {
	// Stack is the corrected output, same shape as the input, never
	// aliasing its buffer.
	Stack *radiograph.Stack

	// Strategy that actually executed.
	Strategy Strategy

	// Workers is the resolved worker count.
	Workers int

	// Factors holds the per-frame divisors on the adaptive path. It is
	// nil on the fixed-boundary path, which interpolates per row and
	// has no single per-frame factor.
	Factors []float64

	// Elapsed is the wall time of the numeric work.
	Elapsed time.Duration
}

// Correct corrects a stack for beam intensity fluctuation and returns
// only the corrected stack. Run returns the full outcome.
func Correct(ctx context.Context, stack *radiograph.Stack, opts Options) (*radiograph.Stack, error) {
	res, err := Run(ctx, stack, opts)
	if err != nil {
		return nil, err
	}
	return res.Stack, nil
}

// Run validates opts and the stack's rank, resolves strategy and worker
// count, executes the correction, and reports the outcome. Rank-2
// input runs as a one-frame stack and comes back rank 2.
func Run(ctx context.Context, stack *radiograph.Stack, opts Options) (*Result, error) {
	if stack == nil {
		return nil, configErrorf("nil stack")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if r := stack.Rank(); r != 2 && r != 3 {
		return nil, configErrorf("stack rank must be 2 or 3, got %d", r)
	}
	if opts.Progress == nil {
		opts.Progress = progress.Discard
	}

	work := stack
	if stack.Rank() == 2 {
		var err error
		work, err = stack.Reshape(1, stack.Height(), stack.Width())
		if err != nil {
			return nil, err
		}
	}

	strategy := opts.Strategy()
	workers := resolveWorkers(opts.MaxWorkers)
	monitoring.Logf("[ifc] %s correction: %d frames of %dx%d, %d workers",
		strategy, work.Frames(), work.Height(), work.Width(), workers)

	start := time.Now()
	var (
		corrected *radiograph.Stack
		factors   []float64
		err       error
	)
	switch strategy {
	case StrategyAdaptive:
		corrected, factors, err = applyAdaptive(ctx, work, opts.Sigma, workers, opts.Progress)
	case StrategyFixedBoundary:
		corrected, err = normbg.Normalize(ctx, work, opts.AirPixels, workers)
		if err == nil {
			// The delegate has no per-chunk reporting; one completion
			// update keeps the sink contract on this path too.
			opts.Progress.Update(work.Frames(), work.Frames())
		}
	}
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if stack.Rank() == 2 {
		corrected, err = corrected.Reshape(stack.Height(), stack.Width())
		if err != nil {
			return nil, err
		}
	}
	monitoring.Logf("[ifc] finished %s correction in %s", strategy, elapsed.Round(time.Millisecond))

	return &Result{
		Stack:    corrected,
		Strategy: strategy,
		Workers:  workers,
		Factors:  factors,
		Elapsed:  elapsed,
	}, nil
}
