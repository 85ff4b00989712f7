package fluctuation

import (
	"runtime"

	"github.com/beamline-data/fluxnorm/internal/progress"
)

// Strategy identifies which correction path a run takes.
type Strategy string

const (
	// StrategyFixedBoundary divides each row by a linear interpolation
	// between the means of caller-sized air margins on its ends.
	StrategyFixedBoundary Strategy = "fixed_boundary"
	// StrategyAdaptive locates air pixels per frame with the edge-based
	// detector and divides the frame by their mean.
	StrategyAdaptive Strategy = "adaptive"
)

// IsValid reports whether s names a known strategy.
func (s Strategy) IsValid() bool {
	return s == StrategyFixedBoundary || s == StrategyAdaptive
}

// Options control a correction run.
type Options struct {
	// AirPixels selects the strategy: negative runs the adaptive
	// detector, zero or positive is the margin width handed to the
	// fixed-boundary delegate.
	AirPixels int

	// Sigma is the adaptive detector's smoothing bandwidth. Ignored on
	// the fixed-boundary path.
	Sigma float64

	// MaxWorkers bounds the worker pool. 0 means all available cores;
	// asking for more than the hardware has is capped, never an error.
	MaxWorkers int

	// Progress receives completion updates as chunks finish. nil
	// discards them.
	Progress progress.Sink
}

// DefaultOptions returns the production defaults: adaptive strategy
// with a bandwidth of 3, all cores.
func DefaultOptions() Options {
	return Options{AirPixels: -1, Sigma: 3, MaxWorkers: 0}
}

// Strategy resolves the path AirPixels selects.
func (o Options) Strategy() Strategy {
	if o.AirPixels < 0 {
		return StrategyAdaptive
	}
	return StrategyFixedBoundary
}

// Validate applies the configuration-time checks. Capping the worker
// count to the hardware is a separate, later step (resolveWorkers), so
// a zero request is legal here and means "everything available".
func (o Options) Validate() error {
	if o.MaxWorkers < 0 {
		return configErrorf("max workers must be non-negative, got %d", o.MaxWorkers)
	}
	if o.Strategy() == StrategyAdaptive && o.Sigma <= 0 {
		return configErrorf("sigma must be positive on the adaptive path, got %g", o.Sigma)
	}
	return nil
}

// resolveWorkers maps a validated worker request onto the hardware:
// 0 becomes all cores, anything beyond the core count is capped, and
// the result is always in [1, runtime.NumCPU()].
func resolveWorkers(requested int) int {
	cores := runtime.NumCPU()
	switch {
	case requested == 0, requested > cores:
		return cores
	case requested < 1:
		return 1
	default:
		return requested
	}
}
