// Package workflow validates JSON workflow configurations against the
// set of task implementations this module ships. It checks structure
// and function resolution only; executing a task list is the job of
// whatever pipeline embeds the corrections.
package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/beamline-data/fluxnorm/internal/fluctuation"
	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// TaskFunc is a runnable task implementation: it takes the stack a
// pipeline step operates on plus the step's scalar inputs and returns
// the transformed stack.
type TaskFunc func(ctx context.Context, stack *radiograph.Stack, inputs map[string]any) (*radiograph.Stack, error)

// Registry maps absolute function names to implementations.
type Registry struct {
	funcs map[string]TaskFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]TaskFunc)}
}

// Register binds name to fn. Rebinding a name is an error; pipelines
// must not silently swap implementations underneath configs that were
// validated earlier.
func (r *Registry) Register(name string, fn TaskFunc) error {
	if name == "" {
		return fmt.Errorf("workflow: empty function name")
	}
	if fn == nil {
		return fmt.Errorf("workflow: nil implementation for %q", name)
	}
	if _, dup := r.funcs[name]; dup {
		return fmt.Errorf("workflow: function %q already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the implementation bound to name.
func (r *Registry) Lookup(name string) (TaskFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns every registered function name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the corrections this module
// implements bound under their canonical names.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Register cannot fail here: the names are distinct literals.
	_ = r.Register("fluxnorm.corrections.intensity_fluctuation", runIntensityFluctuation)
	_ = r.Register("fluxnorm.corrections.normalize_roi", runNormalizeROI)
	return r
}

func runIntensityFluctuation(ctx context.Context, stack *radiograph.Stack, inputs map[string]any) (*radiograph.Stack, error) {
	opts := fluctuation.DefaultOptions()
	var err error
	if opts.AirPixels, err = intInput(inputs, "air_pixels", opts.AirPixels); err != nil {
		return nil, err
	}
	if opts.Sigma, err = floatInput(inputs, "sigma", opts.Sigma); err != nil {
		return nil, err
	}
	if opts.MaxWorkers, err = intInput(inputs, "max_workers", opts.MaxWorkers); err != nil {
		return nil, err
	}
	return fluctuation.Correct(ctx, stack, opts)
}

func runNormalizeROI(ctx context.Context, stack *radiograph.Stack, inputs map[string]any) (*radiograph.Stack, error) {
	var roi fluctuation.ROI
	var err error
	if roi.Top, err = requireIntInput(inputs, "top"); err != nil {
		return nil, err
	}
	if roi.Left, err = requireIntInput(inputs, "left"); err != nil {
		return nil, err
	}
	if roi.Bottom, err = requireIntInput(inputs, "bottom"); err != nil {
		return nil, err
	}
	if roi.Right, err = requireIntInput(inputs, "right"); err != nil {
		return nil, err
	}
	workers, err := intInput(inputs, "max_workers", 0)
	if err != nil {
		return nil, err
	}
	return fluctuation.NormalizeROI(ctx, stack, roi, workers)
}

// intInput reads an integer input, tolerating the float64 that
// encoding/json produces for every JSON number.
func intInput(inputs map[string]any, key string, def int) (int, error) {
	v, ok := inputs[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("workflow: input %q must be an integer, got %g", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("workflow: input %q must be a number, got %T", key, v)
	}
}

func requireIntInput(inputs map[string]any, key string) (int, error) {
	if _, ok := inputs[key]; !ok {
		return 0, fmt.Errorf("workflow: missing required input %q", key)
	}
	return intInput(inputs, key, 0)
}

func floatInput(inputs map[string]any, key string, def float64) (float64, error) {
	v, ok := inputs[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("workflow: input %q must be a number, got %T", key, v)
	}
}
