// Package normbg implements the background-normalization routines the
// correction dispatcher delegates to: the fixed-boundary air-margin
// model and window-average normalization. The dispatcher owns rank and
// window validation; this package owns the numerics and keeps the
// delegate contract — shape-preserving, floating-point division.
package normbg

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/beamline-data/fluxnorm/internal/monitoring"
	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// Normalize divides each row of each frame by a linear interpolation
// between the means of its leftmost and rightmost margin columns.
// margin is clamped to [1, W]. A non-positive margin mean is clamped to
// 1 before interpolating, so fully dark margins leave the row roughly
// unscaled instead of flipping signs or dividing by zero.
func Normalize(ctx context.Context, stack *radiograph.Stack, margin, workers int) (*radiograph.Stack, error) {
	w := stack.Width()
	if margin < 1 {
		margin = 1
	}
	if margin > w {
		margin = w
	}

	out := radiograph.NewLike(stack)
	err := eachFrame(ctx, stack.Frames(), workers, func(i int) error {
		normalizeFrame(out.Frame(i), stack.Frame(i), margin)
		return nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.Logf("[normbg] normalized %d frames with margin %d", stack.Frames(), margin)
	return out, nil
}

func normalizeFrame(dst, src radiograph.Image, margin int) {
	w := src.W
	for y := 0; y < src.H; y++ {
		row := src.Row(y)
		left := stat.Mean(row[:margin], nil)
		right := stat.Mean(row[w-margin:], nil)
		if left <= 0 {
			left = 1
		}
		if right <= 0 {
			right = 1
		}
		slope := 0.0
		if w > 1 {
			slope = (right - left) / float64(w-1)
		}
		drow := dst.Row(y)
		for x, v := range row {
			drow[x] = v / (left + slope*float64(x))
		}
	}
}

// NormalizeWindow divides each frame by the mean of the given window
// (top/left inclusive, bottom/right exclusive) on that same frame. A
// zero window mean is an error rather than an Inf-filled frame.
func NormalizeWindow(ctx context.Context, stack *radiograph.Stack, top, left, bottom, right, workers int) (*radiograph.Stack, error) {
	out := radiograph.NewLike(stack)
	err := eachFrame(ctx, stack.Frames(), workers, func(i int) error {
		return windowFrame(out.Frame(i), stack.Frame(i), top, left, bottom, right, i)
	})
	if err != nil {
		return nil, err
	}
	monitoring.Logf("[normbg] window-normalized %d frames", stack.Frames())
	return out, nil
}

func windowFrame(dst, src radiograph.Image, top, left, bottom, right, frame int) error {
	sum, n := 0.0, 0
	for y := top; y < bottom; y++ {
		for _, v := range src.Row(y)[left:right] {
			sum += v
			n++
		}
	}
	mean := sum / float64(n)
	if mean == 0 {
		return fmt.Errorf("frame %d: window mean is zero", frame)
	}
	// True division, matching normalizeFrame: a pixel at the window
	// mean comes out exactly 1.0.
	for i, v := range src.Pix {
		dst.Pix[i] = v / mean
	}
	return nil
}

// eachFrame runs fn for every frame index on a pool bounded to workers
// goroutines and returns the first failure. Every worker has exited by
// the time it returns, on success and on every failure path.
func eachFrame(ctx context.Context, frames, workers int, fn func(i int) error) error {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, workers)
	errCh := make(chan error)
	var wg sync.WaitGroup
	for i := 0; i < frames; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}
			errCh <- fn(i)
		}(i)
	}
	go func() {
		wg.Wait()
		close(errCh)
	}()

	var first error
	for err := range errCh {
		if err != nil && first == nil && !errors.Is(err, context.Canceled) {
			first = err
			cancel()
		}
	}
	if first == nil {
		first = ctx.Err()
	}
	return first
}
