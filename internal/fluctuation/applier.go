package fluctuation

import (
	"context"
	"errors"
	"sync"

	"github.com/beamline-data/fluxnorm/internal/progress"
	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// applyAdaptive corrects every frame of a rank-3 stack with the
// adaptive detector. The input is snapshotted once into a scratch stack
// that all workers read, and each worker writes into disjoint frame
// views of a fresh output stack, so beyond work distribution and result
// collection there is no coordination at all. Both buffers are scoped
// to this call; every exit path waits for all workers to finish before
// returning, so nothing outlives the call.
func applyAdaptive(ctx context.Context, stack *radiograph.Stack, sigma float64, workers int, sink progress.Sink) (*radiograph.Stack, []float64, error) {
	frames := stack.Frames()
	scratch := stack.Clone()
	out := radiograph.NewLike(stack)
	factors := make([]float64, frames)

	chunk := chunkSize(frames, workers)

	type result struct {
		count int // frames completed by this chunk
		frame int // failing frame when err != nil
		err   error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, workers)
	results := make(chan result)
	var wg sync.WaitGroup

	for start := 0; start < frames; start += chunk {
		count := chunk
		if start+count > frames {
			count = frames - start
		}
		wg.Add(1)
		go func(start, count int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			for i := start; i < start+count; i++ {
				if err := ctx.Err(); err != nil {
					results <- result{frame: i, err: err}
					return
				}
				factor, err := correctFrame(out.Frame(i), scratch.Frame(i), sigma)
				if err != nil {
					results <- result{frame: i, err: err}
					return
				}
				factors[i] = factor
			}
			results <- result{count: count, frame: -1}
		}(start, count)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Drain every chunk result even after a failure so all workers are
	// gone before we return. The first real failure wins; cancellation
	// noise from the teardown is not promoted over it.
	done := 0
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil && !errors.Is(res.err, context.Canceled) {
				firstErr = &WorkerError{Frame: res.frame, Err: res.err}
			}
			cancel()
			continue
		}
		if firstErr == nil {
			done += res.count
			sink.Update(done, frames)
		}
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return out, factors, nil
}
