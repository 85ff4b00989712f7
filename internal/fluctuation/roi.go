package fluctuation

import (
	"context"

	"github.com/beamline-data/fluxnorm/internal/normbg"
	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// ROI is a rectangular window in pixel coordinates, top/left inclusive,
// bottom/right exclusive.
type ROI struct {
	Top, Left, Bottom, Right int
}

func (r ROI) validate(h, w int) error {
	if r.Top < 0 || r.Left < 0 || r.Bottom > h || r.Right > w {
		return configErrorf("roi %+v outside a %dx%d frame", r, h, w)
	}
	if r.Top >= r.Bottom || r.Left >= r.Right {
		return configErrorf("roi %+v is empty", r)
	}
	return nil
}

// NormalizeROI divides each frame of a stack by the mean of a fixed
// window on that frame. Unlike Correct, the input must be rank 3; a
// single image is rejected. The averaging itself is delegated to
// normbg; this entry point owns validation and worker resolution only.
func NormalizeROI(ctx context.Context, stack *radiograph.Stack, roi ROI, maxWorkers int) (*radiograph.Stack, error) {
	if stack == nil {
		return nil, configErrorf("nil stack")
	}
	if maxWorkers < 0 {
		return nil, configErrorf("max workers must be non-negative, got %d", maxWorkers)
	}
	if r := stack.Rank(); r != 3 {
		return nil, configErrorf("roi normalization needs a rank-3 stack, got rank %d", r)
	}
	if err := roi.validate(stack.Height(), stack.Width()); err != nil {
		return nil, err
	}
	return normbg.NormalizeWindow(ctx, stack, roi.Top, roi.Left, roi.Bottom, roi.Right, resolveWorkers(maxWorkers))
}
