package fluctuation

import (
	"gonum.org/v1/gonum/stat"

	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// correctionFactor reduces an air-pixel collection to the scalar the
// frame is divided by.
func correctionFactor(air []float64) (float64, error) {
	if len(air) == 0 {
		return 0, &DegeneracyError{Reason: "empty air-pixel collection"}
	}
	factor := stat.Mean(air, nil)
	if factor == 0 {
		return 0, &DegeneracyError{Reason: "air-pixel mean is zero"}
	}
	return factor, nil
}

// correctFrame detects the air region of src, computes its factor and
// writes src/factor into dst. Returns the factor for run diagnostics.
func correctFrame(dst, src radiograph.Image, sigma float64) (float64, error) {
	air, err := airPixels(src, sigma)
	if err != nil {
		return 0, err
	}
	factor, err := correctionFactor(air)
	if err != nil {
		return 0, err
	}
	// True division, one rounding per element: a pixel equal to the
	// factor comes out exactly 1.0.
	for i, v := range src.Pix {
		dst.Pix[i] = v / factor
	}
	return factor, nil
}
