package fluctuation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

func TestCorrectionFactorIsMean(t *testing.T) {
	t.Parallel()

	factor, err := correctionFactor([]float64{2, 4, 6})
	require.NoError(t, err)
	assert.Equal(t, 4.0, factor)
}

func TestCorrectionFactorEmptyCollection(t *testing.T) {
	t.Parallel()

	_, err := correctionFactor(nil)
	var degen *DegeneracyError
	require.ErrorAs(t, err, &degen)
	assert.Contains(t, degen.Reason, "empty")
}

func TestCorrectionFactorZeroMean(t *testing.T) {
	t.Parallel()

	_, err := correctionFactor([]float64{1, -1})
	var degen *DegeneracyError
	require.ErrorAs(t, err, &degen)
	assert.Contains(t, degen.Reason, "zero")
}

func TestCorrectFrameUniformImageBecomesUnity(t *testing.T) {
	t.Parallel()

	// Every air pixel of a uniform image carries the same value, so
	// the factor is exact and the corrected frame is exactly 1. The
	// level 49 guards true division: scaling by its rounded reciprocal
	// yields 1 - 2^-53 instead of 1.0.
	for _, level := range []float64{5, 49, 200} {
		t.Run(fmt.Sprintf("level %v", level), func(t *testing.T) {
			t.Parallel()

			src, err := radiograph.New(12, 12)
			require.NoError(t, err)
			for i := range src.Data() {
				src.Data()[i] = level
			}
			dst := radiograph.NewLike(src)

			factor, err := correctFrame(dst.Frame(0), src.Frame(0), 1)
			require.NoError(t, err)
			assert.Equal(t, level, factor)
			for _, v := range dst.Frame(0).Pix {
				assert.Equal(t, 1.0, v)
			}
		})
	}
}

func TestCorrectFrameAllZeroImageDegenerates(t *testing.T) {
	t.Parallel()

	src, err := radiograph.New(8, 8)
	require.NoError(t, err)
	dst := radiograph.NewLike(src)

	_, err = correctFrame(dst.Frame(0), src.Frame(0), 1)
	var degen *DegeneracyError
	assert.ErrorAs(t, err, &degen)
}
