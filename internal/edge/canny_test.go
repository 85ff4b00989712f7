package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

func makeImage(t *testing.T, h, w int, f func(y, x int) float64) radiograph.Image {
	t.Helper()
	s, err := radiograph.New(h, w)
	require.NoError(t, err)
	im := s.Frame(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.Set(y, x, f(y, x))
		}
	}
	return im
}

func firstEdgeInRow(m *Mask, y int) int {
	for x, b := range m.Row(y) {
		if b {
			return x
		}
	}
	return -1
}

func TestDetectRejectsNonPositiveSigma(t *testing.T) {
	t.Parallel()

	im := makeImage(t, 4, 4, func(int, int) float64 { return 1 })
	for _, sigma := range []float64{0, -2} {
		_, err := Detect(im, sigma)
		assert.Error(t, err, "sigma %g", sigma)
	}
}

func TestAllZeroImageHasNoEdges(t *testing.T) {
	t.Parallel()

	im := makeImage(t, 16, 16, func(int, int) float64 { return 0 })
	m, err := Detect(im, 1)
	require.NoError(t, err)
	assert.Zero(t, m.Count())
}

func TestUniformBrightImageEdgesOnSecondRingOnly(t *testing.T) {
	t.Parallel()

	// A uniform nonzero image against the zero padding rolls off at the
	// frame boundary, so edges appear on the second ring. The outermost
	// ring must stay clean.
	im := makeImage(t, 12, 12, func(int, int) float64 { return 5 })
	m, err := Detect(im, 1)
	require.NoError(t, err)

	assert.Greater(t, m.Count(), 0)
	for x := 0; x < m.W; x++ {
		assert.False(t, m.At(0, x), "top ring at x=%d", x)
		assert.False(t, m.At(m.H-1, x), "bottom ring at x=%d", x)
	}
	for y := 0; y < m.H; y++ {
		assert.False(t, m.At(y, 0), "left ring at y=%d", y)
		assert.False(t, m.At(y, m.W-1), "right ring at y=%d", y)
	}
	// Middle rows see the left rolloff ridge one pixel in.
	assert.True(t, m.At(6, 1))
}

func TestVerticalStepEdge(t *testing.T) {
	t.Parallel()

	// Dark left half, bright right half, step between columns 7 and 8.
	im := makeImage(t, 16, 16, func(_, x int) float64 {
		if x >= 8 {
			return 10
		}
		return 0
	})
	m, err := Detect(im, 1)
	require.NoError(t, err)

	for y := 4; y <= 11; y++ {
		first := firstEdgeInRow(m, y)
		require.NotEqual(t, -1, first, "row %d has no edges", y)
		assert.GreaterOrEqual(t, first, 6, "row %d", y)
		assert.LessOrEqual(t, first, 9, "row %d", y)
	}
}

func TestCenteredBlockEdges(t *testing.T) {
	t.Parallel()

	// Uniform border with a bright centered block; rows crossing the
	// block must show edges near both block boundaries.
	im := makeImage(t, 24, 24, func(y, x int) float64 {
		if y >= 8 && y <= 15 && x >= 8 && x <= 15 {
			return 10
		}
		return 2
	})
	m, err := Detect(im, 1)
	require.NoError(t, err)

	row := m.Row(11)
	left, right := false, false
	for x := 5; x <= 10; x++ {
		left = left || row[x]
	}
	for x := 13; x <= 18; x++ {
		right = right || row[x]
	}
	assert.True(t, left, "no edge near left block boundary")
	assert.True(t, right, "no edge near right block boundary")
}

func TestTooSmallImageYieldsEmptyMask(t *testing.T) {
	t.Parallel()

	im := makeImage(t, 2, 5, func(int, int) float64 { return 7 })
	m, err := Detect(im, 1)
	require.NoError(t, err)
	assert.Zero(t, m.Count())
	assert.Equal(t, 2, m.H)
	assert.Equal(t, 5, m.W)
}

func TestGaussianKernelNormalized(t *testing.T) {
	t.Parallel()

	for _, sigma := range []float64{0.5, 1, 3} {
		k := gaussianKernel(sigma)
		require.Equal(t, 1, len(k)%2, "kernel length must be odd")

		sum := 0.0
		for _, v := range k {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "sigma %g", sigma)

		for i := range k {
			assert.InDelta(t, k[i], k[len(k)-1-i], 1e-15, "kernel asymmetric at %d", i)
		}
	}
}
