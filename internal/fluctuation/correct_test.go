package fluctuation

import (
	"context"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline-data/fluxnorm/internal/monitoring"
	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

func TestMain(m *testing.M) {
	monitoring.Quiet()
	os.Exit(m.Run())
}

func TestRunStrategyRouting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		airPixels int
		want      Strategy
	}{
		{"negative is adaptive", -1, StrategyAdaptive},
		{"zero is fixed boundary", 0, StrategyFixedBoundary},
		{"positive is fixed boundary", 3, StrategyFixedBoundary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := uniformStack(t, 8, 8, 2)
			res, err := Run(context.Background(), in, Options{AirPixels: tt.airPixels, Sigma: 1})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Strategy)
		})
	}
}

func TestRunRejectsBadRank(t *testing.T) {
	t.Parallel()

	rank1, err := radiograph.FromSlice(make([]float64, 5), 5)
	require.NoError(t, err)
	rank4, err := radiograph.New(2, 2, 2, 2)
	require.NoError(t, err)

	for _, opts := range []Options{
		{AirPixels: -1, Sigma: 1},
		{AirPixels: 2},
	} {
		for _, s := range []*radiograph.Stack{rank1, rank4} {
			_, err := Run(context.Background(), s, opts)
			var cfg *ConfigError
			assert.ErrorAs(t, err, &cfg, "rank %d, air %d", s.Rank(), opts.AirPixels)
		}
	}
}

func TestRunRejectsNilStack(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), nil, DefaultOptions())
	var cfg *ConfigError
	assert.ErrorAs(t, err, &cfg)
}

func TestRunRejectsBadOptions(t *testing.T) {
	t.Parallel()

	in := uniformStack(t, 8, 8, 2)

	_, err := Run(context.Background(), in, Options{AirPixels: -1, Sigma: 1, MaxWorkers: -2})
	var cfg *ConfigError
	assert.ErrorAs(t, err, &cfg)

	_, err = Run(context.Background(), in, Options{AirPixels: -1, Sigma: 0})
	assert.ErrorAs(t, err, &cfg)
}

func TestCorrectSingleImageCenteredObject(t *testing.T) {
	t.Parallel()

	// A 5x10 image: background 2 everywhere, a brighter object in the
	// middle rows and columns. All air pixels carry the background
	// value, so the factor is exactly 2 and the corrected background
	// is exactly 1.
	s, err := radiograph.New(5, 10)
	require.NoError(t, err)
	im := s.Frame(0)
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			v := 2.0
			if y >= 1 && y <= 3 && x >= 4 && x <= 6 {
				v = 9.0
			}
			im.Set(y, x, v)
		}
	}

	out, err := Correct(context.Background(), s, Options{AirPixels: -1, Sigma: 1})
	require.NoError(t, err)
	require.Equal(t, []int{5, 10}, out.Shape())

	res := out.Frame(0)
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			if im.At(y, x) == 2.0 {
				assert.Equal(t, 1.0, res.At(y, x), "background at (%d,%d)", y, x)
			} else {
				assert.Equal(t, 4.5, res.At(y, x), "object at (%d,%d)", y, x)
			}
		}
	}
}

func TestCorrectFactorWithInexactReciprocal(t *testing.T) {
	t.Parallel()

	// Background 49: 1/49 is not representable, so scaling by the
	// rounded reciprocal would leave the background at 1 - 2^-53. The
	// correction divides, so a pixel at the air level is exactly 1.0
	// for any factor.
	s, err := radiograph.New(5, 10)
	require.NoError(t, err)
	im := s.Frame(0)
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			v := 49.0
			if y >= 1 && y <= 3 && x >= 4 && x <= 6 {
				v = 200.0
			}
			im.Set(y, x, v)
		}
	}

	out, err := Correct(context.Background(), s, Options{AirPixels: -1, Sigma: 1})
	require.NoError(t, err)

	res := out.Frame(0)
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			if im.At(y, x) == 49.0 {
				assert.Equal(t, 1.0, res.At(y, x), "background at (%d,%d)", y, x)
			} else {
				assert.Equal(t, 200.0/49.0, res.At(y, x), "object at (%d,%d)", y, x)
			}
		}
	}
}

func TestCorrectStackCenteredObject(t *testing.T) {
	t.Parallel()

	s, err := radiograph.New(3, 24, 24)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		im := s.Frame(i)
		scale := float64(i + 1)
		for y := 0; y < 24; y++ {
			for x := 0; x < 24; x++ {
				v := 2.0 * scale
				if y >= 8 && y <= 15 && x >= 8 && x <= 15 {
					v = 10.0 * scale
				}
				im.Set(y, x, v)
			}
		}
	}

	res, err := Run(context.Background(), s, Options{AirPixels: -1, Sigma: 1})
	require.NoError(t, err)

	// The per-frame factor tracks the simulated beam drift, and the
	// corrected frames are identical: background 1, object 5.
	require.Len(t, res.Factors, 3)
	assert.Equal(t, []float64{2, 4, 6}, res.Factors)
	for i := 0; i < 3; i++ {
		assert.Equal(t, res.Stack.Frame(0).Pix, res.Stack.Frame(i).Pix, "frame %d", i)
	}
	assert.Equal(t, 1.0, res.Stack.Frame(0).At(0, 0))
	assert.Equal(t, 5.0, res.Stack.Frame(0).At(12, 12))
}

func TestRunAllZeroStackDegenerates(t *testing.T) {
	t.Parallel()

	s, err := radiograph.New(8, 9)
	require.NoError(t, err)

	_, err = Run(context.Background(), s, Options{AirPixels: -1, Sigma: 1})

	var worker *WorkerError
	require.ErrorAs(t, err, &worker)
	assert.Equal(t, 0, worker.Frame)
	var degen *DegeneracyError
	assert.ErrorAs(t, err, &degen)
}

func TestRunPreservesShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		shape []int
		opts  Options
	}{
		{"adaptive rank 3", []int{3, 12, 11}, Options{AirPixels: -1, Sigma: 1}},
		{"adaptive rank 2", []int{12, 11}, Options{AirPixels: -1, Sigma: 1}},
		{"fixed rank 3", []int{3, 12, 11}, Options{AirPixels: 2}},
		{"fixed rank 2", []int{12, 11}, Options{AirPixels: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := radiograph.New(tt.shape...)
			require.NoError(t, err)
			for i := range s.Data() {
				s.Data()[i] = 4
			}
			res, err := Run(context.Background(), s, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, res.Stack.Shape())
		})
	}
}

func TestRunFixedBoundaryFlatField(t *testing.T) {
	t.Parallel()

	in := uniformStack(t, 3, 8, 6, 6)
	sink := &recordingSink{}

	res, err := Run(context.Background(), in, Options{AirPixels: 3, Progress: sink})
	require.NoError(t, err)
	assert.Equal(t, StrategyFixedBoundary, res.Strategy)
	assert.Nil(t, res.Factors)
	for _, v := range res.Stack.Data() {
		require.Equal(t, 1.0, v)
	}

	// The fixed path reports completion as a single update.
	assert.Equal(t, [][2]int{{2, 2}}, sink.updates)
}

func TestRunReportsResolvedWorkers(t *testing.T) {
	t.Parallel()

	in := uniformStack(t, 8, 8, 2)

	res, err := Run(context.Background(), in, Options{AirPixels: -1, Sigma: 1, MaxWorkers: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Workers)

	res, err = Run(context.Background(), in, Options{AirPixels: -1, Sigma: 1})
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), res.Workers)
	assert.GreaterOrEqual(t, res.Elapsed.Nanoseconds(), int64(0))
}

func TestCorrectDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	in := uniformStack(t, 8, 8, 2, 2)
	snapshot := in.Clone()

	out, err := Correct(context.Background(), in, Options{AirPixels: -1, Sigma: 1})
	require.NoError(t, err)

	out.Frame(0).Set(0, 0, 99)
	assert.True(t, in.Equal(snapshot), "correction mutated its input")
}
