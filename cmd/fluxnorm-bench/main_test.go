package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorkerCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{"single", "4", []int{4}},
		{"all cores", "0", []int{0}},
		{"list", "1,2,4", []int{1, 2, 4}},
		{"spaces", " 1 , 8 ", []int{1, 8}},
		{"empty means all cores", "", []int{0}},
		{"blank means all cores", "   ", []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseWorkerCounts(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWorkerCountsRejectsBadEntries(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"two", "1,x", "1,,2", "4.5"} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := parseWorkerCounts(input)
			assert.Error(t, err)
		})
	}
}

func TestSyntheticStackShapeAndDrift(t *testing.T) {
	t.Parallel()

	s, err := syntheticStack(6, 16, 20, 0.2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 16, 20}, s.Shape())

	// The beam drifts sinusoidally across frames, so the corner air
	// pixels of different frames must not all sit at the same level.
	first := s.Frame(0).At(0, 0)
	varied := false
	for i := 1; i < 6; i++ {
		if s.Frame(i).At(0, 0) != first {
			varied = true
		}
	}
	assert.True(t, varied)
}
