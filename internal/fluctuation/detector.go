package fluctuation

import (
	"github.com/beamline-data/fluxnorm/internal/edge"
	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// airPixels returns the values of every pixel the detector believes is
// background in im. The collection may legitimately be empty (an object
// spanning every row end to end); emptiness only becomes an error when
// the factor is computed.
func airPixels(im radiograph.Image, sigma float64) ([]float64, error) {
	mask, err := edge.Detect(im, sigma)
	if err != nil {
		return nil, err
	}
	startCols, stopCols := airBounds(mask)
	shrinkBounds(startCols, stopCols, im.W)
	return collectAir(im, startCols, stopCols), nil
}

// airBounds derives per-row column bounds from an edge mask: the first
// and last edge column of each row, or the middle column for rows with
// no edges at all, which leaves the whole row candidate background.
func airBounds(mask *edge.Mask) (startCols, stopCols []int) {
	h, w := mask.H, mask.W
	mid := (w - 1) / 2
	startCols = make([]int, h)
	stopCols = make([]int, h)
	for y := 0; y < h; y++ {
		first, last := -1, -1
		for x, b := range mask.Row(y) {
			if b {
				if first == -1 {
					first = x
				}
				last = x
			}
		}
		if first == -1 {
			startCols[y], stopCols[y] = mid, mid
			continue
		}
		startCols[y], stopCols[y] = first, last
	}
	return startCols, stopCols
}

// shrinkBounds halves each bound's distance to its frame edge: start/2
// on the left, (stop+w)/2 on the right. The detected edge marks the
// object boundary; the air transition sits between it and the frame.
func shrinkBounds(startCols, stopCols []int, w int) {
	for i := range startCols {
		startCols[i] /= 2
		stopCols[i] = (stopCols[i] + w) / 2
	}
}

// collectAir gathers, per row, every pixel left of startCols[y] and at
// or right of stopCols[y].
func collectAir(im radiograph.Image, startCols, stopCols []int) []float64 {
	n := 0
	for y := range startCols {
		n += startCols[y] + im.W - stopCols[y]
	}
	air := make([]float64, 0, n)
	for y := 0; y < im.H; y++ {
		row := im.Row(y)
		air = append(air, row[:startCols[y]]...)
		air = append(air, row[stopCols[y]:]...)
	}
	return air
}
