// Package edge implements Canny edge detection over float64 images.
//
// The air-region detector needs a float-domain detector: radiographs
// arrive as real-valued intensity arrays near 1.0, and quantizing them
// to 8-bit for an off-the-shelf detector would destroy the gradient
// thresholds the detection depends on. The stages are the conventional
// ones: Gaussian smoothing at a caller-supplied bandwidth over a
// zero-padded frame, Sobel gradients, non-maximum suppression along the
// gradient direction, then double-threshold hysteresis.
package edge

import (
	"fmt"
	"math"

	"github.com/beamline-data/fluxnorm/internal/radiograph"
)

// Hysteresis thresholds on gradient magnitude. Fixed, matching the
// float-image defaults of the detector family the correction was
// calibrated against.
const (
	lowThreshold  = 0.1
	highThreshold = 0.2
)

// Mask is a boolean edge mask with the same shape as the source image.
type Mask struct {
	H, W int
	Bits []bool
}

// At reports whether the pixel at row y, column x is an edge.
func (m *Mask) At(y, x int) bool { return m.Bits[y*m.W+x] }

// Row returns the y-th mask row as a subslice.
func (m *Mask) Row(y int) []bool { return m.Bits[y*m.W : (y+1)*m.W] }

// Count returns the number of marked pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Detect returns the edge mask of im. sigma is the smoothing bandwidth
// and must be positive.
//
// The outermost one-pixel ring is never marked. Because smoothing reads
// outside the frame as zero, a bright uniform background produces a
// steep rolloff at the frame boundary and shows up as edges on the
// second ring; the air-region detector relies on that behavior for
// images with no interior structure.
func Detect(im radiograph.Image, sigma float64) (*Mask, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("edge: sigma must be positive, got %g", sigma)
	}

	h, w := im.H, im.W
	mask := &Mask{H: h, W: w, Bits: make([]bool, h*w)}
	if h < 3 || w < 3 {
		// No interior pixels, nothing can be marked.
		return mask, nil
	}

	smooth := gaussianSmooth(im.Pix, h, w, sigma)
	gx, gy := sobel(smooth, h, w)

	mag := make([]float64, h*w)
	for i := range mag {
		mag[i] = math.Hypot(gx[i], gy[i])
	}

	strong, weak := suppress(mag, gx, gy, h, w)
	hysteresis(mask, strong, weak, h, w)
	return mask, nil
}

// gaussianKernel returns a normalized 1D Gaussian with the usual
// 4-sigma truncation radius.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(4 * sigma))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-0.5 * d * d / (sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianSmooth applies the kernel separably. Samples outside the
// frame read as zero.
func gaussianSmooth(pix []float64, h, w int, sigma float64) []float64 {
	k := gaussianKernel(sigma)
	radius := len(k) / 2

	tmp := make([]float64, h*w)
	for y := 0; y < h; y++ {
		row := pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			acc := 0.0
			for i, kv := range k {
				sx := x + i - radius
				if sx < 0 || sx >= w {
					continue
				}
				acc += kv * row[sx]
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]float64, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i, kv := range k {
				sy := y + i - radius
				if sy < 0 || sy >= h {
					continue
				}
				acc += kv * tmp[sy*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

// sobel computes the 3x3 Sobel derivatives. Border pixels keep zero
// gradients; they sit outside the maskable interior anyway.
func sobel(pix []float64, h, w int) (gx, gy []float64) {
	gx = make([]float64, h*w)
	gy = make([]float64, h*w)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			tl := pix[(y-1)*w+x-1]
			tc := pix[(y-1)*w+x]
			tr := pix[(y-1)*w+x+1]
			ml := pix[y*w+x-1]
			mr := pix[y*w+x+1]
			bl := pix[(y+1)*w+x-1]
			bc := pix[(y+1)*w+x]
			br := pix[(y+1)*w+x+1]
			gx[y*w+x] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy[y*w+x] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gx, gy
}

// suppress performs non-maximum suppression and splits survivors into
// strong and weak sets by the double thresholds. Ties along the ridge
// are kept on both sides rather than suppressing symmetric maxima.
func suppress(mag, gx, gy []float64, h, w int) (strong, weak []bool) {
	strong = make([]bool, h*w)
	weak = make([]bool, h*w)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			idx := y*w + x
			m := mag[idx]
			if m < lowThreshold {
				continue
			}

			// Quantize the gradient direction to one of four sectors
			// and compare against the two neighbors along it. y grows
			// downward, so pi/4 pairs the down-right diagonal.
			ang := math.Atan2(gy[idx], gx[idx])
			if ang < 0 {
				ang += math.Pi
			}
			var a, b float64
			switch {
			case ang < math.Pi/8 || ang >= 7*math.Pi/8:
				a, b = mag[idx-1], mag[idx+1]
			case ang < 3*math.Pi/8:
				a, b = mag[idx-w-1], mag[idx+w+1]
			case ang < 5*math.Pi/8:
				a, b = mag[idx-w], mag[idx+w]
			default:
				a, b = mag[idx-w+1], mag[idx+w-1]
			}
			if m < a || m < b {
				continue
			}

			if m >= highThreshold {
				strong[idx] = true
			} else {
				weak[idx] = true
			}
		}
	}
	return strong, weak
}

// hysteresis marks all strong pixels plus every weak pixel reachable
// from a strong one through 8-connected weak neighbors.
func hysteresis(mask *Mask, strong, weak []bool, h, w int) {
	stack := make([]int, 0, h)
	for idx, s := range strong {
		if s {
			mask.Bits[idx] = true
			stack = append(stack, idx)
		}
	}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		y, x := idx/w, idx%w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dy == 0 && dx == 0 {
					continue
				}
				ny, nx := y+dy, x+dx
				if ny < 1 || ny >= h-1 || nx < 1 || nx >= w-1 {
					continue
				}
				nidx := ny*w + nx
				if weak[nidx] && !mask.Bits[nidx] {
					mask.Bits[nidx] = true
					stack = append(stack, nidx)
				}
			}
		}
	}
}
