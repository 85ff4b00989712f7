// Package radiograph provides the in-memory stack and frame-view types
// shared by the correction pipelines. A stack keeps all intensities in
// one contiguous row-major buffer; frames are zero-copy views into it,
// which is what lets a parallel pass hand every worker a slice of the
// same allocation instead of a per-worker copy.
package radiograph

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Stack is a real-valued array of rank 2 (H, W) or rank 3 (N, H, W)
// over a single flat buffer. Constructors only check that the buffer
// length matches the shape product; the correction entry points enforce
// the ranks they accept, so a caller can build a rank-1 or rank-4 stack
// and have it rejected there with a proper configuration error.
type Stack struct {
	shape []int
	data  []float64
}

// New allocates a zero-filled stack with the given shape. Every
// dimension must be positive.
func New(shape ...int) (*Stack, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	return &Stack{shape: slices.Clone(shape), data: make([]float64, n)}, nil
}

// FromSlice wraps an existing buffer without copying. The stack takes
// ownership of data; the buffer length must equal the shape product.
func FromSlice(data []float64, shape ...int) (*Stack, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("radiograph: buffer length %d does not match shape %v (want %d)", len(data), shape, n)
	}
	return &Stack{shape: slices.Clone(shape), data: data}, nil
}

// NewLike allocates a zero-filled stack with the same shape as s.
func NewLike(s *Stack) *Stack {
	return &Stack{shape: slices.Clone(s.shape), data: make([]float64, len(s.data))}
}

func checkShape(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("radiograph: empty shape")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("radiograph: shape %v has non-positive dimension %d", shape, d)
		}
		n *= d
	}
	return n, nil
}

// Rank returns the number of dimensions.
func (s *Stack) Rank() int { return len(s.shape) }

// Shape returns a copy of the shape so callers cannot corrupt the
// stack's bookkeeping.
func (s *Stack) Shape() []int { return slices.Clone(s.shape) }

// Frames returns the frame count: shape[0] for rank 3, 1 for rank 2,
// 0 for any other rank.
func (s *Stack) Frames() int {
	switch len(s.shape) {
	case 2:
		return 1
	case 3:
		return s.shape[0]
	default:
		return 0
	}
}

// Height returns the second-to-last dimension, 0 if rank < 2.
func (s *Stack) Height() int {
	if len(s.shape) < 2 {
		return 0
	}
	return s.shape[len(s.shape)-2]
}

// Width returns the last dimension, 0 if rank < 1.
func (s *Stack) Width() int {
	if len(s.shape) < 1 {
		return 0
	}
	return s.shape[len(s.shape)-1]
}

// Data returns the backing buffer. The slice aliases the stack.
func (s *Stack) Data() []float64 { return s.data }

// Frame returns a zero-copy view of frame i. Writes to the view go
// through to the stack's buffer. Only meaningful for rank 2 (i must be
// 0) and rank 3; out-of-range indices panic like any slice access.
func (s *Stack) Frame(i int) Image {
	h, w := s.Height(), s.Width()
	base := i * h * w
	return Image{H: h, W: w, Pix: s.data[base : base+h*w]}
}

// Reshape returns a view of s with a new shape over the same buffer.
// The element count must be unchanged. This is how a rank-2 image is
// promoted to a one-frame rank-3 stack and restored afterwards.
func (s *Stack) Reshape(shape ...int) (*Stack, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if n != len(s.data) {
		return nil, fmt.Errorf("radiograph: cannot reshape %v to %v", s.shape, shape)
	}
	return &Stack{shape: slices.Clone(shape), data: s.data}, nil
}

// Clone returns a deep copy sharing nothing with s.
func (s *Stack) Clone() *Stack {
	return &Stack{shape: slices.Clone(s.shape), data: slices.Clone(s.data)}
}

// Equal reports whether o has the same shape and exactly equal pixels.
func (s *Stack) Equal(o *Stack) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !slices.Equal(s.shape, o.shape) {
		return false
	}
	return floats.Equal(s.data, o.data)
}

// EqualShape reports whether o has the same shape as s.
func (s *Stack) EqualShape(o *Stack) bool {
	return o != nil && slices.Equal(s.shape, o.shape)
}

// Image is a 2D view over a frame. Pix aliases the parent buffer in
// row-major order, len H*W.
type Image struct {
	H, W int
	Pix  []float64
}

// Row returns the y-th row as a subslice of the frame buffer.
func (im Image) Row(y int) []float64 {
	return im.Pix[y*im.W : (y+1)*im.W]
}

// At returns the pixel at row y, column x.
func (im Image) At(y, x int) float64 { return im.Pix[y*im.W+x] }

// Set writes the pixel at row y, column x.
func (im Image) Set(y, x int, v float64) { im.Pix[y*im.W+x] = v }
