package preview

import "math"

// frameBuffer is the render target as flat slices.
type frameBuffer struct {
	size  int
	color []uint8   // RGBA, len = size*size*4
	depth []float64 // len = size*size, starts at -inf
}

func newFrameBuffer(size int) *frameBuffer {
	depth := make([]float64, size*size)
	for i := range depth {
		depth[i] = math.Inf(-1)
	}
	return &frameBuffer{size: size, color: make([]uint8, size*size*4), depth: depth}
}

// coverage returns the number of pixels with non-zero alpha.
func (fb *frameBuffer) coverage() int {
	n := 0
	for i := 3; i < len(fb.color); i += 4 {
		if fb.color[i] != 0 {
			n++
		}
	}
	return n
}
