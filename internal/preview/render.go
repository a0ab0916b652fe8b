// Package preview renders a prepared model with every mesh in its own
// colour, so bone-budget splits can be checked at a glance.
package preview

import (
	"image"
	"math"

	"aqua-mesh-prep/internal/mesh"
)

// Options controls the preview image.
type Options struct {
	Size        int // output edge in pixels
	Supersample int // render at Size*Supersample and downsample
	// EdgeVertices draws seam vertices as white dots.
	EdgeVertices bool
}

// view turns the container's Z-up space into a slightly tilted Y-up camera:
// Rx(-15°) · Ry(12°) · Rx(-90°).
var view = mul3(mul3(rotX(-15*math.Pi/180), rotY(12*math.Pi/180)), rotX(-math.Pi/2))

func rotX(a float64) [9]float64 {
	c, s := math.Cos(a), math.Sin(a)
	return [9]float64{1, 0, 0, 0, c, -s, 0, s, c}
}

func rotY(a float64) [9]float64 {
	c, s := math.Cos(a), math.Sin(a)
	return [9]float64{c, 0, s, 0, 1, 0, -s, 0, c}
}

func mul3(a, b [9]float64) [9]float64 {
	var m [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r*3+c] = a[r*3]*b[c] + a[r*3+1]*b[3+c] + a[r*3+2]*b[6+c]
		}
	}
	return m
}

func apply3(m [9]float64, x, y, z float64) [3]float64 {
	return [3]float64{
		m[0]*x + m[1]*y + m[2]*z,
		m[3]*x + m[4]*y + m[5]*z,
		m[6]*x + m[7]*y + m[8]*z,
	}
}

// MeshColor returns the linear RGB colour used for mesh i. Hues are spread
// by the golden angle so neighbouring indices stay distinguishable.
func MeshColor(i int) [3]float64 {
	h := math.Mod(float64(i)*0.618033988749895, 1) * 6
	x := 1 - math.Abs(math.Mod(h, 2)-1)
	var r, g, b float64
	switch int(h) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	// Channels stay within [0.25, 0.85].
	return [3]float64{0.25 + 0.6*r, 0.25 + 0.6*g, 0.25 + 0.6*b}
}

// Render draws every mesh of m and returns an image of opts.Size pixels.
// An empty model yields a transparent image.
func Render(m *mesh.Model, opts Options) *image.NRGBA {
	size := max(opts.Size, 1)
	ss := max(opts.Supersample, 1)
	rs := size * ss

	// Project each stream once; meshes sharing a stream share its points.
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	rotated := make([][][3]float64, len(m.Streams))
	for _, me := range m.Meshes {
		if rotated[me.Stream] != nil {
			continue
		}
		s := m.Streams[me.Stream]
		pts := make([][3]float64, s.Len())
		for v, p := range s.Positions {
			pts[v] = apply3(view, float64(p[0]), float64(p[1]), float64(p[2]))
			for k := 0; k < 3; k++ {
				lo[k] = math.Min(lo[k], pts[v][k])
				hi[k] = math.Max(hi[k], pts[v][k])
			}
		}
		rotated[me.Stream] = pts
	}
	if math.IsInf(lo[0], 1) {
		return image.NewNRGBA(image.Rect(0, 0, size, size))
	}

	span := math.Max(math.Max(hi[0]-lo[0], hi[1]-lo[1]), 0.001)
	margin := 8 * ss
	scale := float64(rs-2*margin) / span
	cx, cy := (lo[0]+hi[0])/2, (lo[1]+hi[1])/2
	project := func(p [3]float64) point {
		return point{
			(p[0]-cx)*scale + float64(rs)/2,
			float64(rs)/2 - (p[1]-cy)*scale,
			p[2],
		}
	}

	fb := newFrameBuffer(rs)
	l := defaultLight()
	for mi, me := range m.Meshes {
		pts := rotated[me.Stream]
		base := MeshColor(mi)
		for _, t := range m.Lists[me.List].Faces {
			fillTriangle(fb, project(pts[t[0]]), project(pts[t[1]]), project(pts[t[2]]), base, &l)
		}
	}

	if opts.EdgeVertices {
		for si, s := range m.Streams {
			for _, v := range s.EdgeVertices {
				if rotated[si] != nil {
					dot(fb, project(rotated[si][v]), ss)
				}
			}
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, rs, rs))
	copy(img.Pix, fb.color)
	if ss > 1 {
		img = Downsample(img, size)
	}
	return img
}

// dot marks a square of radius r around p, ignoring depth.
func dot(fb *frameBuffer, p point, r int) {
	px, py := int(p[0]), int(p[1])
	for y := py - r; y <= py+r; y++ {
		for x := px - r; x <= px+r; x++ {
			if x < 0 || y < 0 || x >= fb.size || y >= fb.size {
				continue
			}
			i := (y*fb.size + x) * 4
			fb.color[i], fb.color[i+1], fb.color[i+2], fb.color[i+3] = 255, 255, 255, 255
		}
	}
}
