package preview

import "math"

// point is a projected vertex: screen x, y and depth (larger is nearer).
type point [3]float64

// fillTriangle draws one flat-shaded, depth-tested triangle in a solid
// linear-space colour.
func fillTriangle(fb *frameBuffer, a, b, c point, base [3]float64, l *light) {
	e1 := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	e2 := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := [3]float64{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}
	nl := math.Sqrt(dot3(n, n))
	if nl < 1e-8 {
		return
	}
	n = [3]float64{n[0] / nl, n[1] / nl, n[2] / nl}
	s := l.shade(n) * l.exposure
	r, g, bl := tonemap(base[0]*s), tonemap(base[1]*s), tonemap(base[2]*s)

	minX := max(int(math.Min(math.Min(a[0], b[0]), c[0])), 0)
	maxX := min(int(math.Max(math.Max(a[0], b[0]), c[0]))+1, fb.size-1)
	minY := max(int(math.Min(math.Min(a[1], b[1]), c[1])), 0)
	maxY := min(int(math.Max(math.Max(a[1], b[1]), c[1]))+1, fb.size-1)
	if minX > maxX || minY > maxY {
		return
	}

	det := (b[1]-c[1])*(a[0]-c[0]) + (c[0]-b[0])*(a[1]-c[1])
	if math.Abs(det) < 1e-8 {
		return
	}
	inv := 1 / det

	for y := minY; y <= maxY; y++ {
		dy := float64(y) - c[1]
		row := y * fb.size
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - c[0]
			w0 := ((b[1]-c[1])*dx + (c[0]-b[0])*dy) * inv
			w1 := ((c[1]-a[1])*dx + (a[0]-c[0])*dy) * inv
			w2 := 1 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*a[2] + w1*b[2] + w2*c[2]
			i := row + x
			if z <= fb.depth[i] {
				continue
			}
			fb.depth[i] = z
			fb.color[i*4] = r
			fb.color[i*4+1] = g
			fb.color[i*4+2] = bl
			fb.color[i*4+3] = 255
		}
	}
}
