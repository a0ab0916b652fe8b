// Package tangent synthesizes per-vertex tangent, binormal and normal
// vectors from triangle and UV topology.
package tangent

import (
	"fmt"
	"math"
	"sort"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"aqua-mesh-prep/internal/mesh"
)

// Options controls tangent synthesis.
type Options struct {
	// UseFaceNormals replaces stored normals with the accumulated face
	// normals. When false normals are only written where none exist.
	UseFaceNormals bool
	// FlipUV negates UV y before the math, for callers that flipped V when
	// converting coordinate systems.
	FlipUV bool
}

// accum holds the per-vertex sums for one stream.
type accum struct {
	tan, bin, nrm []vec3.T
	used          []bool
	degenerate    int
}

func newAccum(n int) *accum {
	return &accum{
		tan:  make([]vec3.T, n),
		bin:  make([]vec3.T, n),
		nrm:  make([]vec3.T, n),
		used: make([]bool, n),
	}
}

// Compute rebuilds tangents and binormals, and normals where required, for
// every stream drawn by at least one mesh. Face contributions are summed
// without area or angle weighting and normalized once per vertex.
//
// Index errors are reported before anything is modified.
func Compute(m *mesh.Model, opts Options, rep *mesh.Report) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("tangent: %w", err)
	}

	var uvSign float32 = 1
	if opts.FlipUV {
		uvSign = -1
	}

	sums := make(map[int]*accum)
	seen := make(map[[2]int]bool)
	for mi, me := range m.Meshes {
		// Two meshes drawing the same list over the same stream contribute once.
		key := [2]int{me.Stream, me.List}
		if seen[key] {
			continue
		}
		seen[key] = true

		s := m.Streams[me.Stream]
		a := sums[me.Stream]
		if a == nil {
			a = newAccum(s.Len())
			sums[me.Stream] = a
			if len(s.UV0()) == 0 {
				rep.Warnf(mi, me.Stream, "no UV0 data, tangents computed from zero UVs")
			}
		}
		for _, f := range m.Lists[me.List].Faces {
			a.addFace(s, f, uvSign)
		}
	}

	streams := make([]int, 0, len(sums))
	for si := range sums {
		streams = append(streams, si)
	}
	sort.Ints(streams)

	for _, si := range streams {
		a := sums[si]
		a.store(m.Streams[si], opts.UseFaceNormals)
		if a.degenerate > 0 {
			rep.Warnf(-1, si, "%d degenerate triangles contributed zero vectors", a.degenerate)
		}
		unused := 0
		for _, u := range a.used {
			if !u {
				unused++
			}
		}
		if unused > 0 {
			rep.Notef(-1, si, "%d vertices not referenced by any triangle keep zero tangents", unused)
		}
	}

	m.Refresh()
	return nil
}

func (a *accum) addFace(s *mesh.VertexStream, f mesh.Triangle, uvSign float32) {
	p0, p1, p2 := s.Positions[f[0]], s.Positions[f[1]], s.Positions[f[2]]

	var uv0, uv1, uv2 vec2.T
	if uvs := s.UV0(); len(uvs) > 0 {
		uv0 = vec2.T{uvs[f[0]][0], uvSign * uvs[f[0]][1]}
		uv1 = vec2.T{uvs[f[1]][0], uvSign * uvs[f[1]][1]}
		uv2 = vec2.T{uvs[f[2]][0], uvSign * uvs[f[2]][1]}
	}

	t, b, n, ok := faceBasis(p0, p1, p2, uv0, uv1, uv2)
	if !ok {
		a.degenerate++
	}
	for _, v := range f {
		a.tan[v].Add(&t)
		a.bin[v].Add(&b)
		a.nrm[v].Add(&n)
		a.used[v] = true
	}
}

// faceBasis returns the face tangent, binormal and normal. ok is false when
// any of them collapsed to the zero vector.
func faceBasis(p0, p1, p2 vec3.T, uv0, uv1, uv2 vec2.T) (t, b, n vec3.T, ok bool) {
	dP1 := vec3.Sub(&p0, &p1)
	dP2 := vec3.Sub(&p0, &p2)
	dUV1 := vec2.Sub(&uv0, &uv1)
	dUV2 := vec2.Sub(&uv0, &uv2)

	area := dUV1[0]*dUV2[1] - dUV1[1]*dUV2[0]
	var sign float32 = 1
	if area < 0 {
		sign = -1
	}

	raw := vec3.T{
		dP1[0]*dUV2[1] - dUV1[1]*dP2[0],
		dP1[1]*dUV2[1] - dUV1[1]*dP2[1],
		dP1[2]*dUV2[1] - dUV1[1]*dP2[2],
	}
	t, okT := normalized(raw)
	t = t.Scaled(sign)

	e1 := vec3.Sub(&p1, &p0)
	e2 := vec3.Sub(&p2, &p0)
	cn := vec3.Cross(&e1, &e2)
	n, okN := normalized(cn)

	cb := vec3.Cross(&n, &t)
	b, okB := normalized(cb)
	b = b.Scaled(sign)

	return t, b, n, okT && okN && okB
}

func (a *accum) store(s *mesh.VertexStream, useFaceNormals bool) {
	n := s.Len()
	s.Tangents = make([]vec3.T, n)
	s.Binormals = make([]vec3.T, n)
	writeNormals := useFaceNormals || len(s.Normals) != n
	if writeNormals {
		s.Normals = make([]vec3.T, n)
	}

	for v := 0; v < n; v++ {
		s.Tangents[v], _ = normalized(a.tan[v])
		s.Binormals[v], _ = normalized(a.bin[v])
		if writeNormals {
			s.Normals[v], _ = normalized(a.nrm[v])
		}
	}
}

// normalized returns v scaled to unit length, or the zero vector and false
// when v has no usable length.
func normalized(v vec3.T) (vec3.T, bool) {
	l := float64(v.LengthSqr())
	if !(l > 0) || math.IsInf(l, 0) {
		return vec3.T{}, false
	}
	return v.Scaled(float32(1 / math.Sqrt(l))), true
}
