// Package partition groups triangles so that no group touches more bones
// than a palette budget allows.
package partition

import (
	"slices"

	"aqua-mesh-prep/internal/mesh"
)

// Result is the grouping produced by Partition.
type Result struct {
	// Groups holds triangle indices per partition, in emission order.
	Groups [][]int
	// EdgeVertices is the sorted set of vertices flagged as partition seams.
	EdgeVertices []uint32
}

// VertexBones returns the distinct bone ids each vertex of s touches. Every
// slot counts, including zero-weight ones. With an empty palette the raw
// indices are used as ids.
// Weight indices must resolve in pal; palette.Canonicalize checks that.
func VertexBones(s *mesh.VertexStream, pal []uint16) [][]uint16 {
	out := make([][]uint16, s.Len())
	if !s.Skinned() {
		return out
	}
	for v, slots := range s.WeightIndices {
		set := make([]uint16, 0, 4)
		for _, idx := range slots {
			id := idx
			if len(pal) > 0 {
				id = pal[idx]
			}
			if !slices.Contains(set, id) {
				set = append(set, id)
			}
		}
		out[v] = set
	}
	return out
}

// boneSet is a small set of bone ids.
type boneSet map[uint16]struct{}

func (b boneSet) has(id uint16) bool {
	_, ok := b[id]
	return ok
}

// Partition splits faces into groups whose bone sets stay within limit.
//
// Each pass starts at the first unassigned face and scans forward without
// wrapping, admitting every face whose new bones still fit. A face is always
// admitted into an empty group, so a single face that alone exceeds the limit
// gets a partition of its own and the loop always makes progress. The output
// depends on face order; that is intended and must stay reproducible.
//
// While scanning, a vertex that touches a bone outside the group's current
// set becomes an edge candidate, even when that bone is admitted later in
// the same pass. Candidates that end up in the group are committed as edge
// vertices.
func Partition(faces []mesh.Triangle, bones [][]uint16, limit int) Result {
	var res Result
	assigned := make([]bool, len(faces))
	remaining := len(faces)
	start := 0
	edges := make(map[uint32]struct{})

	for remaining > 0 {
		for assigned[start] {
			start++
		}

		active := make(boneSet)
		candidates := make(map[uint32]struct{})
		used := make(map[uint32]struct{})
		var group []int
		var faceBones []uint16

		for f := start; f < len(faces); f++ {
			if assigned[f] {
				continue
			}

			faceBones = faceBones[:0]
			for _, v := range faces[f] {
				candidate := false
				for _, id := range bones[v] {
					if !slices.Contains(faceBones, id) {
						faceBones = append(faceBones, id)
					}
					if !active.has(id) {
						candidate = true
					}
				}
				if candidate {
					candidates[v] = struct{}{}
				}
			}

			newBones := 0
			for _, id := range faceBones {
				if !active.has(id) {
					newBones++
				}
			}

			if newBones+len(active) <= limit || len(active) == 0 {
				for _, id := range faceBones {
					active[id] = struct{}{}
				}
				for _, v := range faces[f] {
					used[v] = struct{}{}
				}
				assigned[f] = true
				remaining--
				group = append(group, f)
			}
		}

		for v := range candidates {
			if _, ok := used[v]; ok {
				edges[v] = struct{}{}
			}
		}
		res.Groups = append(res.Groups, group)
	}

	for v := range edges {
		res.EdgeVertices = append(res.EdgeVertices, v)
	}
	slices.Sort(res.EdgeVertices)
	return res
}

// GroupBones returns the distinct bone ids a group of faces touches.
func GroupBones(faces []mesh.Triangle, bones [][]uint16, group []int) []uint16 {
	set := make(boneSet)
	for _, f := range group {
		for _, v := range faces[f] {
			for _, id := range bones[v] {
				set[id] = struct{}{}
			}
		}
	}
	out := make([]uint16, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
