// Package split materializes bone-budget partitions as new meshes.
package split

import (
	"fmt"
	"slices"

	"aqua-mesh-prep/internal/mesh"
	"aqua-mesh-prep/internal/palette"
	"aqua-mesh-prep/internal/partition"
)

// Options controls how split meshes get their vertex data.
type Options struct {
	// ForceDuplicate gives every split mesh a private dense stream even when
	// the format could share one.
	ForceDuplicate bool
	// Workers bounds concurrent partitioning in Batch. Values below 1 mean 1.
	Workers int
}

// part is one materialized group before it is placed into the model.
type part struct {
	list    *mesh.TriangleList
	stream  *mesh.VertexStream // nil when the source stream is shared
	palette []uint16
}

// Split replaces mesh meshIndex with one mesh per non-empty group. The first
// group takes over the mesh's slot; the others are appended to the mesh
// table. Dense streams are built for legacy formats or when forced;
// otherwise only the triangle lists are duplicated and keep indexing the
// shared stream.
func Split(m *mesh.Model, meshIndex int, groups [][]int, opts Options) error {
	return split(m, meshIndex, groups, nil, opts)
}

// split is Split with extra seam vertices. seams are treated as edge
// vertices of the source stream while building dense parts and are merged
// into it only once every part has been built.
func split(m *mesh.Model, meshIndex int, groups [][]int, seams []uint32, opts Options) error {
	if meshIndex < 0 || meshIndex >= len(m.Meshes) {
		return fmt.Errorf("split: %w", mesh.NewError(mesh.ErrIndexOutOfRange, fmt.Sprintf("mesh %d of %d", meshIndex, len(m.Meshes))))
	}
	orig := m.Meshes[meshIndex]
	src := m.Streams[orig.Stream]
	faces := m.Lists[orig.List].Faces
	pal := m.PaletteFor(orig.Stream)
	dense := opts.ForceDuplicate || !m.Version.SharesStreams()

	edges := src.EdgeVertices
	if len(seams) > 0 {
		merged := &mesh.VertexStream{EdgeVertices: slices.Clone(src.EdgeVertices)}
		merged.AddEdgeVertices(seams...)
		edges = merged.EdgeVertices
	}

	var parts []part
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		for _, f := range g {
			if f < 0 || f >= len(faces) {
				e := mesh.NewError(mesh.ErrIndexOutOfRange, fmt.Sprintf("%d triangles", len(faces)))
				e.Mesh, e.Triangle = meshIndex, f
				return fmt.Errorf("split: %w", e)
			}
		}

		var p part
		var err error
		if dense {
			p, err = densePart(src, pal, faces, g, edges)
		} else {
			p, err = sharedPart(src, pal, faces, g)
		}
		if err != nil {
			return fmt.Errorf("split: mesh %d: %w", meshIndex, err)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil
	}
	src.AddEdgeVertices(seams...)

	for i, p := range parts {
		if i == 0 {
			me := &m.Meshes[meshIndex]
			me.List = placeList(m, orig.List, p.list)
			if p.stream != nil {
				me.Stream = placeStream(m, orig.Stream, p.stream)
			}
			me.BonePalette = p.palette
			continue
		}

		nm := orig
		nm.Name = fmt.Sprintf("%s_%d", orig.Name, i)
		nm.List = len(m.Lists)
		m.Lists = append(m.Lists, p.list)
		if p.stream != nil {
			nm.Stream = len(m.Streams)
			m.Streams = append(m.Streams, p.stream)
		}
		nm.BonePalette = p.palette
		m.Meshes = append(m.Meshes, nm)
	}

	m.Refresh()
	return nil
}

// placeList puts l into slot li unless another mesh still draws that list,
// in which case l is appended. Returns the slot used.
func placeList(m *mesh.Model, li int, l *mesh.TriangleList) int {
	if len(m.ListUsers(li)) > 1 {
		m.Lists = append(m.Lists, l)
		return len(m.Lists) - 1
	}
	m.Lists[li] = l
	return li
}

// placeStream is placeList for streams.
func placeStream(m *mesh.Model, si int, s *mesh.VertexStream) int {
	if len(m.StreamUsers(si)) > 1 {
		m.Streams = append(m.Streams, s)
		return len(m.Streams) - 1
	}
	m.Streams[si] = s
	return si
}

// densePart copies the vertices a group references into a new stream,
// numbered in first-seen order, and remaps the group's triangles and the
// edge vertices onto it.
func densePart(src *mesh.VertexStream, pal []uint16, faces []mesh.Triangle, group []int, edges []uint32) (part, error) {
	remap := make(map[uint32]uint32)
	dst := &mesh.VertexStream{}
	list := &mesh.TriangleList{Faces: make([]mesh.Triangle, 0, len(group))}

	for _, f := range group {
		var t mesh.Triangle
		for k, v := range faces[f] {
			nv, ok := remap[v]
			if !ok {
				nv = uint32(dst.Len())
				remap[v] = nv
				dst.AppendVertex(src, v)
			}
			t[k] = nv
		}
		list.Faces = append(list.Faces, t)
	}

	for _, v := range edges {
		if nv, ok := remap[v]; ok {
			dst.AddEdgeVertices(nv)
		}
	}

	if src.Skinned() {
		dst.BonePalette = slices.Clone(pal)
		if _, err := palette.Canonicalize(dst, nil); err != nil {
			return part{}, err
		}
	}
	return part{list: list, stream: dst, palette: slices.Clone(dst.BonePalette)}, nil
}

// sharedPart keeps the group's triangles as they are and only works out the
// group's local palette.
func sharedPart(src *mesh.VertexStream, pal []uint16, faces []mesh.Triangle, group []int) (part, error) {
	list := &mesh.TriangleList{Faces: make([]mesh.Triangle, 0, len(group))}
	seen := make(map[uint32]bool)
	var verts []uint32
	for _, f := range group {
		list.Faces = append(list.Faces, faces[f])
		for _, v := range faces[f] {
			if !seen[v] {
				seen[v] = true
				verts = append(verts, v)
			}
		}
	}
	local, err := palette.Union(src, pal, verts)
	if err != nil {
		return part{}, err
	}
	return part{list: list, palette: local}, nil
}

// ByBoneCount partitions mesh meshIndex so that no resulting mesh touches
// more than limit bones and splits it. Seam vertices are recorded on the
// source stream when the split succeeds. It returns the number of groups
// produced. Weight slots that do not resolve are reported before anything
// is modified.
func ByBoneCount(m *mesh.Model, meshIndex, limit int, opts Options) (int, error) {
	if meshIndex < 0 || meshIndex >= len(m.Meshes) {
		return 0, fmt.Errorf("split: %w", mesh.NewError(mesh.ErrIndexOutOfRange, fmt.Sprintf("mesh %d of %d", meshIndex, len(m.Meshes))))
	}
	me := m.Meshes[meshIndex]
	s := m.Streams[me.Stream]
	pal := m.PaletteFor(me.Stream)
	faces := m.Lists[me.List].Faces
	if _, err := palette.Union(s, pal, referenced(faces)); err != nil {
		return 0, fmt.Errorf("split: mesh %d: %w", meshIndex, err)
	}
	res := partition.Partition(faces, partition.VertexBones(s, pal), limit)
	if err := split(m, meshIndex, res.Groups, res.EdgeVertices, opts); err != nil {
		return 0, err
	}
	return len(res.Groups), nil
}
