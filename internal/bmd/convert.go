package bmd

import (
	"fmt"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"aqua-mesh-prep/internal/mesh"
	"aqua-mesh-prep/internal/skeleton"
)

// corner is one (vertex, normal, texcoord) index tuple of a face.
type corner struct {
	v, n, t int16
}

// ToModel converts a decoded file into a mesh.Model. Every distinct corner
// tuple of a mesh becomes one stream vertex, posed into model space by its
// bone's bind transform. Vertices are rigidly bound to their bone, and the
// model palette lists every skeleton bone so stream weight indices are bone
// numbers.
func ToModel(f *File) (*mesh.Model, error) {
	joints := make([]skeleton.Joint, len(f.Bones))
	for i, b := range f.Bones {
		joints[i] = skeleton.Joint{Parent: b.Parent, Dummy: b.IsDummy, Position: b.BindPosition, Rotation: b.BindRotation}
	}
	worlds := skeleton.WorldTransforms(joints)

	m := &mesh.Model{Version: mesh.VersionClassic}
	for i, b := range f.Bones {
		parent := b.Parent
		if parent >= i {
			parent = -1
		}
		m.Bones = append(m.Bones, mesh.Bone{Parent: parent, BindPosition: worlds[i].Translation()})
		m.BonePalette = append(m.BonePalette, uint16(i))
	}

	for mi, bm := range f.Meshes {
		s, list, err := convertMesh(&bm, worlds)
		if err != nil {
			return nil, fmt.Errorf("bmd: mesh %d: %w", mi, err)
		}
		name := fmt.Sprintf("%s_%02d", f.Name, mi)
		if f.Name == "" {
			name = fmt.Sprintf("mesh_%02d", mi)
		}
		m.Streams = append(m.Streams, s)
		m.Lists = append(m.Lists, list)
		m.Meshes = append(m.Meshes, mesh.Mesh{
			Name:     name,
			Material: bm.Texture,
			Stream:   len(m.Streams) - 1,
			List:     len(m.Lists) - 1,
		})
		if bm.Texture >= 0 && bm.TexPath != "" {
			for len(m.Materials) <= bm.Texture {
				m.Materials = append(m.Materials, "")
			}
			m.Materials[bm.Texture] = bm.TexPath
		}
	}

	m.Refresh()
	return m, nil
}

func convertMesh(bm *Mesh, worlds []skeleton.Affine) (*mesh.VertexStream, *mesh.TriangleList, error) {
	s := &mesh.VertexStream{}
	var uvs []vec2.T
	hasNormals, hasUVs, skinned := len(bm.Normals) > 0, len(bm.UVs) > 0, len(worlds) > 0
	welded := make(map[corner]uint32)

	vertex := func(c corner) (uint32, error) {
		if idx, ok := welded[c]; ok {
			return idx, nil
		}
		if int(c.v) < 0 || int(c.v) >= len(bm.Verts) {
			return 0, fmt.Errorf("vertex index %d of %d: %w", c.v, len(bm.Verts), mesh.ErrIndexOutOfRange)
		}
		pose := skeleton.Identity
		node := int(bm.Nodes[c.v])
		if skinned {
			if node < 0 || node >= len(worlds) {
				return 0, fmt.Errorf("vertex %d bound to bone %d of %d: %w", c.v, node, len(worlds), mesh.ErrIndexOutOfRange)
			}
			pose = worlds[node]
		}

		p := bm.Verts[c.v]
		s.Positions = append(s.Positions, pose.Apply(vec3.T{p[0], p[1], p[2]}))
		if hasNormals {
			if int(c.n) < 0 || int(c.n) >= len(bm.Normals) {
				return 0, fmt.Errorf("normal index %d of %d: %w", c.n, len(bm.Normals), mesh.ErrIndexOutOfRange)
			}
			n := bm.Normals[c.n]
			s.Normals = append(s.Normals, pose.Rotate(vec3.T{n[0], n[1], n[2]}))
		}
		if hasUVs {
			if int(c.t) < 0 || int(c.t) >= len(bm.UVs) {
				return 0, fmt.Errorf("texcoord index %d of %d: %w", c.t, len(bm.UVs), mesh.ErrIndexOutOfRange)
			}
			uvs = append(uvs, vec2.T{bm.UVs[c.t][0], bm.UVs[c.t][1]})
		}
		if skinned {
			s.Weights = append(s.Weights, [4]float32{1, 0, 0, 0})
			s.WeightIndices = append(s.WeightIndices, [4]uint16{uint16(node), 0, 0, 0})
		}

		idx := uint32(len(s.Positions) - 1)
		welded[c] = idx
		return idx, nil
	}

	list := &mesh.TriangleList{}
	for fi, face := range bm.Faces {
		n := 3
		if face.Polygon == 4 {
			n = 4
		}
		var idx [4]uint32
		for k := 0; k < n; k++ {
			v, err := vertex(corner{face.VI[k], face.NI[k], face.TI[k]})
			if err != nil {
				return nil, nil, fmt.Errorf("face %d: %w", fi, err)
			}
			idx[k] = v
		}
		list.Faces = append(list.Faces, mesh.Triangle{idx[0], idx[1], idx[2]})
		if n == 4 {
			list.Faces = append(list.Faces, mesh.Triangle{idx[0], idx[2], idx[3]})
		}
	}

	if hasUVs {
		s.UVs = [][]vec2.T{uvs}
	}
	return s, list, nil
}
