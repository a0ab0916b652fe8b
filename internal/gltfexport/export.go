// Package gltfexport writes prepared models as glTF 2.0 binaries.
package gltfexport

import (
	"bytes"
	"fmt"
	"image/png"
	"path/filepath"
	"slices"
	"strings"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"aqua-mesh-prep/internal/mesh"
	"aqua-mesh-prep/internal/texture"
)

type exporter struct {
	doc       *gltf.Document
	m         *mesh.Model
	streams   map[int]gltf.PrimitiveAttributes // attribute accessors per stream
	materials map[int]int
	skin      *int
	textures  texture.Resolver
}

// Build converts m into a glTF document. Meshes that share a vertex stream
// share its attribute accessors. When the model has a skeleton, every bone
// becomes a joint node and skinned streams get JOINTS_0/WEIGHTS_0 holding
// bone numbers resolved through the stream's palette. When textures is
// non-nil, material textures it resolves are embedded as PNG images.
func Build(m *mesh.Model, textures texture.Resolver) (*gltf.Document, error) {
	e := &exporter{
		doc:       gltf.NewDocument(),
		m:         m,
		streams:   make(map[int]gltf.PrimitiveAttributes),
		materials: make(map[int]int),
		textures:  textures,
	}
	e.doc.Asset.Generator = "aqua-mesh-prep"

	if len(m.Bones) > 0 {
		e.addSkeleton()
	}

	for mi, me := range m.Meshes {
		attrs, err := e.attributes(me.Stream)
		if err != nil {
			return nil, fmt.Errorf("gltf: mesh %d: %w", mi, err)
		}

		faces := m.Lists[me.List].Faces
		indices := make([]uint32, 0, len(faces)*3)
		for _, t := range faces {
			indices = append(indices, t[0], t[1], t[2])
		}

		mat, err := e.material(me.Material)
		if err != nil {
			return nil, fmt.Errorf("gltf: mesh %d: %w", mi, err)
		}
		prim := &gltf.Primitive{
			Attributes: attrs,
			Indices:    gltf.Index(modeler.WriteIndices(e.doc, indices)),
			Material:   gltf.Index(mat),
		}
		e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{Name: me.Name, Primitives: []*gltf.Primitive{prim}})

		node := &gltf.Node{Name: me.Name, Mesh: gltf.Index(len(e.doc.Meshes) - 1)}
		if _, ok := attrs[gltf.JOINTS_0]; ok {
			node.Skin = e.skin
		}
		e.doc.Nodes = append(e.doc.Nodes, node)
		e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, len(e.doc.Nodes)-1)
	}
	return e.doc, nil
}

// Save writes m as a .glb file.
func Save(path string, m *mesh.Model, textures texture.Resolver) error {
	doc, err := Build(m, textures)
	if err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("gltf: save %s: %w", path, err)
	}
	return nil
}

// addSkeleton adds one node per bone, placed relative to its parent, and a
// skin whose inverse bind matrices undo each bone's model-space position.
func (e *exporter) addSkeleton() {
	bones := e.m.Bones
	base := len(e.doc.Nodes)
	joints := make([]int, len(bones))
	inv := make([][4][4]float32, len(bones))

	for i, b := range bones {
		rooted := b.Parent < 0 || b.Parent >= i
		t := b.BindPosition
		if !rooted {
			t = vec3.Sub(&b.BindPosition, &bones[b.Parent].BindPosition)
		}
		e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
			Name:        fmt.Sprintf("bone_%03d", i),
			Translation: [3]float64{float64(t[0]), float64(t[1]), float64(t[2])},
			Rotation:    [4]float64{0, 0, 0, 1},
			Scale:       [3]float64{1, 1, 1},
		})
		joints[i] = base + i

		if !rooted {
			parent := e.doc.Nodes[base+b.Parent]
			parent.Children = append(parent.Children, joints[i])
		} else {
			e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, joints[i])
		}

		// Column-major 4x4: identity with the negated bind position.
		p := b.BindPosition
		inv[i] = [4][4]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{-p[0], -p[1], -p[2], 1},
		}
	}

	acc := modeler.WriteInverseBindMatrices(e.doc, inv)
	e.doc.Skins = append(e.doc.Skins, &gltf.Skin{Joints: joints, InverseBindMatrices: gltf.Index(acc)})
	e.skin = gltf.Index(len(e.doc.Skins) - 1)
}

// material returns the glTF material for material id, creating it on first
// use.
func (e *exporter) material(id int) (int, error) {
	if idx, ok := e.materials[id]; ok {
		return idx, nil
	}
	mat := &gltf.Material{
		Name: fmt.Sprintf("material_%d", id),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
	}
	if id >= 0 && id < len(e.m.Materials) && e.m.Materials[id] != "" {
		name := e.m.Materials[id]
		mat.Name = strings.TrimSuffix(filepath.Base(strings.ReplaceAll(name, "\\", "/")), filepath.Ext(name))
		if err := e.addTexture(mat, name); err != nil {
			return 0, err
		}
	}
	e.doc.Materials = append(e.doc.Materials, mat)
	idx := len(e.doc.Materials) - 1
	e.materials[id] = idx
	return idx, nil
}

// addTexture embeds the texture name resolves to as the base color of mat.
// Unresolved textures leave mat untextured.
func (e *exporter) addTexture(mat *gltf.Material, name string) error {
	if e.textures == nil {
		return nil
	}
	img := e.textures.Resolve(name)
	if img == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("texture %s: %w", name, err)
	}
	src, err := modeler.WriteImage(e.doc, mat.Name+".png", "image/png", &buf)
	if err != nil {
		return fmt.Errorf("texture %s: %w", name, err)
	}
	e.doc.Buffers[0].ByteLength = len(e.doc.Buffers[0].Data)

	if len(e.doc.Samplers) == 0 {
		e.doc.Samplers = []*gltf.Sampler{{}}
	}
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(src)})
	mat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: len(e.doc.Textures) - 1}
	if !texture.Opaque(img) {
		mat.AlphaMode = gltf.AlphaBlend
	}
	return nil
}

// attributes writes the accessors of stream si once and returns them.
func (e *exporter) attributes(si int) (gltf.PrimitiveAttributes, error) {
	if attrs, ok := e.streams[si]; ok {
		return attrs, nil
	}
	s := e.m.Streams[si]
	n := s.Len()
	attrs := gltf.PrimitiveAttributes{
		gltf.POSITION: modeler.WritePosition(e.doc, vectors(s.Positions)),
	}
	if len(s.Normals) == n {
		attrs[gltf.NORMAL] = modeler.WriteNormal(e.doc, vectors(s.Normals))
		if len(s.Tangents) == n && len(s.Binormals) == n {
			attrs[gltf.TANGENT] = modeler.WriteTangent(e.doc, Tangents(s))
		}
	}
	for i, set := range s.UVs {
		if len(set) == n && n > 0 {
			attrs[fmt.Sprintf("TEXCOORD_%d", i)] = modeler.WriteTextureCoord(e.doc, texcoords(set))
		}
	}
	if len(s.Colors) == n && n > 0 {
		attrs[gltf.COLOR_0] = modeler.WriteColor(e.doc, s.Colors)
	}
	if s.Skinned() && e.skin != nil {
		joints, weights, err := Influences(s, e.m.PaletteFor(si), len(e.m.Bones))
		if err != nil {
			return nil, err
		}
		attrs[gltf.JOINTS_0] = modeler.WriteJoints(e.doc, joints)
		attrs[gltf.WEIGHTS_0] = modeler.WriteWeights(e.doc, weights)
	}
	e.streams[si] = attrs
	return attrs, nil
}

// Tangents packs the tangent frame as glTF vec4 tangents. The w component
// records handedness: +1 when cross(normal, tangent) points along the
// binormal, -1 otherwise.
func Tangents(s *mesh.VertexStream) [][4]float32 {
	out := make([][4]float32, s.Len())
	for v := range out {
		t := s.Tangents[v]
		c := vec3.Cross(&s.Normals[v], &t)
		b := s.Binormals[v]
		w := float32(1)
		if c[0]*b[0]+c[1]*b[1]+c[2]*b[2] < 0 {
			w = -1
		}
		out[v] = [4]float32{t[0], t[1], t[2], w}
	}
	return out
}

// Influences resolves each weight slot through pal to a bone number, which
// is also the bone's joint index in the skin. A slot naming a joint already
// named by an earlier slot of the same vertex gets weight 0, and the
// remaining weights are renormalized to sum to 1. An empty pal takes the
// slots as bone numbers.
func Influences(s *mesh.VertexStream, pal []uint16, bones int) ([][4]uint16, [][4]float32, error) {
	joints := make([][4]uint16, len(s.WeightIndices))
	weights := make([][4]float32, len(s.WeightIndices))
	for v, slots := range s.WeightIndices {
		var sum float32
		for k, idx := range slots {
			id, ok := idx, true
			if len(pal) > 0 {
				ok = int(idx) < len(pal)
				if ok {
					id = pal[idx]
				}
			}
			if !ok || int(id) >= bones {
				e := mesh.NewError(mesh.ErrIndexOutOfRange, fmt.Sprintf("weight slot %d does not resolve to one of %d bones", k, bones))
				e.Vertex = v
				return nil, nil, e
			}
			joints[v][k] = id
			if v < len(s.Weights) && !slices.Contains(joints[v][:k], id) {
				weights[v][k] = s.Weights[v][k]
				sum += weights[v][k]
			}
		}
		if sum > 0 {
			for k := range weights[v] {
				weights[v][k] /= sum
			}
		}
	}
	return joints, weights, nil
}

func vectors(vs []vec3.T) [][3]float32 {
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func texcoords(uvs []vec2.T) [][2]float32 {
	out := make([][2]float32, len(uvs))
	for i, uv := range uvs {
		out[i] = uv
	}
	return out
}
