package gltfexport

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/qmuntal/gltf"

	"aqua-mesh-prep/internal/mesh"
)

func skinnedQuad() *mesh.Model {
	s := &mesh.VertexStream{
		Positions:     []vec3.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Normals:       []vec3.T{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Tangents:      []vec3.T{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}, {1, 0, 0}},
		Binormals:     []vec3.T{{0, 1, 0}, {0, 1, 0}, {0, -1, 0}, {0, -1, 0}},
		UVs:           [][]vec2.T{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		Weights:       [][4]float32{{1}, {1}, {1}, {1}},
		WeightIndices: [][4]uint16{{0}, {1}, {1}, {0}},
		BonePalette:   []uint16{2, 1},
	}
	m := &mesh.Model{
		Version: mesh.VersionNGSShared,
		Streams: []*mesh.VertexStream{s},
		Lists: []*mesh.TriangleList{
			{Faces: []mesh.Triangle{{0, 1, 2}}},
			{Faces: []mesh.Triangle{{0, 2, 3}}},
		},
		Meshes: []mesh.Mesh{
			{Name: "a", Stream: 0, List: 0, Material: 1},
			{Name: "b", Stream: 0, List: 1, Material: 1},
		},
		Bones: []mesh.Bone{
			{Parent: -1},
			{Parent: 0, BindPosition: vec3.T{0, 0, 1}},
			{Parent: 1, BindPosition: vec3.T{0, 1, 1}},
		},
	}
	m.Refresh()
	return m
}

func TestBuild(t *testing.T) {
	doc, err := Build(skinnedQuad(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Meshes) != 2 || len(doc.Skins) != 1 || len(doc.Materials) != 1 {
		t.Fatalf("%d meshes %d skins %d materials", len(doc.Meshes), len(doc.Skins), len(doc.Materials))
	}
	a, b := doc.Meshes[0].Primitives[0], doc.Meshes[1].Primitives[0]
	if a.Attributes[gltf.POSITION] != b.Attributes[gltf.POSITION] {
		t.Fatalf("shared stream written twice")
	}
	if *a.Indices == *b.Indices {
		t.Fatalf("meshes share an index accessor")
	}
	for _, name := range []string{gltf.NORMAL, gltf.TANGENT, gltf.TEXCOORD_0, gltf.JOINTS_0, gltf.WEIGHTS_0} {
		if _, ok := a.Attributes[name]; !ok {
			t.Fatalf("missing %s", name)
		}
	}
	if typ := doc.Accessors[a.Attributes[gltf.TANGENT]].Type; typ != gltf.AccessorVec4 {
		t.Fatalf("tangent type = %v", typ)
	}

	skin := doc.Skins[0]
	if len(skin.Joints) != 3 || doc.Accessors[*skin.InverseBindMatrices].Count != 3 {
		t.Fatalf("skin = %+v", skin)
	}
	child := doc.Nodes[skin.Joints[2]]
	if child.Translation != [3]float64{0, 1, 0} {
		t.Fatalf("bone 2 local translation = %v", child.Translation)
	}
	if parent := doc.Nodes[skin.Joints[1]]; len(parent.Children) != 1 || parent.Children[0] != skin.Joints[2] {
		t.Fatalf("bone 1 children = %v", parent.Children)
	}
	for _, n := range doc.Nodes {
		if n.Mesh != nil && n.Skin == nil {
			t.Fatalf("mesh node %q has no skin", n.Name)
		}
	}
}

func TestTangents(t *testing.T) {
	got := Tangents(skinnedQuad().Streams[0])
	if got[0] != [4]float32{1, 0, 0, 1} || got[2] != [4]float32{1, 0, 0, -1} {
		t.Fatalf("tangents = %v", got)
	}
}

func TestInfluences(t *testing.T) {
	s := skinnedQuad().Streams[0]
	joints, weights, err := Influences(s, s.BonePalette, 3)
	if err != nil {
		t.Fatalf("Influences: %v", err)
	}
	// Slot 0 names bone 1; the zeroed slots all name palette[0] = bone 2.
	if joints[1] != [4]uint16{1, 2, 2, 2} || weights[1] != [4]float32{1, 0, 0, 0} {
		t.Fatalf("vertex 1 = %v %v", joints[1], weights[1])
	}
	if _, _, err := Influences(s, s.BonePalette, 2); !errors.Is(err, mesh.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestInfluences_DuplicateJoint(t *testing.T) {
	s := &mesh.VertexStream{
		Positions:     make([]vec3.T, 1),
		Weights:       [][4]float32{{0.5, 0.25, 0.25, 0}},
		WeightIndices: [][4]uint16{{1, 0, 0, 0}},
	}
	joints, weights, err := Influences(s, []uint16{4, 7}, 8)
	if err != nil {
		t.Fatalf("Influences: %v", err)
	}
	// The second slot of bone 4 would add a spurious 0.25.
	if joints[0] != [4]uint16{7, 4, 4, 4} {
		t.Fatalf("joints = %v", joints[0])
	}
	want := [4]float32{0.5 / 0.75, 0.25 / 0.75, 0, 0}
	for k := range want {
		if math.Abs(float64(weights[0][k]-want[k])) > 1e-6 {
			t.Fatalf("weights = %v, want %v", weights[0], want)
		}
	}

	joints, _, err = Influences(s, nil, 8)
	if err != nil || joints[0] != [4]uint16{1, 0, 0, 0} {
		t.Fatalf("raw indices: %v %v", joints[0], err)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.glb")
	if err := Save(path, skinnedQuad(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("stat: %v", err)
	}
	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(doc.Meshes) != 2 {
		t.Fatalf("reloaded %d meshes", len(doc.Meshes))
	}
}

type textures map[string]*image.NRGBA

func (t textures) Resolve(name string) *image.NRGBA {
	return t[name]
}

func TestBuild_Textures(t *testing.T) {
	m := skinnedQuad()
	m.Meshes[1].Material = 2
	m.Materials = []string{"", `Data\Player\skin.jpg`, "missing.jpg"}

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 100})
	doc, err := Build(m, textures{`Data\Player\skin.jpg`: img})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(doc.Materials) != 2 || len(doc.Images) != 1 || len(doc.Textures) != 1 || len(doc.Samplers) != 1 {
		t.Fatalf("materials=%d images=%d textures=%d samplers=%d",
			len(doc.Materials), len(doc.Images), len(doc.Textures), len(doc.Samplers))
	}
	skin := doc.Materials[0]
	if skin.Name != "skin" || skin.AlphaMode != gltf.AlphaBlend {
		t.Fatalf("skin material = %+v", skin)
	}
	if skin.PBRMetallicRoughness.BaseColorTexture == nil {
		t.Fatalf("skin material has no texture")
	}
	if missing := doc.Materials[1]; missing.PBRMetallicRoughness.BaseColorTexture != nil {
		t.Fatalf("unresolved texture embedded")
	}
	if doc.Images[0].MimeType != "image/png" {
		t.Fatalf("image = %+v", doc.Images[0])
	}
}
