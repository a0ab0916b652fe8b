package snapshot

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"aqua-mesh-prep/internal/mesh"
)

func sample() *mesh.Model {
	s := &mesh.VertexStream{
		Positions:     []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:       []vec3.T{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Colors:        [][4]uint8{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}},
		UVs:           [][]vec2.T{{{0, 0}, {1, 0}, {0, 1}}, nil},
		Weights:       [][4]float32{{1}, {0.5, 0.5}, {1}},
		WeightIndices: [][4]uint16{{0}, {0, 1}, {1}},
		BonePalette:   []uint16{4, 9},
		EdgeVertices:  []uint32{1},
	}
	m := &mesh.Model{
		Version:   mesh.VersionNGS,
		Streams:   []*mesh.VertexStream{s},
		Lists:     []*mesh.TriangleList{{Faces: []mesh.Triangle{{0, 1, 2}}}},
		Meshes:    []mesh.Mesh{{Name: "tri", Material: 2, BonePalette: []uint16{4, 9}}},
		Bones:     []mesh.Bone{{Parent: -1}, {Parent: 0, BindPosition: vec3.T{0, 0, 1.5}}},
		Materials: []string{"", "", "skin.ozt"},
	}
	m.Refresh()
	return m
}

func TestRoundTrip(t *testing.T) {
	for name, comp := range compressionNames {
		data, err := Marshal(sample(), comp)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", name, err)
		}
		got, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("%s: Unmarshal: %v", name, err)
		}
		if !reflect.DeepEqual(got, sample()) {
			t.Fatalf("%s: round trip mismatch:\n got %+v\nwant %+v", name, got, sample())
		}
	}
}

func TestChecksum(t *testing.T) {
	data, err := Marshal(sample(), CompressNone)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	data[len(data)-3] ^= 0xff
	if _, err := Unmarshal(data); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v", err)
	}
}

func TestRejects(t *testing.T) {
	if _, err := Unmarshal([]byte("AQMX\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00")); err == nil {
		t.Fatalf("bad magic accepted")
	}
	if _, err := ParseCompression("lz4"); err == nil {
		t.Fatalf("unknown compression accepted")
	}
	if c, err := ParseCompression("zstd"); err != nil || c != CompressZstd {
		t.Fatalf("zstd = %v, %v", c, err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.aqms")
	if err := Save(path, sample(), CompressZstd); err != nil {
		t.Fatalf("Save: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Meshes) != 1 || m.Meshes[0].Name != "tri" {
		t.Fatalf("meshes = %+v", m.Meshes)
	}
}

func TestRoundTrip_LongName(t *testing.T) {
	m := sample()
	m.Meshes[0].Name = strings.Repeat("bone_chain_", 7000)
	data, err := Marshal(m, CompressZlib)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Meshes[0].Name != m.Meshes[0].Name {
		t.Fatalf("name of %d bytes came back as %d bytes", len(m.Meshes[0].Name), len(got.Meshes[0].Name))
	}
}
