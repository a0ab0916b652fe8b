package bmd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/flywave/go3d/vec3"

	"aqua-mesh-prep/internal/mesh"
)

// builder writes a little-endian BMD v10 container.
type builder struct{ bytes.Buffer }

func (b *builder) put(v any) { binary.Write(&b.Buffer, binary.LittleEndian, v) }
func (b *builder) str(s string, n int) {
	buf := make([]byte, n)
	copy(buf, s)
	b.Write(buf)
}

// quadFile is one textured quad bound to bone 1, which sits at (0,0,2) under
// a root bone at the origin.
func quadFile() []byte {
	var b builder
	b.WriteString("BMD")
	b.WriteByte(10)
	b.str("quad", 32)
	b.put([]uint16{1, 2, 1}) // meshes, bones, actions

	b.put([]int16{4, 1, 4, 1, 3}) // verts, normals, texcoords, faces, texture
	for _, p := range [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}} {
		b.put([]int16{1, 0})
		b.put(p)
	}
	b.put([]int16{1, 0})
	b.put([3]float32{0, 0, 1})
	b.put([]int16{0, 0})
	b.put([][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}})

	rec := make([]byte, 64)
	rec[0] = 4
	for k := 0; k < 4; k++ {
		binary.LittleEndian.PutUint16(rec[2+k*2:], uint16(k))
		binary.LittleEndian.PutUint16(rec[10+k*2:], 0)
		binary.LittleEndian.PutUint16(rec[18+k*2:], uint16(k))
	}
	b.Write(rec)
	b.str(`data\quad.jpg`, 32)

	// one action with one key, no locked positions
	b.put(int16(1))
	b.WriteByte(0)

	for i, pos := range [][3]float32{{0, 0, 0}, {0, 0, 2}} {
		b.WriteByte(0)
		b.str("bone", 32)
		b.put(int16(i - 1))
		b.put(pos)
		b.put([3]float32{0, 0, 0})
	}
	return b.Bytes()
}

func TestDecode(t *testing.T) {
	f, err := Decode(quadFile())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Name != "quad" || f.Version != 10 || len(f.Meshes) != 1 || len(f.Bones) != 2 {
		t.Fatalf("file = %+v", f)
	}
	m := f.Meshes[0]
	if m.TexPath != "data/quad.jpg" || m.Texture != 3 {
		t.Fatalf("texture = %q %d", m.TexPath, m.Texture)
	}
	if len(m.Faces) != 1 || m.Faces[0].Polygon != 4 || m.Faces[0].TI[3] != 3 {
		t.Fatalf("faces = %+v", m.Faces)
	}
	if f.Bones[1].Parent != 0 || f.Bones[1].BindPosition != [3]float64{0, 0, 2} {
		t.Fatalf("bone = %+v", f.Bones[1])
	}
}

func TestDecode_Rejects(t *testing.T) {
	if _, err := Decode([]byte("BMD\x0f\x00\x00\x00\x00")); !errors.Is(err, ErrEncrypted) {
		t.Fatalf("v15: err = %v", err)
	}
	if _, err := Decode([]byte("PNG\x0a")); err == nil {
		t.Fatalf("bad magic accepted")
	}
	raw := quadFile()
	if _, err := Decode(raw[:len(raw)-10]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("truncated: err = %v", err)
	}
}

func TestToModel(t *testing.T) {
	f, err := Decode(quadFile())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m, err := ToModel(f)
	if err != nil {
		t.Fatalf("ToModel: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	s := m.Streams[0]
	if s.Len() != 4 || len(m.Lists[0].Faces) != 2 {
		t.Fatalf("%d vertices, %d faces", s.Len(), len(m.Lists[0].Faces))
	}
	if got := m.Lists[0].Faces[1]; got != (mesh.Triangle{0, 2, 3}) {
		t.Fatalf("second quad triangle = %v", got)
	}
	// Bone 1 lifts everything by two units.
	if d := vec3.Sub(&s.Positions[2], &vec3.T{1, 1, 2}); math.Sqrt(float64(d.LengthSqr())) > 1e-6 {
		t.Fatalf("posed vertex = %v", s.Positions[2])
	}
	if s.WeightIndices[0] != [4]uint16{1, 0, 0, 0} || s.Weights[0] != [4]float32{1, 0, 0, 0} {
		t.Fatalf("binding = %v %v", s.WeightIndices[0], s.Weights[0])
	}
	if !slices.Equal(m.BonePalette, []uint16{0, 1}) {
		t.Fatalf("palette = %v", m.BonePalette)
	}
	if m.Bones[1].BindPosition != (vec3.T{0, 0, 2}) || m.Bones[1].Parent != 0 {
		t.Fatalf("bones = %+v", m.Bones)
	}
	if m.Meshes[0].Name != "quad_00" || m.Meshes[0].Material != 3 {
		t.Fatalf("mesh = %+v", m.Meshes[0])
	}
	if len(m.Materials) != 4 || m.Materials[3] != "data/quad.jpg" {
		t.Fatalf("materials = %q", m.Materials)
	}
}

func TestToModel_BadIndex(t *testing.T) {
	f, err := Decode(quadFile())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	f.Meshes[0].Faces[0].VI[2] = 9
	if _, err := ToModel(f); !errors.Is(err, mesh.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
}
