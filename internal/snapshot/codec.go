package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	"aqua-mesh-prep/internal/mesh"
)

var le = binary.LittleEndian

func putSlice[T any](w *bytes.Buffer, s []T) {
	_ = binary.Write(w, le, uint32(len(s)))
	if len(s) > 0 {
		_ = binary.Write(w, le, s)
	}
}

func putString(w *bytes.Buffer, s string) {
	_ = binary.Write(w, le, uint32(len(s)))
	w.WriteString(s)
}

func encodeStream(w *bytes.Buffer, s *mesh.VertexStream) {
	putSlice(w, s.Positions)
	putSlice(w, s.Normals)
	putSlice(w, s.Tangents)
	putSlice(w, s.Binormals)
	putSlice(w, s.Colors)
	putSlice(w, s.Colors2)
	_ = binary.Write(w, le, uint32(len(s.UVs)))
	for _, set := range s.UVs {
		putSlice(w, set)
	}
	putSlice(w, s.Weights)
	putSlice(w, s.WeightIndices)
	putSlice(w, s.BonePalette)
	putSlice(w, s.EdgeVertices)
}

func encodeModel(w *bytes.Buffer, m *mesh.Model) {
	_ = binary.Write(w, le, uint32(m.Version))
	putSlice(w, m.BonePalette)

	_ = binary.Write(w, le, uint32(len(m.Bones)))
	for _, b := range m.Bones {
		_ = binary.Write(w, le, int32(b.Parent))
		_ = binary.Write(w, le, b.BindPosition)
	}

	_ = binary.Write(w, le, uint32(len(m.Streams)))
	for _, s := range m.Streams {
		encodeStream(w, s)
	}

	_ = binary.Write(w, le, uint32(len(m.Lists)))
	for _, l := range m.Lists {
		putSlice(w, l.Faces)
	}

	_ = binary.Write(w, le, uint32(len(m.Meshes)))
	for _, me := range m.Meshes {
		putString(w, me.Name)
		_ = binary.Write(w, le, [3]int32{int32(me.Material), int32(me.Stream), int32(me.List)})
		putSlice(w, me.BonePalette)
	}

	_ = binary.Write(w, le, uint32(len(m.Materials)))
	for _, name := range m.Materials {
		putString(w, name)
	}
}

// decoder reads the payload with a sticky error.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, le, v); err != nil {
		d.err = ErrCorrupt
	}
}

func (d *decoder) count() int {
	var n uint32
	d.read(&n)
	// Every element takes at least one byte.
	if d.err == nil && int64(n) > int64(d.r.Len()) {
		d.err = ErrCorrupt
	}
	if d.err != nil {
		return 0
	}
	return int(n)
}

func getSlice[T any](d *decoder) []T {
	n := d.count()
	if n == 0 {
		return nil
	}
	s := make([]T, n)
	d.read(s)
	return s
}

func (d *decoder) str() string {
	n := d.count()
	if n == 0 {
		return ""
	}
	b := make([]byte, n)
	d.read(b)
	return string(b)
}

func (d *decoder) stream() *mesh.VertexStream {
	s := &mesh.VertexStream{
		Positions: getSlice[vec3.T](d),
		Normals:   getSlice[vec3.T](d),
		Tangents:  getSlice[vec3.T](d),
		Binormals: getSlice[vec3.T](d),
		Colors:    getSlice[[4]uint8](d),
		Colors2:   getSlice[[4]uint8](d),
	}
	if n := d.count(); n > 0 {
		s.UVs = make([][]vec2.T, n)
		for i := range s.UVs {
			s.UVs[i] = getSlice[vec2.T](d)
		}
	}
	s.Weights = getSlice[[4]float32](d)
	s.WeightIndices = getSlice[[4]uint16](d)
	s.BonePalette = getSlice[uint16](d)
	s.EdgeVertices = getSlice[uint32](d)
	return s
}

func decodeModel(raw []byte) (*mesh.Model, error) {
	d := &decoder{r: bytes.NewReader(raw)}
	m := &mesh.Model{}

	var version uint32
	d.read(&version)
	m.Version = mesh.Version(version)
	m.BonePalette = getSlice[uint16](d)

	if n := d.count(); n > 0 {
		m.Bones = make([]mesh.Bone, n)
		for i := range m.Bones {
			var parent int32
			d.read(&parent)
			d.read(&m.Bones[i].BindPosition)
			m.Bones[i].Parent = int(parent)
		}
	}

	for n := d.count(); n > 0 && d.err == nil; n-- {
		m.Streams = append(m.Streams, d.stream())
	}
	for n := d.count(); n > 0 && d.err == nil; n-- {
		m.Lists = append(m.Lists, &mesh.TriangleList{Faces: getSlice[mesh.Triangle](d)})
	}
	for n := d.count(); n > 0 && d.err == nil; n-- {
		var me mesh.Mesh
		me.Name = d.str()
		var slots [3]int32
		d.read(&slots)
		me.Material, me.Stream, me.List = int(slots[0]), int(slots[1]), int(slots[2])
		me.BonePalette = getSlice[uint16](d)
		m.Meshes = append(m.Meshes, me)
	}
	for n := d.count(); n > 0 && d.err == nil; n-- {
		m.Materials = append(m.Materials, d.str())
	}

	if d.err != nil {
		return nil, d.err
	}
	if d.r.Len() != 0 {
		return nil, ErrCorrupt
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	m.Refresh()
	return m, nil
}
