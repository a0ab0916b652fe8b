package bmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

var (
	// ErrEncrypted is returned for container versions that need a key.
	ErrEncrypted = errors.New("encrypted container")
	// ErrTruncated is returned when a count points past the end of the data.
	ErrTruncated = errors.New("truncated data")
)

const maxMeshes = 100

// Parse reads and decodes the BMD file at path.
func Parse(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", path, err)
	}
	f, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("bmd: %s: %w", path, err)
	}
	return f, nil
}

// Decode parses an in-memory BMD container. Only plain-text versions are
// supported; versions 12, 14 and 15 are rejected with ErrEncrypted.
func Decode(raw []byte) (*File, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, errors.New("invalid header")
	}
	version := raw[3]
	switch version {
	case 12, 14, 15:
		return nil, fmt.Errorf("version %d: %w", version, ErrEncrypted)
	}

	r := &reader{data: raw[4:]}
	f, err := r.parse()
	if err != nil {
		return nil, err
	}
	f.Version = version
	return f, nil
}

type reader struct {
	data  []byte
	off   int
	short bool // a read ran past the end
}

func (r *reader) take(n int) []byte {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readStr(n int) string {
	s := r.take(n)
	if i := strings.IndexByte(string(s), 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}

func (r *reader) readI16() int16 {
	if b := r.take(2); b != nil {
		return int16(binary.LittleEndian.Uint16(b))
	}
	return 0
}

func (r *reader) readU16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) readF32() float32 {
	if b := r.take(4); b != nil {
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *reader) readVec3() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}

func (r *reader) readByte() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

// count reads a signed element count and rejects negative values.
func (r *reader) count(what string) (int, error) {
	n := int(r.readI16())
	if n < 0 {
		return 0, fmt.Errorf("negative %s count %d", what, n)
	}
	return n, nil
}

func (r *reader) parse() (*File, error) {
	f := &File{Name: r.readStr(32)}
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > maxMeshes {
		return nil, fmt.Errorf("invalid mesh count %d", meshCount)
	}

	f.Meshes = make([]Mesh, 0, meshCount)
	for i := 0; i < meshCount; i++ {
		m, err := r.parseMesh()
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		f.Meshes = append(f.Meshes, m)
	}

	// Only the key counts matter; bone keys are sized by them.
	actionKeys := make([]int, actionCount)
	for a := range actionKeys {
		numKeys := int(r.readI16())
		if r.readByte() > 0 {
			r.take(numKeys * 12)
		}
		actionKeys[a] = numKeys
	}

	f.Bones = make([]Bone, 0, boneCount)
	for b := 0; b < boneCount; b++ {
		if r.readByte() > 0 {
			f.Bones = append(f.Bones, Bone{Parent: -1, IsDummy: true})
			continue
		}
		bone := Bone{Name: r.readStr(32), Parent: int(r.readI16())}
		for a, numKeys := range actionKeys {
			for k := 0; k < numKeys; k++ {
				p := r.readVec3()
				if a == 0 && k == 0 {
					bone.BindPosition = [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}
				}
			}
			for k := 0; k < numKeys; k++ {
				q := r.readVec3()
				if a == 0 && k == 0 {
					bone.BindRotation = [3]float64{float64(q[0]), float64(q[1]), float64(q[2])}
				}
			}
		}
		f.Bones = append(f.Bones, bone)
	}

	if r.short {
		return nil, ErrTruncated
	}
	return f, nil
}

func (r *reader) parseMesh() (Mesh, error) {
	var m Mesh
	nv, err := r.count("vertex")
	if err != nil {
		return m, err
	}
	nn, err := r.count("normal")
	if err != nil {
		return m, err
	}
	ntc, err := r.count("texcoord")
	if err != nil {
		return m, err
	}
	nt, err := r.count("triangle")
	if err != nil {
		return m, err
	}
	m.Texture = int(r.readI16())

	// node:i16 pad:i16 xyz:f32
	m.Verts = make([][3]float32, nv)
	m.Nodes = make([]int16, nv)
	for j := range m.Verts {
		m.Nodes[j] = r.readI16()
		r.take(2)
		m.Verts[j] = r.readVec3()
	}

	// node:i16 pad:i16 xyz:f32 bindVertex:i16 pad:i16
	m.Normals = make([][3]float32, nn)
	for j := range m.Normals {
		r.take(4)
		m.Normals[j] = r.readVec3()
		r.take(4)
	}

	m.UVs = make([][2]float32, ntc)
	for j := range m.UVs {
		m.UVs[j] = [2]float32{r.readF32(), r.readF32()}
	}

	// 64-byte records: polygon:u8 pad:u8 vi[4] ni[4] ti[4], rest unused
	m.Faces = make([]Face, nt)
	for j := range m.Faces {
		rec := r.take(64)
		if rec == nil {
			return m, ErrTruncated
		}
		face := Face{Polygon: int(rec[0])}
		for k := 0; k < 4; k++ {
			face.VI[k] = int16(binary.LittleEndian.Uint16(rec[2+k*2:]))
			face.NI[k] = int16(binary.LittleEndian.Uint16(rec[10+k*2:]))
			face.TI[k] = int16(binary.LittleEndian.Uint16(rec[18+k*2:]))
		}
		m.Faces[j] = face
	}

	m.TexPath = strings.ReplaceAll(r.readStr(32), "\\", "/")
	if r.short {
		return m, ErrTruncated
	}
	return m, nil
}
