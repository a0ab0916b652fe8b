package mesh

import (
	"slices"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// Version is the container format revision a model was decoded from.
type Version uint32

const (
	// VersionClassic is the legacy layout: one stream and one list per mesh.
	VersionClassic Version = 0xC2A
	// VersionNGS indexes streams and lists separately per mesh.
	VersionNGS Version = 0xC31
	// VersionNGSShared lets several triangle lists reuse one stream.
	VersionNGSShared Version = 0xC33
)

// SharesStreams reports whether the format tolerates unused vertices in a
// stream shared by several triangle lists.
func (v Version) SharesStreams() bool {
	return v >= 0xC32
}

// Triangle holds three indices into a VertexStream.
type Triangle [3]uint32

// TriangleList is one draw call's index data.
type TriangleList struct {
	Faces []Triangle
}

// VertexStream holds per-vertex attributes. Every non-empty array has the
// same length as Positions.
type VertexStream struct {
	Positions []vec3.T
	Normals   []vec3.T
	Tangents  []vec3.T
	Binormals []vec3.T
	Colors    [][4]uint8
	Colors2   [][4]uint8
	UVs       [][]vec2.T // UVs[0] is the primary set

	Weights       [][4]float32
	WeightIndices [][4]uint16 // indices into the resolved bone palette
	BonePalette   []uint16

	// EdgeVertices is a sorted set of vertices that sit on a partition seam.
	// Advisory data for the engine's skinning; it only ever grows.
	EdgeVertices []uint32
}

// Len returns the vertex count.
func (s *VertexStream) Len() int {
	return len(s.Positions)
}

// Skinned reports whether the stream carries bone weight indices.
func (s *VertexStream) Skinned() bool {
	return len(s.WeightIndices) > 0
}

// UV0 returns the primary UV set, or nil when absent.
func (s *VertexStream) UV0() []vec2.T {
	if len(s.UVs) == 0 {
		return nil
	}
	return s.UVs[0]
}

// AddEdgeVertices merges vs into the edge vertex set.
func (s *VertexStream) AddEdgeVertices(vs ...uint32) {
	for _, v := range vs {
		if i, ok := slices.BinarySearch(s.EdgeVertices, v); !ok {
			s.EdgeVertices = slices.Insert(s.EdgeVertices, i, v)
		}
	}
}

// IsEdgeVertex reports whether v is marked as a seam vertex.
func (s *VertexStream) IsEdgeVertex(v uint32) bool {
	_, ok := slices.BinarySearch(s.EdgeVertices, v)
	return ok
}

// AppendVertex copies vertex v of src onto the end of s. Attribute arrays
// that are present in src are extended in s.
func (s *VertexStream) AppendVertex(src *VertexStream, v uint32) {
	s.Positions = append(s.Positions, src.Positions[v])
	if len(src.Normals) > 0 {
		s.Normals = append(s.Normals, src.Normals[v])
	}
	if len(src.Tangents) > 0 {
		s.Tangents = append(s.Tangents, src.Tangents[v])
	}
	if len(src.Binormals) > 0 {
		s.Binormals = append(s.Binormals, src.Binormals[v])
	}
	if len(src.Colors) > 0 {
		s.Colors = append(s.Colors, src.Colors[v])
	}
	if len(src.Colors2) > 0 {
		s.Colors2 = append(s.Colors2, src.Colors2[v])
	}
	for len(s.UVs) < len(src.UVs) {
		s.UVs = append(s.UVs, nil)
	}
	for i, set := range src.UVs {
		if len(set) > 0 {
			s.UVs[i] = append(s.UVs[i], set[v])
		}
	}
	if len(src.Weights) > 0 {
		s.Weights = append(s.Weights, src.Weights[v])
	}
	if len(src.WeightIndices) > 0 {
		s.WeightIndices = append(s.WeightIndices, src.WeightIndices[v])
	}
}

// Mesh pairs one triangle list with one vertex stream.
type Mesh struct {
	Name     string
	Material int
	Stream   int // index into Model.Streams
	List     int // index into Model.Lists

	// BonePalette is the submesh's local palette: the sorted bone ids its
	// vertices touch. In shared-stream models the stream palette stays global
	// to the stream and this is the only per-submesh view of it.
	BonePalette []uint16
}

// Bone is the minimal skeleton data the exporter needs.
type Bone struct {
	Parent       int
	BindPosition vec3.T
}

// PartitionInfo is the per-list bookkeeping the engine format expects.
type PartitionInfo struct {
	IndexCount int
	IndexStart int // running sum of IndexCount over preceding lists
}

// Model is the in-memory form handed to and returned from the pipeline.
type Model struct {
	Version Version
	Streams []*VertexStream
	Lists   []*TriangleList
	Meshes  []Mesh

	// BonePalette is the optional global palette, used for streams whose
	// own palette is empty.
	BonePalette []uint16
	Bones       []Bone
	// Materials optionally names the texture of each material id.
	Materials []string

	Partitions    []PartitionInfo
	Layouts       []Layout
	LargestStride int
}

// PaletteFor returns the palette the weight indices of stream si resolve
// against.
func (m *Model) PaletteFor(si int) []uint16 {
	if s := m.Streams[si]; len(s.BonePalette) > 0 {
		return s.BonePalette
	}
	return m.BonePalette
}

// StreamUsers returns the indices of meshes that draw from stream si.
func (m *Model) StreamUsers(si int) []int {
	var out []int
	for i, me := range m.Meshes {
		if me.Stream == si {
			out = append(out, i)
		}
	}
	return out
}

// ListUsers returns the indices of meshes that draw list li.
func (m *Model) ListUsers(li int) []int {
	var out []int
	for i, me := range m.Meshes {
		if me.List == li {
			out = append(out, i)
		}
	}
	return out
}

// Refresh recomputes the partition offset table and per-stream layouts.
// Call it after anything that adds, removes or resizes lists or streams.
func (m *Model) Refresh() {
	m.Partitions = m.Partitions[:0]
	start := 0
	for _, l := range m.Lists {
		n := len(l.Faces) * 3
		m.Partitions = append(m.Partitions, PartitionInfo{IndexCount: n, IndexStart: start})
		start += n
	}

	m.Layouts = m.Layouts[:0]
	m.LargestStride = 0
	for _, s := range m.Streams {
		l := LayoutOf(s)
		m.Layouts = append(m.Layouts, l)
		if l.Stride > m.LargestStride {
			m.LargestStride = l.Stride
		}
	}
}
