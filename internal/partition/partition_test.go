package partition

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/flywave/go3d/vec3"

	"aqua-mesh-prep/internal/mesh"
)

func TestPartition_SingleTriangleOverflow(t *testing.T) {
	faces := []mesh.Triangle{{0, 1, 2}}
	bones := [][]uint16{{1, 2}, {3, 4}, {5}}
	res := Partition(faces, bones, 4)
	if len(res.Groups) != 1 || !slices.Equal(res.Groups[0], []int{0}) {
		t.Fatalf("groups = %v, want [[0]]", res.Groups)
	}
}

func TestPartition_UnboundedLimit(t *testing.T) {
	faces := []mesh.Triangle{{0, 1, 2}, {2, 3, 4}, {3, 4, 5}}
	bones := [][]uint16{{0}, {1}, {2}, {3}, {4}, {5}}
	res := Partition(faces, bones, 6)
	if len(res.Groups) != 1 || !slices.Equal(res.Groups[0], []int{0, 1, 2}) {
		t.Fatalf("groups = %v", res.Groups)
	}
	if len(res.EdgeVertices) != 6 {
		// Every vertex brings a bone the growing group did not have yet.
		t.Fatalf("edge vertices = %v", res.EdgeVertices)
	}
}

func TestPartition_SkippedFacesPickedUpLater(t *testing.T) {
	faces := []mesh.Triangle{{0, 1, 2}, {2, 3, 4}, {3, 4, 5}, {0, 1, 5}}
	bones := [][]uint16{{1}, {1}, {2}, {3}, {3}, {4}}
	res := Partition(faces, bones, 3)

	want := [][]int{{0, 1}, {2, 3}}
	if len(res.Groups) != len(want) {
		t.Fatalf("groups = %v, want %v", res.Groups, want)
	}
	for i := range want {
		if !slices.Equal(res.Groups[i], want[i]) {
			t.Fatalf("groups = %v, want %v", res.Groups, want)
		}
	}
	if !slices.Equal(res.EdgeVertices, []uint32{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("edge vertices = %v", res.EdgeVertices)
	}
}

func TestPartition_UnskinnedIsOneGroup(t *testing.T) {
	s := &mesh.VertexStream{Positions: make([]vec3.T, 4)}
	faces := []mesh.Triangle{{0, 1, 2}, {0, 2, 3}}
	res := Partition(faces, VertexBones(s, nil), 1)
	if len(res.Groups) != 1 || len(res.Groups[0]) != 2 {
		t.Fatalf("groups = %v", res.Groups)
	}
	if len(res.EdgeVertices) != 0 {
		t.Fatalf("edge vertices = %v", res.EdgeVertices)
	}
}

func TestPartition_BudgetAndCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const nVerts, nFaces, nBones = 300, 500, 40

	s := &mesh.VertexStream{
		Positions:     make([]vec3.T, nVerts),
		WeightIndices: make([][4]uint16, nVerts),
	}
	pal := make([]uint16, nBones)
	for i := range pal {
		pal[i] = uint16(100 + i)
	}
	for v := range s.WeightIndices {
		// Neighbouring vertices share bones, like a real skinned strip.
		base := v * nBones / nVerts
		for k := range s.WeightIndices[v] {
			s.WeightIndices[v][k] = uint16((base + rng.Intn(3)) % nBones)
		}
	}
	faces := make([]mesh.Triangle, nFaces)
	for f := range faces {
		a := rng.Intn(nVerts - 10)
		faces[f] = mesh.Triangle{uint32(a), uint32(a + 1 + rng.Intn(4)), uint32(a + 5 + rng.Intn(5))}
	}

	bones := VertexBones(s, pal)
	for _, limit := range []int{4, 8, 16, 64} {
		res := Partition(faces, bones, limit)

		seen := make([]bool, nFaces)
		for gi, g := range res.Groups {
			if len(g) == 0 {
				t.Fatalf("limit %d: group %d empty", limit, gi)
			}
			if n := len(GroupBones(faces, bones, g)); n > limit && len(g) > 1 {
				t.Fatalf("limit %d: group %d touches %d bones", limit, gi, n)
			}
			for _, f := range g {
				if seen[f] {
					t.Fatalf("limit %d: face %d assigned twice", limit, f)
				}
				seen[f] = true
			}
		}
		for f, ok := range seen {
			if !ok {
				t.Fatalf("limit %d: face %d unassigned", limit, f)
			}
		}
		if !slices.IsSorted(res.EdgeVertices) {
			t.Fatalf("limit %d: edge vertices not sorted", limit)
		}

		again := Partition(faces, bones, limit)
		if len(again.Groups) != len(res.Groups) {
			t.Fatalf("limit %d: partitioning is not deterministic", limit)
		}
	}
}

func TestVertexBones(t *testing.T) {
	s := &mesh.VertexStream{
		Positions:     make([]vec3.T, 2),
		WeightIndices: [][4]uint16{{1, 1, 0, 0}, {2, 0, 0, 0}},
	}
	got := VertexBones(s, []uint16{10, 20, 30})
	if !slices.Equal(got[0], []uint16{20, 10}) || !slices.Equal(got[1], []uint16{30, 10}) {
		t.Fatalf("bones = %v", got)
	}
	raw := VertexBones(s, nil)
	if !slices.Equal(raw[1], []uint16{2, 0}) {
		t.Fatalf("raw bones = %v", raw)
	}
}
