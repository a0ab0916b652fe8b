package skeleton

import (
	"math"
	"testing"

	"github.com/flywave/go3d/vec3"
)

func near(a, b vec3.T) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

func TestWorldTransforms_Chain(t *testing.T) {
	joints := []Joint{
		{Parent: -1, Position: [3]float64{0, 0, 1}, Rotation: [3]float64{0, 0, math.Pi / 2}},
		{Parent: 0, Position: [3]float64{1, 0, 0}},
		{Parent: 5, Dummy: true},
	}
	w := WorldTransforms(joints)

	// The child sits one unit along the root's rotated x axis.
	if got := w[1].Translation(); !near(got, vec3.T{0, 1, 1}) {
		t.Fatalf("child origin = %v", got)
	}
	if got := w[1].Apply(vec3.T{1, 0, 0}); !near(got, vec3.T{0, 2, 1}) {
		t.Fatalf("child point = %v", got)
	}
	if got := w[0].Rotate(vec3.T{0, 1, 0}); !near(got, vec3.T{-1, 0, 0}) {
		t.Fatalf("rotated direction = %v", got)
	}
	if w[2] != Identity {
		t.Fatalf("dummy = %+v", w[2])
	}
}

func TestFromEulerIsRotation(t *testing.T) {
	r := fromEuler(0.3, -1.1, 2.0)
	det := r[0]*(r[4]*r[8]-r[5]*r[7]) - r[1]*(r[3]*r[8]-r[5]*r[6]) + r[2]*(r[3]*r[7]-r[4]*r[6])
	if math.Abs(det-1) > 1e-9 {
		t.Fatalf("det = %v", det)
	}
}
