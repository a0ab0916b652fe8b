// Package skeleton evaluates bind-pose bone transforms.
package skeleton

import (
	"math"

	"github.com/flywave/go3d/vec3"
)

// Joint is one bone's bind pose relative to its parent.
type Joint struct {
	Parent   int // -1 for roots
	Dummy    bool
	Position [3]float64
	Rotation [3]float64 // Euler XYZ, radians
}

// Affine is a rotation followed by a translation. R is row-major.
type Affine struct {
	R [9]float64
	T [3]float64
}

// Identity is the transform that leaves points unchanged.
var Identity = Affine{R: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}

// Then returns the transform that applies local first and a second.
func (a Affine) Then(local Affine) Affine {
	var out Affine
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.R[r*3+c] = a.R[r*3]*local.R[c] + a.R[r*3+1]*local.R[3+c] + a.R[r*3+2]*local.R[6+c]
		}
		out.T[r] = a.R[r*3]*local.T[0] + a.R[r*3+1]*local.T[1] + a.R[r*3+2]*local.T[2] + a.T[r]
	}
	return out
}

// Rotate applies only the rotation part, for directions such as normals.
func (a Affine) Rotate(v vec3.T) vec3.T {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	return vec3.T{
		float32(a.R[0]*x + a.R[1]*y + a.R[2]*z),
		float32(a.R[3]*x + a.R[4]*y + a.R[5]*z),
		float32(a.R[6]*x + a.R[7]*y + a.R[8]*z),
	}
}

// Apply transforms a point.
func (a Affine) Apply(p vec3.T) vec3.T {
	r := a.Rotate(p)
	return vec3.T{r[0] + float32(a.T[0]), r[1] + float32(a.T[1]), r[2] + float32(a.T[2])}
}

// Translation returns the transformed origin.
func (a Affine) Translation() vec3.T {
	return vec3.T{float32(a.T[0]), float32(a.T[1]), float32(a.T[2])}
}

// fromEuler builds the rotation the container stores as Euler XYZ angles,
// going through a quaternion the way the game client does.
func fromEuler(rx, ry, rz float64) [9]float64 {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	x := sx*cy*cz - cx*sy*sz
	y := cx*sy*cz + sx*cy*sz
	z := cx*cy*sz - sx*sy*cz
	w := cx*cy*cz + sx*sy*sz

	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// WorldTransforms returns the model-space bind transform of every joint.
// Parents must precede their children; a joint whose parent does not is
// treated as a root. Dummy joints get the identity.
func WorldTransforms(joints []Joint) []Affine {
	worlds := make([]Affine, len(joints))
	for i, j := range joints {
		if j.Dummy {
			worlds[i] = Identity
			continue
		}
		local := Affine{R: fromEuler(j.Rotation[0], j.Rotation[1], j.Rotation[2]), T: j.Position}
		if j.Parent >= 0 && j.Parent < i {
			worlds[i] = worlds[j.Parent].Then(local)
		} else {
			worlds[i] = local
		}
	}
	return worlds
}
