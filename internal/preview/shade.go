package preview

import "math"

// light is a fixed key plus rim setup; shading is flat per face.
type light struct {
	key, rim, half [3]float64
	ambient        float64
	hemi           float64
	direct         float64
	rimAmount      float64
	specular       float64
	specPower      float64
	exposure       float64
}

func normalize3(v [3]float64) [3]float64 {
	l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return v
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func defaultLight() light {
	key := normalize3([3]float64{180, 260, 140})
	view := normalize3([3]float64{0, -110, -400})
	return light{
		key:       key,
		rim:       normalize3([3]float64{-160, 130, -210}),
		half:      normalize3([3]float64{key[0] - view[0], key[1] - view[1], key[2] - view[2]}),
		ambient:   0.55,
		hemi:      0.50,
		direct:    1.50,
		rimAmount: 0.60,
		specular:  0.45,
		specPower: 12,
		exposure:  1.05,
	}
}

// shade returns the light scalar for a unit face normal. Faces are lit from
// both sides.
func (l *light) shade(n [3]float64) float64 {
	hemi := (1-math.Abs(n[1]))*0.5 + 0.5
	spec := math.Pow(math.Max(dot3(n, l.half), 0), l.specPower) * l.specular
	return l.ambient + hemi*l.hemi + math.Abs(dot3(n, l.key))*l.direct + math.Abs(dot3(n, l.rim))*l.rimAmount + spec
}

// tonemap maps a linear colour channel through ACES filmic and back to sRGB.
func tonemap(linear float64) uint8 {
	x := (linear * (2.51*linear + 0.03)) / (linear*(2.43*linear+0.59) + 0.14)
	return clamp255(math.Pow(x, 1/2.2) * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
