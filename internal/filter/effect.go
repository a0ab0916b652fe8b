// Package filter recognizes overlay meshes that carry no skinned geometry
// worth preparing, such as glow and aura planes.
package filter

import (
	"path/filepath"
	"regexp"
	"strings"

	"aqua-mesh-prep/internal/bmd"
)

var gradientRE = regexp.MustCompile(`^(?:mini_|hangul)?gra(?:\d|_|$)`)

// effectPatterns match anywhere in the texture stem.
var effectPatterns = []string{
	"glow", "flare", "chrome", "effect",
	"aura", "shiny", "spark", "fire", "blur",
	"elec_light", "arrowlight", "lighting_mega", "pin_star",
	"lightmarks", "light_blue", "light_red",
	"energy", "plasma", "shine", "halo", "trail",
	"gradation", "sdblight", "alpha_line", "4x4", "damage",
	"ground_wind", "ground_star", "line_of_big",
	"force", "runeset",
	"shockwave", "swordeff",
	"cursorpin", "empact", "circle_shield",
	"arrowbom", "raypiece",
}

// effectPrefixes only match at the start of the stem; "flame" alone would
// catch wooden frames.
var effectPrefixes = []string{"flame"}

// Small billboards: at most this many vertices and faces, and no wider
// than maxBillboardSpan units.
const (
	maxBillboardVerts = 8
	maxBillboardFaces = 4
	maxBillboardSpan  = 20
)

func textureStem(texPath string) string {
	base := filepath.Base(strings.ReplaceAll(strings.ToLower(texPath), "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsEffect reports whether m is an effect overlay, judged by its texture
// name or by being a small billboard.
func IsEffect(m *bmd.Mesh) bool {
	stem := textureStem(m.TexPath)
	if gradientRE.MatchString(stem) {
		return true
	}
	for _, p := range effectPatterns {
		if strings.Contains(stem, p) {
			return true
		}
	}
	for _, p := range effectPrefixes {
		if strings.HasPrefix(stem, p) {
			return true
		}
	}

	nv := len(m.Verts)
	if nv == 0 || nv > maxBillboardVerts || len(m.Faces) > maxBillboardFaces {
		return false
	}
	lo, hi := m.Verts[0], m.Verts[0]
	for _, v := range m.Verts[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], v[k])
			hi[k] = max(hi[k], v[k])
		}
	}
	for k := 0; k < 3; k++ {
		if hi[k]-lo[k] > maxBillboardSpan {
			return false
		}
	}
	return true
}

// DropEffects removes effect meshes from f and returns their texture paths.
// A file made only of effects is left untouched.
func DropEffects(f *bmd.File) []string {
	var keep []bmd.Mesh
	var dropped []string
	for i := range f.Meshes {
		if IsEffect(&f.Meshes[i]) {
			dropped = append(dropped, f.Meshes[i].TexPath)
			continue
		}
		keep = append(keep, f.Meshes[i])
	}
	if len(keep) == 0 {
		return nil
	}
	f.Meshes = keep
	return dropped
}
