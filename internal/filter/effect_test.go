package filter

import (
	"slices"
	"testing"

	"aqua-mesh-prep/internal/bmd"
)

func plane(tex string, size float32, verts int) bmd.Mesh {
	m := bmd.Mesh{TexPath: tex}
	for i := 0; i < verts; i++ {
		m.Verts = append(m.Verts, [3]float32{size * float32(i%2), size * float32(i/2%2), 0})
	}
	for i := 0; i+2 < verts && len(m.Faces) < verts; i++ {
		m.Faces = append(m.Faces, bmd.Face{Polygon: 3, VI: [4]int16{0, int16(i + 1), int16(i + 2)}})
	}
	return m
}

func TestIsEffect(t *testing.T) {
	cases := []struct {
		mesh bmd.Mesh
		want bool
	}{
		{plane(`Data\Item\Texture\sword_glow.jpg`, 100, 40), true},
		{plane("gra_01.tga", 100, 40), true},
		{plane("flame_red.ozt", 100, 40), true},
		{plane("requitalbox_flame_wood.jpg", 100, 40), false},
		{plane("armor.jpg", 100, 40), false},
		{plane("armor.jpg", 5, 4), true},   // small billboard
		{plane("armor.jpg", 50, 4), false}, // large decal
	}
	for _, c := range cases {
		if got := IsEffect(&c.mesh); got != c.want {
			t.Errorf("IsEffect(%s, %d verts) = %v, want %v", c.mesh.TexPath, len(c.mesh.Verts), got, c.want)
		}
	}
}

func TestDropEffects(t *testing.T) {
	f := &bmd.File{Meshes: []bmd.Mesh{
		plane("body.jpg", 100, 40),
		plane("aura.jpg", 100, 40),
		plane("head.jpg", 100, 40),
	}}
	dropped := DropEffects(f)
	if !slices.Equal(dropped, []string{"aura.jpg"}) {
		t.Fatalf("dropped = %v", dropped)
	}
	if len(f.Meshes) != 2 || f.Meshes[1].TexPath != "head.jpg" {
		t.Fatalf("meshes = %d", len(f.Meshes))
	}

	only := &bmd.File{Meshes: []bmd.Mesh{plane("glow.jpg", 1, 4)}}
	if DropEffects(only) != nil || len(only.Meshes) != 1 {
		t.Fatalf("all-effect file was emptied")
	}
}
