package bmd

// Face holds the polygon size and index quads into the vertex, normal and
// texcoord arrays. Polygon == 4 is a quad split as 0-1-2 and 0-2-3.
type Face struct {
	Polygon int
	VI      [4]int16
	NI      [4]int16
	TI      [4]int16
}

// Mesh is one sub-mesh of a BMD file as stored on disk. Positions and
// normals are relative to the bone named by Nodes.
type Mesh struct {
	Texture int
	Verts   [][3]float32
	Nodes   []int16 // bone per vertex
	Normals [][3]float32
	UVs     [][2]float32
	Faces   []Face
	TexPath string
}

// Bone is the bind pose of one skeleton bone: the first key of the first
// action.
type Bone struct {
	Name         string
	Parent       int
	IsDummy      bool
	BindPosition [3]float64
	BindRotation [3]float64 // Euler XYZ radians
}

// File is a decoded BMD model.
type File struct {
	Name    string
	Version byte
	Meshes  []Mesh
	Bones   []Bone
}
