package main

import (
	"flag"
	"fmt"
	"os"

	"aqua-mesh-prep/internal/batch"
	"aqua-mesh-prep/internal/mesh"
	"aqua-mesh-prep/internal/pipeline"
)

var elementNames = map[mesh.ElementKind]string{
	mesh.ElemPosition:    "pos",
	mesh.ElemWeight:      "weight",
	mesh.ElemNormal:      "normal",
	mesh.ElemColor:       "color",
	mesh.ElemColor2:      "color2",
	mesh.ElemWeightIndex: "windex",
	mesh.ElemUV1:         "uv1",
	mesh.ElemUV1 + 1:     "uv2",
	mesh.ElemUV1 + 2:     "uv3",
	mesh.ElemUV1 + 3:     "uv4",
	mesh.ElemTangent:     "tangent",
	mesh.ElemBinormal:    "binormal",
}

func main() {
	prepare := flag.Bool("prepare", false, "Run the preparation pipeline before printing")
	boneLimit := flag.Int("bones", 16, "Maximum bones per mesh with -prepare")
	skipEffects := flag.Bool("skip-effects", false, "Drop glow and aura overlay meshes from BMD input")
	flag.Parse()

	status := 0
	for _, arg := range flag.Args() {
		m, dropped, err := batch.Load(arg, *skipEffects)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Load error %s: %v\n", arg, err)
			status = 1
			continue
		}
		for _, tex := range dropped {
			fmt.Printf("  dropped effect mesh %s\n", tex)
		}
		if *prepare {
			rep, err := pipeline.Prepare(m, pipeline.Options{BoneLimit: *boneLimit, Workers: 1})
			for _, d := range rep.Items {
				fmt.Printf("  %s\n", d)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Prepare error %s: %v\n", arg, err)
				status = 1
				continue
			}
		} else {
			m.Refresh()
		}
		printModel(arg, m)
	}
	os.Exit(status)
}

func printModel(name string, m *mesh.Model) {
	fmt.Printf("\n=== %s (version=%#x meshes=%d streams=%d lists=%d bones=%d) ===\n",
		name, uint32(m.Version), len(m.Meshes), len(m.Streams), len(m.Lists), len(m.Bones))
	if len(m.BonePalette) > 0 {
		fmt.Printf("global palette: %d bones\n", len(m.BonePalette))
	}

	fmt.Println("--- MESHES ---")
	for i, me := range m.Meshes {
		fmt.Printf("  Mesh[%d] %s: stream=%d list=%d tris=%d local bones=%v\n",
			i, me.Name, me.Stream, me.List, len(m.Lists[me.List].Faces), me.BonePalette)
	}

	fmt.Println("--- STREAMS ---")
	for i, s := range m.Streams {
		var elems []string
		for _, e := range m.Layouts[i].Elements {
			elems = append(elems, elementNames[e.Kind])
		}
		fmt.Printf("  Stream[%d]: verts=%d palette=%d edge=%d stride=%d %v\n",
			i, s.Len(), len(s.BonePalette), len(s.EdgeVertices), m.Layouts[i].Stride, elems)
	}

	fmt.Println("--- PARTITIONS ---")
	for i, p := range m.Partitions {
		fmt.Printf("  List[%d]: start=%d count=%d\n", i, p.IndexStart, p.IndexCount)
	}
	fmt.Printf("largest stride: %d\n", m.LargestStride)
}
