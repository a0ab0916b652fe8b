package mesh

// ElementKind identifies one vertex attribute in the engine's vertex layout.
// Values match the container's element tags.
type ElementKind int

const (
	ElemPosition    ElementKind = 0x0
	ElemWeight      ElementKind = 0x1
	ElemNormal      ElementKind = 0x2
	ElemColor       ElementKind = 0x3
	ElemColor2      ElementKind = 0x4
	ElemWeightIndex ElementKind = 0xb
	ElemUV1         ElementKind = 0x10
	ElemTangent     ElementKind = 0x20
	ElemBinormal    ElementKind = 0x21
)

// Element is one attribute slot within a vertex.
type Element struct {
	Kind   ElementKind
	Offset int
	Size   int
}

// Layout describes how a stream's vertices are packed.
type Layout struct {
	Elements []Element
	Stride   int
}

// Has reports whether the layout contains kind.
func (l Layout) Has(kind ElementKind) bool {
	for _, e := range l.Elements {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// LayoutOf derives the packed vertex layout from the attributes present in s.
// Element order follows the container: position, weights, normal, colors,
// weight indices, UV sets, tangent, binormal.
func LayoutOf(s *VertexStream) Layout {
	var l Layout
	add := func(kind ElementKind, size int) {
		l.Elements = append(l.Elements, Element{Kind: kind, Offset: l.Stride, Size: size})
		l.Stride += size
	}

	if len(s.Positions) > 0 {
		add(ElemPosition, 12)
	}
	if len(s.Weights) > 0 {
		add(ElemWeight, 16)
	}
	if len(s.Normals) > 0 {
		add(ElemNormal, 12)
	}
	if len(s.Colors) > 0 {
		add(ElemColor, 4)
	}
	if len(s.Colors2) > 0 {
		add(ElemColor2, 4)
	}
	if len(s.WeightIndices) > 0 {
		add(ElemWeightIndex, 4)
	}
	for i, set := range s.UVs {
		if len(set) > 0 && i < 4 {
			add(ElemUV1+ElementKind(i), 8)
		}
	}
	if len(s.Tangents) > 0 {
		add(ElemTangent, 12)
	}
	if len(s.Binormals) > 0 {
		add(ElemBinormal, 12)
	}
	return l
}
