// Package palette builds minimal bone palettes and remaps per-vertex weight
// indices against them.
package palette

import (
	"fmt"
	"slices"

	"aqua-mesh-prep/internal/mesh"
)

// Accumulator collects bone ids across one or more streams. Ids are indexed
// in first-seen order until Finalize sorts them.
type Accumulator struct {
	ids   []uint16
	index map[uint16]int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{index: make(map[uint16]int)}
}

// Observe registers id and returns its current position.
func (a *Accumulator) Observe(id uint16) int {
	if i, ok := a.index[id]; ok {
		return i
	}
	a.ids = append(a.ids, id)
	a.index[id] = len(a.ids) - 1
	return len(a.ids) - 1
}

// Finalize sorts the collected ids ascending and reassigns positions.
func (a *Accumulator) Finalize() {
	slices.Sort(a.ids)
	for i, id := range a.ids {
		a.index[id] = i
	}
}

// Index returns the position of id.
func (a *Accumulator) Index(id uint16) (int, bool) {
	i, ok := a.index[id]
	return i, ok
}

// IDs returns a copy of the collected ids in position order.
func (a *Accumulator) IDs() []uint16 {
	return slices.Clone(a.ids)
}

// Len returns the number of distinct ids observed.
func (a *Accumulator) Len() int {
	return len(a.ids)
}

// Result summarizes one canonicalization.
type Result struct {
	Palette    []uint16
	Duplicates int  // slots zeroed because their bone repeated within a vertex
	Empty      bool // no bone was referenced; nothing was changed
}

// zeroed marks a slot collapsed onto palette slot 0.
const zeroed = -1

// resolved holds one stream's slot bone ids between the two passes.
type resolved struct {
	s    *mesh.VertexStream
	ids  [][4]int32
	dups int
}

// boneID resolves a weight slot through pal. An empty palette means the
// slot already holds the bone id.
func boneID(pal []uint16, idx uint16) (uint16, bool) {
	if len(pal) == 0 {
		return idx, true
	}
	if int(idx) >= len(pal) {
		return 0, false
	}
	return pal[idx], true
}

// resolve is the first pass: it maps every slot through pal, drops repeated
// bones within a vertex and feeds the survivors to acc. Nothing is written
// to the stream.
func resolve(s *mesh.VertexStream, pal []uint16, acc *Accumulator) (*resolved, error) {
	r := &resolved{s: s, ids: make([][4]int32, len(s.WeightIndices))}
	for v, slots := range s.WeightIndices {
		var seen [4]uint16
		nSeen := 0
		for k, idx := range slots {
			id, ok := boneID(pal, idx)
			if !ok {
				e := mesh.NewError(mesh.ErrIndexOutOfRange, fmt.Sprintf("weight slot %d = %d, palette has %d bones", k, idx, len(pal)))
				e.Vertex = v
				return nil, e
			}
			if slices.Contains(seen[:nSeen], id) {
				r.ids[v][k] = zeroed
				r.dups++
				continue
			}
			seen[nSeen] = id
			nSeen++
			acc.Observe(id)
			r.ids[v][k] = int32(id)
		}
	}
	return r, nil
}

// apply is the second pass: slots are rewritten to positions in the
// finalized accumulator.
func (r *resolved) apply(acc *Accumulator) {
	for v := range r.ids {
		for k, id := range r.ids[v] {
			if id == zeroed {
				r.s.WeightIndices[v][k] = 0
				continue
			}
			i, _ := acc.Index(uint16(id))
			r.s.WeightIndices[v][k] = uint16(i)
		}
	}
}

// Canonicalize rewrites s so that its palette holds only the bones its
// weight indices reference, sorted ascending, and every slot indexes into
// that palette. fallback is used when the stream has no palette of its own;
// when both are empty the weight indices are taken as bone ids.
func Canonicalize(s *mesh.VertexStream, fallback []uint16) (Result, error) {
	pal := s.BonePalette
	if len(pal) == 0 {
		pal = fallback
	}

	acc := NewAccumulator()
	r, err := resolve(s, pal, acc)
	if err != nil {
		return Result{}, fmt.Errorf("palette: %w", err)
	}
	if acc.Len() == 0 {
		s.BonePalette = nil
		return Result{Empty: true}, nil
	}

	acc.Finalize()
	r.apply(acc)
	s.BonePalette = acc.IDs()
	return Result{Palette: s.BonePalette, Duplicates: r.dups}, nil
}

// CanonicalizeModel builds one palette for the whole model. Every skinned
// stream is resolved first, the union is sorted, and then every stream is
// remapped against it. Stream palettes are cleared afterwards so the model
// palette is the one they resolve against.
func CanonicalizeModel(m *mesh.Model) (Result, error) {
	acc := NewAccumulator()
	var passes []*resolved
	dups := 0
	for si, s := range m.Streams {
		if !s.Skinned() {
			continue
		}
		r, err := resolve(s, m.PaletteFor(si), acc)
		if err != nil {
			if e, ok := err.(*mesh.Error); ok {
				e.Stream = si
			}
			return Result{}, fmt.Errorf("palette: %w", err)
		}
		passes = append(passes, r)
		dups += r.dups
	}
	if acc.Len() == 0 {
		return Result{Empty: true}, nil
	}

	acc.Finalize()
	for _, r := range passes {
		r.apply(acc)
		r.s.BonePalette = nil
	}
	m.BonePalette = acc.IDs()
	return Result{Palette: m.BonePalette, Duplicates: dups}, nil
}

// Union returns the sorted distinct bone ids referenced by the given
// vertices of s, resolved through pal. An empty pal takes indices as ids.
func Union(s *mesh.VertexStream, pal []uint16, verts []uint32) ([]uint16, error) {
	if !s.Skinned() {
		return nil, nil
	}
	acc := NewAccumulator()
	for _, v := range verts {
		for k, idx := range s.WeightIndices[v] {
			id, ok := boneID(pal, idx)
			if !ok {
				e := mesh.NewError(mesh.ErrIndexOutOfRange, fmt.Sprintf("weight slot %d = %d, palette has %d bones", k, idx, len(pal)))
				e.Vertex = int(v)
				return nil, fmt.Errorf("palette: %w", e)
			}
			acc.Observe(id)
		}
	}
	acc.Finalize()
	return acc.IDs(), nil
}
