package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange marks an index that points outside its target array.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrLengthMismatch marks a per-vertex array whose length differs from
	// the stream's vertex count.
	ErrLengthMismatch = errors.New("attribute length mismatch")
)

// Error is a precondition violation with enough context to find the
// offending data. Unset fields are -1.
type Error struct {
	Mesh     int
	Stream   int
	Triangle int
	Vertex   int
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	msg := "mesh"
	if e.Mesh >= 0 {
		msg += fmt.Sprintf(" %d", e.Mesh)
	}
	if e.Stream >= 0 {
		msg += fmt.Sprintf(" stream %d", e.Stream)
	}
	if e.Triangle >= 0 {
		msg += fmt.Sprintf(" triangle %d", e.Triangle)
	}
	if e.Vertex >= 0 {
		msg += fmt.Sprintf(" vertex %d", e.Vertex)
	}
	msg += ": "
	if e.Detail != "" {
		msg += e.Detail + ": "
	}
	return msg + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError returns an Error with every location field unset.
func NewError(err error, detail string) *Error {
	return &Error{Mesh: -1, Stream: -1, Triangle: -1, Vertex: -1, Detail: detail, Err: err}
}

// Validate checks the structural preconditions every stage relies on:
// mesh slots point at existing lists and streams, triangle indices are
// within their stream, and required per-vertex arrays match the vertex
// count. Normals, tangents and binormals are not checked; the tangent
// builder rebuilds them when their length is off.
func (m *Model) Validate() error {
	for si, s := range m.Streams {
		if s == nil {
			e := NewError(ErrIndexOutOfRange, "nil stream")
			e.Stream = si
			return e
		}
		if err := s.validate(); err != nil {
			err.Stream = si
			return err
		}
	}
	for mi, me := range m.Meshes {
		if me.Stream < 0 || me.Stream >= len(m.Streams) {
			e := NewError(ErrIndexOutOfRange, fmt.Sprintf("stream slot %d of %d", me.Stream, len(m.Streams)))
			e.Mesh = mi
			return e
		}
		if me.List < 0 || me.List >= len(m.Lists) || m.Lists[me.List] == nil {
			e := NewError(ErrIndexOutOfRange, fmt.Sprintf("list slot %d of %d", me.List, len(m.Lists)))
			e.Mesh = mi
			return e
		}
		n := uint32(m.Streams[me.Stream].Len())
		for ti, t := range m.Lists[me.List].Faces {
			for _, v := range t {
				if v >= n {
					e := NewError(ErrIndexOutOfRange, fmt.Sprintf("%d vertices", n))
					e.Mesh = mi
					e.Stream = me.Stream
					e.Triangle = ti
					e.Vertex = int(v)
					return e
				}
			}
		}
	}
	return nil
}

func (s *VertexStream) validate() *Error {
	n := s.Len()
	check := func(name string, l int) *Error {
		if l != 0 && l != n {
			return NewError(ErrLengthMismatch, fmt.Sprintf("%s has %d entries for %d vertices", name, l, n))
		}
		return nil
	}
	if err := check("colors", len(s.Colors)); err != nil {
		return err
	}
	if err := check("colors2", len(s.Colors2)); err != nil {
		return err
	}
	for i, set := range s.UVs {
		if err := check(fmt.Sprintf("uv%d", i), len(set)); err != nil {
			return err
		}
	}
	if err := check("weights", len(s.Weights)); err != nil {
		return err
	}
	if err := check("weight indices", len(s.WeightIndices)); err != nil {
		return err
	}
	for _, v := range s.EdgeVertices {
		if int(v) >= n {
			e := NewError(ErrIndexOutOfRange, "edge vertex")
			e.Vertex = int(v)
			return e
		}
	}
	return nil
}
