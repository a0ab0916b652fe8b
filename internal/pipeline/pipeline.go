// Package pipeline runs the mesh preparation stages in their fixed order.
package pipeline

import (
	"fmt"

	"aqua-mesh-prep/internal/mesh"
	"aqua-mesh-prep/internal/palette"
	"aqua-mesh-prep/internal/split"
	"aqua-mesh-prep/internal/tangent"
)

// Options selects which stages run and how.
type Options struct {
	BoneLimit      int // 0 disables splitting
	ForceDuplicate bool
	GlobalPalette  bool
	UseFaceNormals bool
	FlipUV         bool
	Workers        int
}

// Prepare validates m, splits meshes over the bone budget, optionally merges
// every palette into one global palette and rebuilds the tangent frame. The
// report is returned even when a stage fails.
func Prepare(m *mesh.Model, opts Options) (*mesh.Report, error) {
	rep := &mesh.Report{}
	if err := m.Validate(); err != nil {
		return rep, fmt.Errorf("pipeline: %w", err)
	}

	if opts.BoneLimit > 0 {
		st, err := split.Batch(m, opts.BoneLimit, split.Options{
			ForceDuplicate: opts.ForceDuplicate,
			Workers:        opts.Workers,
		}, rep)
		if err != nil {
			return rep, fmt.Errorf("pipeline: %w", err)
		}
		if st.Added > 0 {
			rep.Notef(-1, -1, "%d of %d meshes split, %d added", st.Split, st.Meshes, st.Added)
		}
	}

	if opts.GlobalPalette {
		res, err := palette.CanonicalizeModel(m)
		if err != nil {
			return rep, fmt.Errorf("pipeline: %w", err)
		}
		if res.Empty {
			rep.Notef(-1, -1, "no bones referenced, global palette unchanged")
		} else if res.Duplicates > 0 {
			rep.Warnf(-1, -1, "%d duplicate weight slots zeroed", res.Duplicates)
		}
	}

	err := tangent.Compute(m, tangent.Options{
		UseFaceNormals: opts.UseFaceNormals,
		FlipUV:         opts.FlipUV,
	}, rep)
	if err != nil {
		return rep, fmt.Errorf("pipeline: %w", err)
	}

	m.Refresh()
	return rep, nil
}
