package split

import (
	"fmt"
	"slices"
	"sync"

	"aqua-mesh-prep/internal/mesh"
	"aqua-mesh-prep/internal/palette"
	"aqua-mesh-prep/internal/partition"
)

// Stats summarizes a Batch run.
type Stats struct {
	Meshes int // meshes present before the run
	Split  int // meshes that exceeded the limit
	Added  int // meshes appended by splitting
}

// Batch canonicalizes the palette of every mesh and splits the ones whose
// palette exceeds limit. Only meshes present when Batch starts are
// processed; meshes appended by a split are never split again in the same
// run.
//
// Canonicalization and split materialization run in mesh order. Partitions
// only read the model, so they are computed concurrently.
func Batch(m *mesh.Model, limit int, opts Options, rep *mesh.Report) (Stats, error) {
	if err := m.Validate(); err != nil {
		return Stats{}, fmt.Errorf("split: %w", err)
	}

	n := len(m.Meshes)
	st := Stats{Meshes: n}
	need := make([]bool, n)

	done := make(map[int]bool)
	for i := 0; i < n; i++ {
		si := m.Meshes[i].Stream
		if done[si] {
			continue
		}
		done[si] = true

		s := m.Streams[si]
		if len(s.BonePalette) == 0 && len(m.BonePalette) > 0 && s.Skinned() {
			s.BonePalette = slices.Clone(m.BonePalette)
		}
		res, err := palette.Canonicalize(s, nil)
		if err != nil {
			return st, fmt.Errorf("split: mesh %d: %w", i, err)
		}
		if res.Empty {
			rep.Notef(i, si, "no bones referenced, palette left empty")
		}
		if res.Duplicates > 0 {
			rep.Warnf(i, si, "%d duplicate weight slots zeroed", res.Duplicates)
		}
	}

	for i := 0; i < n; i++ {
		me := m.Meshes[i]
		s := m.Streams[me.Stream]
		local, err := palette.Union(s, s.BonePalette, referenced(m.Lists[me.List].Faces))
		if err != nil {
			return st, fmt.Errorf("split: mesh %d: %w", i, err)
		}
		m.Meshes[i].BonePalette = local
		need[i] = len(local) > limit
	}

	results := partitionAll(m, need, limit, opts.Workers)

	for i := 0; i < n; i++ {
		if !need[i] {
			continue
		}
		res := results[i]
		before := len(m.Meshes)
		if err := split(m, i, res.Groups, res.EdgeVertices, opts); err != nil {
			return st, err
		}
		st.Split++
		st.Added += len(m.Meshes) - before
		rep.Notef(i, -1, "split into %d meshes for a %d-bone limit", len(res.Groups), limit)
	}
	return st, nil
}

// referenced returns the distinct vertices faces use, in first-seen order.
func referenced(faces []mesh.Triangle) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for _, t := range faces {
		for _, v := range t {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// partitionAll runs Partition for every flagged mesh on a small worker pool.
func partitionAll(m *mesh.Model, need []bool, limit, workers int) []partition.Result {
	if workers < 1 {
		workers = 1
	}
	results := make([]partition.Result, len(need))

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				me := m.Meshes[i]
				s := m.Streams[me.Stream]
				bones := partition.VertexBones(s, m.PaletteFor(me.Stream))
				results[i] = partition.Partition(m.Lists[me.List].Faces, bones, limit)
			}
		}()
	}

	for i, ok := range need {
		if ok {
			jobs <- i
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
