// Package batch prepares every model file in a directory on a worker pool.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aqua-mesh-prep/internal/bmd"
	"aqua-mesh-prep/internal/filter"
	"aqua-mesh-prep/internal/gltfexport"
	"aqua-mesh-prep/internal/mesh"
	"aqua-mesh-prep/internal/pipeline"
	"aqua-mesh-prep/internal/preview"
	"aqua-mesh-prep/internal/snapshot"
	"aqua-mesh-prep/internal/texture"
)

// Config holds all shared settings for a batch run.
type Config struct {
	InputDir  string
	OutputDir string
	Pipeline  pipeline.Options
	// Textures, when set, embeds material textures in the glTF output.
	Textures texture.Resolver
	// SkipEffects drops glow and aura overlay meshes from BMD input.
	SkipEffects bool

	Snapshot    bool
	Compression snapshot.Compression

	Preview       bool
	PreviewFormat string
	PreviewSize   int
	Supersample   int

	Workers int
}

// Result holds the outcome of processing one model file.
type Result struct {
	Name        string
	Meshes      int // meshes after preparation
	Added       int // meshes created by splitting
	Warnings    int
	Diagnostics []string
	Outputs     []string // paths relative to the output directory
	Success     bool
	Error       string
}

// Extensions lists the input file types Discover picks up.
var Extensions = []string{".bmd", ".aqms"}

// Discover returns the model files directly inside dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Run processes all files using a worker pool.
func Run(cfg Config, files []string) []Result {
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f models/sec\n", p, total, rate)
				}
			}
		}
	}()

	workers := max(cfg.Workers, 1)
	// Each file already gets its own goroutine.
	cfg.Pipeline.Workers = 1

	fileChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				results[idx] = processFile(cfg, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	return results
}

// Load reads a model from a .bmd or .aqms file. With skipEffects, effect
// overlay meshes of BMD input are dropped and their textures returned.
func Load(path string, skipEffects bool) (*mesh.Model, []string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmd":
		f, err := bmd.Parse(path)
		if err != nil {
			return nil, nil, err
		}
		var dropped []string
		if skipEffects {
			dropped = filter.DropEffects(f)
		}
		m, err := bmd.ToModel(f)
		return m, dropped, err
	case ".aqms":
		m, err := snapshot.Load(path)
		return m, nil, err
	default:
		return nil, nil, fmt.Errorf("batch: unsupported model file %s", filepath.Base(path))
	}
}

func processFile(cfg Config, name string) Result {
	res := Result{Name: name}
	fail := func(err error) Result {
		res.Error = err.Error()
		return res
	}

	m, dropped, err := Load(filepath.Join(cfg.InputDir, name), cfg.SkipEffects)
	if err != nil {
		return fail(err)
	}
	for _, tex := range dropped {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("note: dropped effect mesh %s", tex))
	}
	if len(m.Meshes) == 0 {
		return fail(fmt.Errorf("no meshes in %s", name))
	}

	before := len(m.Meshes)
	rep, err := pipeline.Prepare(m, cfg.Pipeline)
	for _, d := range rep.Items {
		res.Diagnostics = append(res.Diagnostics, d.String())
	}
	res.Warnings = rep.Warnings()
	if err != nil {
		return fail(err)
	}
	res.Meshes = len(m.Meshes)
	res.Added = len(m.Meshes) - before

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fail(err)
	}

	glb := stem + ".glb"
	if err := gltfexport.Save(filepath.Join(cfg.OutputDir, glb), m, cfg.Textures); err != nil {
		return fail(err)
	}
	res.Outputs = append(res.Outputs, glb)

	if cfg.Snapshot {
		out := stem + ".prepared.aqms"
		if err := snapshot.Save(filepath.Join(cfg.OutputDir, out), m, cfg.Compression); err != nil {
			return fail(err)
		}
		res.Outputs = append(res.Outputs, out)
	}

	if cfg.Preview {
		img := preview.Render(m, preview.Options{
			Size:         cfg.PreviewSize,
			Supersample:  cfg.Supersample,
			EdgeVertices: true,
		})
		out := stem + "." + cfg.PreviewFormat
		if err := preview.Save(filepath.Join(cfg.OutputDir, out), img, cfg.PreviewFormat); err != nil {
			return fail(fmt.Errorf("preview: %w", err))
		}
		res.Outputs = append(res.Outputs, out)
	}

	res.Success = true
	return res
}
