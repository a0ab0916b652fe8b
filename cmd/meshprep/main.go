package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aqua-mesh-prep/internal/batch"
	"aqua-mesh-prep/internal/config"
	"aqua-mesh-prep/internal/snapshot"
	"aqua-mesh-prep/internal/texture"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	inputDir := flag.String("input", "", "Directory holding .bmd/.aqms models (default: .)")
	outputDir := flag.String("output", "", "Output directory (default: <input>/prepared)")
	boneLimit := flag.Int("bones", 0, "Maximum bones per mesh (default: 16)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	previewFmt := flag.String("preview-format", "", "Preview image format: webp or tga (default: webp)")
	withPreview := flag.Bool("preview", false, "Write a preview image per model")
	withSnapshot := flag.Bool("snapshot", false, "Write the prepared model as .aqms")
	testN := flag.Int("test", 0, "Process only the first N models")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:      *inputDir,
		OutputDir:     *outputDir,
		BoneLimit:     *boneLimit,
		Workers:       *workers,
		PreviewFormat: *previewFmt,
		Preview:       *withPreview,
		Snapshot:      *withSnapshot,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	comp, _ := snapshot.ParseCompression(cfg.Compression)

	files, err := batch.Discover(cfg.InputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing models: %v\n", err)
		os.Exit(1)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(files) {
		files = files[:*testN]
	}

	if len(files) == 0 {
		fmt.Println("No models to prepare.")
		os.Exit(0)
	}

	// Build texture index
	var textures texture.Resolver
	if cfg.EmbedTextures {
		texIndex := texture.BuildIndex(cfg.TextureDir)
		textures = texture.NewCache(texIndex)
		fmt.Printf("Textures: %d indexed\n", texIndex.Len())
	}

	limit := fmt.Sprintf("%d bones", cfg.BoneLimit)
	if cfg.NoSplit {
		limit = "no split"
	}
	fmt.Println("Skinned mesh preparation")
	fmt.Printf("Models: %d, Workers: %d, Limit: %s\n", len(files), cfg.Workers, limit)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	batchCfg := batch.Config{
		InputDir:      cfg.InputDir,
		OutputDir:     cfg.OutputDir,
		Pipeline:      cfg.Pipeline(),
		Textures:      textures,
		SkipEffects:   cfg.SkipEffects,
		Snapshot:      cfg.Snapshot,
		Compression:   comp,
		Preview:       cfg.Preview,
		PreviewFormat: cfg.PreviewFormat,
		PreviewSize:   cfg.PreviewSize,
		Supersample:   cfg.Supersample,
		Workers:       cfg.Workers,
	}

	results := batch.Run(batchCfg, files)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, added, warnings := 0, 0, 0
	var failed []batch.Result
	for _, r := range results {
		warnings += r.Warnings
		if r.Success {
			success++
			added += r.Added
		} else {
			failed = append(failed, r)
		}
	}

	fmt.Printf("Prepared: %d/%d (%d meshes added, %d warnings)\n", success, len(files), added, warnings)

	if len(failed) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failed))
		for _, r := range failed[:min(len(failed), 20)] {
			fmt.Printf("  %s: %s\n", r.Name, r.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if len(failed) > 0 {
		os.Exit(1)
	}
}
