package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"aqua-mesh-prep/internal/pipeline"
	"aqua-mesh-prep/internal/preview"
	"aqua-mesh-prep/internal/snapshot"
)

// Config holds input/output locations and preparation settings.
type Config struct {
	// Paths
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`

	// Preparation
	BoneLimit      int  `json:"bone_limit"`
	NoSplit        bool `json:"no_split"`
	SkipEffects    bool `json:"skip_effects"`
	ForceDuplicate bool `json:"force_duplicate"`
	GlobalPalette  bool `json:"global_palette"`
	FaceNormals    bool `json:"face_normals"`
	FlipUV         bool `json:"flip_uv"`

	// Outputs
	EmbedTextures bool   `json:"embed_textures"`
	TextureDir    string `json:"texture_dir"`
	Snapshot      bool   `json:"snapshot"`
	Compression   string `json:"compression"`
	Preview       bool   `json:"preview"`
	PreviewFormat string `json:"preview_format"`
	PreviewSize   int    `json:"preview_size"`
	Supersample   int    `json:"supersample"`
	Workers       int    `json:"workers"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir      string
	OutputDir     string
	BoneLimit     int
	Workers       int
	PreviewFormat string
	Preview       bool
	Snapshot      bool
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.BoneLimit > 0 {
		c.BoneLimit = flags.BoneLimit
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.PreviewFormat != "" {
		c.PreviewFormat = flags.PreviewFormat
	}
	c.Preview = c.Preview || flags.Preview
	c.Snapshot = c.Snapshot || flags.Snapshot

	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, "prepared")
	} else if !filepath.IsAbs(c.OutputDir) && flags.OutputDir == "" {
		// Paths in the file are relative to the input directory.
		c.OutputDir = filepath.Join(c.InputDir, c.OutputDir)
	}

	if c.TextureDir == "" {
		c.TextureDir = c.InputDir
	} else if !filepath.IsAbs(c.TextureDir) {
		c.TextureDir = filepath.Join(c.InputDir, c.TextureDir)
	}

	if c.BoneLimit == 0 {
		c.BoneLimit = 16
	}
	if c.Compression == "" {
		c.Compression = "zstd"
	}
	if c.PreviewFormat == "" {
		c.PreviewFormat = "webp"
	}
	if c.PreviewSize <= 0 {
		c.PreviewSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate rejects settings no stage can honour.
func (c *Config) Validate() error {
	if c.BoneLimit < 0 {
		return fmt.Errorf("config: negative bone limit %d", c.BoneLimit)
	}
	if _, err := snapshot.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !slices.Contains(preview.Formats, c.PreviewFormat) {
		return fmt.Errorf("config: unknown preview format %q", c.PreviewFormat)
	}
	return nil
}

// Pipeline returns the preparation options the config describes.
func (c *Config) Pipeline() pipeline.Options {
	limit := c.BoneLimit
	if c.NoSplit {
		limit = 0
	}
	return pipeline.Options{
		BoneLimit:      limit,
		ForceDuplicate: c.ForceDuplicate,
		GlobalPalette:  c.GlobalPalette,
		UseFaceNormals: c.FaceNormals,
		FlipUV:         c.FlipUV,
		Workers:        c.Workers,
	}
}
