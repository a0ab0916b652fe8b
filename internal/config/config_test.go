package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meshprep.json")
	data := `{"input_dir": "models", "output_dir": "out", "bone_limit": 24, "global_palette": true, "preview_format": "tga"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Resolve(Flags{Workers: 3})
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.OutputDir != filepath.Join("models", "out") || cfg.TextureDir != "models" {
		t.Fatalf("output dir = %q", cfg.OutputDir)
	}
	if cfg.BoneLimit != 24 || cfg.Workers != 3 || cfg.PreviewFormat != "tga" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Compression != "zstd" || cfg.PreviewSize != 256 || cfg.Supersample != 2 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	opts := cfg.Pipeline()
	if opts.BoneLimit != 24 || !opts.GlobalPalette || opts.Workers != 3 {
		t.Fatalf("pipeline options = %+v", opts)
	}
}

func TestResolve_FlagsWin(t *testing.T) {
	cfg := Config{BoneLimit: 24, OutputDir: "out"}
	cfg.Resolve(Flags{InputDir: "in", OutputDir: "/tmp/x", BoneLimit: 8, Preview: true})
	if cfg.BoneLimit != 8 || cfg.OutputDir != "/tmp/x" || !cfg.Preview {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestNoSplit(t *testing.T) {
	cfg := Config{NoSplit: true}
	cfg.Resolve(Flags{})
	if cfg.Pipeline().BoneLimit != 0 {
		t.Fatalf("splitting not disabled")
	}
	if cfg.OutputDir != "prepared" {
		t.Fatalf("output dir = %q", cfg.OutputDir)
	}
}

func TestValidate(t *testing.T) {
	for _, cfg := range []Config{
		{BoneLimit: -1, Compression: "zstd", PreviewFormat: "webp"},
		{BoneLimit: 16, Compression: "lz4", PreviewFormat: "webp"},
		{BoneLimit: 16, Compression: "zstd", PreviewFormat: "gif"},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("accepted %+v", cfg)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
