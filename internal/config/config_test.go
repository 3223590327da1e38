package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Workflow.TranscodeConcurrency != defaultTranscodeConcurrency {
		t.Fatalf("unexpected concurrency default: %d", cfg.Workflow.TranscodeConcurrency)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if !cfg.Preferences.OptimizeOnUpload {
		t.Fatal("expected optimize_on_upload default to be true")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[preferences]
require_approval = true
image_library = "vips"

[workflow]
transcode_concurrency = 1

[validation]
max_file_size_mib = 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if !cfg.Preferences.RequireApproval {
		t.Fatal("expected require_approval override")
	}
	if cfg.Preferences.ImageLibrary != "vips" {
		t.Fatalf("expected vips image library, got %q", cfg.Preferences.ImageLibrary)
	}
	if cfg.Workflow.TranscodeConcurrency != 1 {
		t.Fatalf("expected concurrency 1, got %d", cfg.Workflow.TranscodeConcurrency)
	}
	if cfg.MaxFileSizeBytes() != 1<<20 {
		t.Fatalf("expected 1 MiB limit, got %d", cfg.MaxFileSizeBytes())
	}
}

func TestValidateRejectsBadImageLibrary(t *testing.T) {
	cfg := Default()
	cfg.Preferences.ImageLibrary = "magick"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown image library")
	}
}

func TestValidateRejectsDuplicateThumbnailNames(t *testing.T) {
	cfg := Default()
	cfg.Thumbnails.Sizes = append(cfg.Thumbnails.Sizes, ThumbnailSize{Name: "thumbnail", Width: 10})
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for duplicate size name")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.ScratchDir = filepath.Join(dir, "scratch")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.QueuePath = filepath.Join(dir, "queue", "queue.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(cfg.Paths.QueuePath)); err != nil || !info.IsDir() {
		t.Fatal("expected queue database directory")
	}
	for _, p := range []string{cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory at %s", p)
		}
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config should parse: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Preferences.ImageLibrary != "imaging" {
		t.Fatalf("unexpected image library in sample: %q", cfg.Preferences.ImageLibrary)
	}
}
