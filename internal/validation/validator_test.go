package validation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mediaforge/internal/config"
	"mediaforge/internal/logging"
	"mediaforge/internal/queue"
	"mediaforge/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	return &cfg
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Minimal valid PNG header plus IHDR; enough for sniffing.
var pngHeader = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0, 0, 0, 13, 'I', 'H', 'D', 'R',
	0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0,
}

func TestValidatorAcceptsPNG(t *testing.T) {
	cfg := testConfig(t)
	v := NewValidator(cfg, nil, logging.NewNop())
	item := &queue.Item{File: writeFile(t, t.TempDir(), "a.png", pngHeader)}
	if err := v.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if item.MimeType != "image/png" {
		t.Fatalf("expected image/png, got %q", item.MimeType)
	}
}

func TestValidatorRejectsEmptyFile(t *testing.T) {
	cfg := testConfig(t)
	v := NewValidator(cfg, nil, logging.NewNop())
	item := &queue.Item{File: writeFile(t, t.TempDir(), "empty.png", nil)}
	err := v.Execute(context.Background(), item)
	if services.ErrorKind(err) != services.KindEmptyFile {
		t.Fatalf("expected empty_file kind, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("validation failures must not be retryable")
	}
}

func TestValidatorRejectsOversizeFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Validation.MaxFileSizeMiB = 1
	data := make([]byte, 2<<20)
	copy(data, pngHeader)
	v := NewValidator(cfg, nil, logging.NewNop())
	item := &queue.Item{File: writeFile(t, t.TempDir(), "big.png", data)}
	err := v.Execute(context.Background(), item)
	if services.ErrorKind(err) != services.KindSizeAboveLimit {
		t.Fatalf("expected size_above_limit kind, got %v", err)
	}
}

func TestValidatorRejectsUnsupportedMime(t *testing.T) {
	cfg := testConfig(t)
	cfg.Validation.AllowedMimeTypes = []string{"image/png"}
	v := NewValidator(cfg, nil, logging.NewNop())
	item := &queue.Item{File: writeFile(t, t.TempDir(), "doc.txt", []byte("plain text content"))}
	err := v.Execute(context.Background(), item)
	if services.ErrorKind(err) != services.KindMimeUnsupported {
		t.Fatalf("expected mime_type_not_supported kind, got %v", err)
	}
}

func TestValidatorRejectsUserDisallowedMime(t *testing.T) {
	cfg := testConfig(t)
	cfg.Validation.AllowedMimeTypes = []string{"image/png", "image/jpeg"}
	cfg.Validation.UserMimeTypes = []string{"image/jpeg"}
	v := NewValidator(cfg, nil, logging.NewNop())
	item := &queue.Item{File: writeFile(t, t.TempDir(), "a.png", pngHeader)}
	err := v.Execute(context.Background(), item)
	if services.ErrorKind(err) != services.KindMimeNotAllowed {
		t.Fatalf("expected mime_type_not_allowed_for_user kind, got %v", err)
	}
}

func TestValidatorHealthCheck(t *testing.T) {
	cfg := testConfig(t)
	v := NewValidator(cfg, nil, logging.NewNop())
	if health := v.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}

	cfg.Validation.AllowedMimeTypes = nil
	v = NewValidator(cfg, nil, logging.NewNop())
	if health := v.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy stage with empty allow-list")
	}
}
