package codec

import (
	"errors"
	"testing"

	"mediaforge/internal/config"
)

func stubLookPath(t *testing.T, installed ...string) {
	t.Helper()
	set := make(map[string]bool, len(installed))
	for _, name := range installed {
		set[name] = true
	}
	original := lookPath
	lookPath = func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = original })
}

func TestRegistryImagingAlwaysAvailable(t *testing.T) {
	stubLookPath(t)
	r := NewRegistry(config.Codec{})
	if !r.Available(KindImaging) {
		t.Fatal("pure Go backend must always be available")
	}
	if r.Available(KindFFmpeg) {
		t.Fatal("ffmpeg should be unavailable without a binary")
	}
}

func TestRegistryProbesConfiguredBinary(t *testing.T) {
	stubLookPath(t, "ffmpeg6")
	r := NewRegistry(config.Codec{FFmpegBinary: "ffmpeg6"})
	if !r.Available(KindFFmpeg) {
		t.Fatal("expected configured ffmpeg binary to be found")
	}
}

func TestRegistryCachesBackends(t *testing.T) {
	r := NewRegistry(config.Codec{})
	first, err := r.Backend(KindImaging)
	if err != nil {
		t.Fatalf("Backend returned error: %v", err)
	}
	second, err := r.Backend(KindImaging)
	if err != nil {
		t.Fatalf("Backend returned error: %v", err)
	}
	if first != second {
		t.Fatal("expected the same backend instance on repeat lookups")
	}
}

func TestRegistryPickRoutesImage(t *testing.T) {
	stubLookPath(t, "vips")
	r := NewRegistry(config.Codec{})
	backend, err := r.Pick(TaskImage, "vips")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if backend.Kind() != KindVips {
		t.Fatalf("expected vips backend, got %s", backend.Kind())
	}

	backend, err = r.Pick(TaskImage, "imaging")
	if err != nil {
		t.Fatalf("Pick returned error: %v", err)
	}
	if backend.Kind() != KindImaging {
		t.Fatalf("expected imaging backend, got %s", backend.Kind())
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	r := NewRegistry(config.Codec{})
	if _, err := r.Backend(Kind("bogus")); err == nil {
		t.Fatal("expected error for unknown backend kind")
	}
}
