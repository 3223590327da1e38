package codec

import (
	"fmt"
	"os/exec"
	"sync"

	"mediaforge/internal/config"
)

// lookPath resolves a binary on PATH; swapped in tests.
var lookPath = exec.LookPath

// Registry constructs backends on demand and caches them. Availability of
// the CLI backends is probed once per binary and remembered, so selection
// stays cheap on the hot path.
type Registry struct {
	cfg config.Codec

	mu        sync.Mutex
	backends  map[Kind]Backend
	available map[Kind]bool
}

// NewRegistry builds a registry around the configured binary names.
func NewRegistry(cfg config.Codec) *Registry {
	return &Registry{
		cfg:       cfg,
		backends:  make(map[Kind]Backend),
		available: make(map[Kind]bool),
	}
}

// Available reports whether the backend's binary can be found. The pure Go
// backend is always available.
func (r *Registry) Available(kind Kind) bool {
	if kind == KindImaging {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok, probed := r.available[kind]; probed {
		return ok
	}
	_, err := lookPath(r.binaryFor(kind))
	r.available[kind] = err == nil
	return err == nil
}

// Backend returns the backend for kind, constructing it on first use.
func (r *Registry) Backend(kind Kind) (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.backends[kind]; ok {
		return b, nil
	}
	var b Backend
	switch kind {
	case KindImaging:
		b = NewImaging()
	case KindFFmpeg:
		b = NewFFmpeg(WithFFmpegBinary(r.cfg.FFmpegBinary))
	case KindVips:
		b = NewVips(WithVipsBinary(r.cfg.VipsBinary))
	case KindHeif:
		b = NewHeif(WithHeifBinary(r.cfg.HeifBinary))
	case KindPDF:
		b = NewPDF(WithPDFBinary(r.cfg.PDFBinary))
	default:
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
	r.backends[kind] = b
	return b, nil
}

// Pick runs selection and backend construction in one step.
func (r *Registry) Pick(task Task, imageLibrary string) (Backend, error) {
	kind, err := Select(task, imageLibrary, r.Available)
	if err != nil {
		return nil, err
	}
	return r.Backend(kind)
}

func (r *Registry) binaryFor(kind Kind) string {
	switch kind {
	case KindFFmpeg:
		if r.cfg.FFmpegBinary != "" {
			return r.cfg.FFmpegBinary
		}
		return "ffmpeg"
	case KindVips:
		if r.cfg.VipsBinary != "" {
			return r.cfg.VipsBinary
		}
		return "vips"
	case KindHeif:
		if r.cfg.HeifBinary != "" {
			return r.cfg.HeifBinary
		}
		return "heif-convert"
	case KindPDF:
		if r.cfg.PDFBinary != "" {
			return r.cfg.PDFBinary
		}
		return "pdftoppm"
	default:
		return string(kind)
	}
}
