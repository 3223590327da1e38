package codec

import (
	"context"
	"errors"
)

// Kind identifies a codec backend implementation.
type Kind string

const (
	KindImaging Kind = "imaging" // pure Go, always available
	KindVips    Kind = "vips"    // libvips CLI
	KindFFmpeg  Kind = "ffmpeg"  // ffmpeg CLI
	KindHeif    Kind = "heif"    // heif-convert CLI
	KindPDF     Kind = "pdf"     // pdftoppm CLI
)

// ErrUnsupported is returned when a backend is asked for an operation
// outside its capability set.
var ErrUnsupported = errors.New("operation not supported by backend")

// Capabilities describes what a backend can do. Selection consults this
// rather than switching on concrete types.
type Capabilities struct {
	TranscodeImage bool
	TranscodeVideo bool
	TranscodeAudio bool
	DecodeHeif     bool
	RenderPDF      bool
}

// ImageParams controls image transcode and decode operations.
type ImageParams struct {
	OutputFormat  string // "jpeg", "png", "webp", ...
	Quality       int    // 1..100, 0 = encoder default
	MaxWidth      int    // 0 = keep
	MaxHeight     int    // 0 = keep
	StripMetadata bool
}

// VideoParams controls video transcode operations.
type VideoParams struct {
	OutputFormat string // "mp4" or "webm"
	RemoveAudio  bool
	Quality      int // CRF-style, 0 = encoder default
}

// AudioParams controls audio transcode operations.
type AudioParams struct {
	OutputFormat string // "mp3" or "ogg"
	Bitrate      string // e.g. "192k", empty = encoder default
}

// Backend is the adapter contract every codec implementation satisfies.
// Calls never mutate the input file; they write a fresh output and are
// cancellable through ctx. Operations outside the backend's capability set
// return ErrUnsupported.
type Backend interface {
	Kind() Kind
	Capabilities() Capabilities
	TranscodeImage(ctx context.Context, input, output string, params ImageParams) error
	TranscodeVideo(ctx context.Context, input, output string, params VideoParams) error
	TranscodeAudio(ctx context.Context, input, output string, params AudioParams) error
	DecodeHeif(ctx context.Context, input, output string, params ImageParams) error
	RenderPDF(ctx context.Context, input, output string, params ImageParams) error
}

// unsupported provides the full Backend surface with every operation
// rejected; concrete backends embed it and override what they implement.
type unsupported struct{}

func (unsupported) TranscodeImage(context.Context, string, string, ImageParams) error {
	return ErrUnsupported
}

func (unsupported) TranscodeVideo(context.Context, string, string, VideoParams) error {
	return ErrUnsupported
}

func (unsupported) TranscodeAudio(context.Context, string, string, AudioParams) error {
	return ErrUnsupported
}

func (unsupported) DecodeHeif(context.Context, string, string, ImageParams) error {
	return ErrUnsupported
}

func (unsupported) RenderPDF(context.Context, string, string, ImageParams) error {
	return ErrUnsupported
}
