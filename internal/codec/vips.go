package codec

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// VipsOption configures the vips backend.
type VipsOption func(*Vips)

// WithVipsBinary overrides the default binary name.
func WithVipsBinary(binary string) VipsOption {
	return func(v *Vips) {
		if binary != "" {
			v.binary = binary
		}
	}
}

// Vips wraps the libvips command line for image transcodes. It also decodes
// HEIF when no dedicated decoder is installed, since libvips links libheif
// on most distributions.
type Vips struct {
	unsupported
	binary string
}

// NewVips constructs the backend using defaults.
func NewVips(opts ...VipsOption) *Vips {
	v := &Vips{binary: "vips"}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vips) Kind() Kind { return KindVips }

func (v *Vips) Capabilities() Capabilities {
	return Capabilities{TranscodeImage: true, DecodeHeif: true}
}

// TranscodeImage converts or resizes input. The output format is taken from
// the output path's extension; vips infers the saver from it.
func (v *Vips) TranscodeImage(ctx context.Context, input, output string, params ImageParams) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	target := output + saveSuffix(params)
	var args []string
	if params.MaxWidth > 0 {
		args = []string{"thumbnail", input, target, strconv.Itoa(params.MaxWidth)}
		if params.MaxHeight > 0 {
			args = append(args, "--height", strconv.Itoa(params.MaxHeight))
		}
		// thumbnail never upscales
		args = append(args, "--size", "down")
	} else {
		args = []string{"copy", input, target}
	}
	return v.run(ctx, args)
}

// DecodeHeif converts a HEIC/HEIF input into the requested raster format.
func (v *Vips) DecodeHeif(ctx context.Context, input, output string, params ImageParams) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	return v.run(ctx, []string{"copy", input, output + saveSuffix(params)})
}

// saveSuffix builds the bracketed save-option suffix vips parses off the
// output filename, e.g. "[Q=86,strip]".
func saveSuffix(params ImageParams) string {
	var opts []string
	if params.Quality > 0 {
		opts = append(opts, "Q="+strconv.Itoa(params.Quality))
	}
	if params.StripMetadata {
		opts = append(opts, "strip")
	}
	if len(opts) == 0 {
		return ""
	}
	return "[" + strings.Join(opts, ",") + "]"
}

func (v *Vips) run(ctx context.Context, args []string) error {
	cmd := commandContext(ctx, v.binary, args...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", v.binary, err, tail(out))
	}
	return nil
}

var _ Backend = (*Vips)(nil)
