package codec

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// HeifOption configures the heif-convert backend.
type HeifOption func(*Heif)

// WithHeifBinary overrides the default binary name.
func WithHeifBinary(binary string) HeifOption {
	return func(h *Heif) {
		if binary != "" {
			h.binary = binary
		}
	}
}

// Heif wraps heif-convert for decoding HEIC/HEIF captures into JPEG or PNG.
type Heif struct {
	unsupported
	binary string
}

// NewHeif constructs the backend using defaults.
func NewHeif(opts ...HeifOption) *Heif {
	h := &Heif{binary: "heif-convert"}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Heif) Kind() Kind { return KindHeif }

func (h *Heif) Capabilities() Capabilities {
	return Capabilities{DecodeHeif: true}
}

// DecodeHeif converts input into the raster format implied by output's
// extension. heif-convert only honours quality for lossy targets.
func (h *Heif) DecodeHeif(ctx context.Context, input, output string, params ImageParams) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	args := []string{}
	if params.Quality > 0 {
		args = append(args, "-q", strconv.Itoa(params.Quality))
	}
	args = append(args, input, output)
	cmd := commandContext(ctx, h.binary, args...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", h.binary, err, tail(out))
	}
	return nil
}

var _ Backend = (*Heif)(nil)
