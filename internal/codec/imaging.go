package codec

import (
	"context"
	"errors"
	"fmt"

	"mediaforge/internal/imaging"
)

// Imaging is the pure Go backend. It has no external dependencies and is
// always available, which makes it the fallback for image work whenever a
// native library is missing.
type Imaging struct {
	unsupported
}

// NewImaging constructs the backend.
func NewImaging() *Imaging { return &Imaging{} }

func (i *Imaging) Kind() Kind { return KindImaging }

func (i *Imaging) Capabilities() Capabilities {
	return Capabilities{TranscodeImage: true}
}

// TranscodeImage decodes input, optionally fits it inside the bounding box,
// and re-encodes into the requested format. Metadata is always dropped on
// this path; the encoders write pixel data only.
func (i *Imaging) TranscodeImage(ctx context.Context, input, output string, params ImageParams) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	if !imaging.SupportedOutputFormat(params.OutputFormat) {
		return fmt.Errorf("%w: format %q", ErrUnsupported, params.OutputFormat)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	img, _, err := imaging.DecodeFile(input)
	if err != nil {
		return fmt.Errorf("decode %s: %w", input, err)
	}
	if params.MaxWidth > 0 || params.MaxHeight > 0 {
		img = imaging.Fit(img, params.MaxWidth, params.MaxHeight)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := imaging.EncodeFile(output, img, params.OutputFormat, params.Quality); err != nil {
		return fmt.Errorf("encode %s: %w", output, err)
	}
	return nil
}

var _ Backend = (*Imaging)(nil)
