package codec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PDFOption configures the pdftoppm backend.
type PDFOption func(*PDF)

// WithPDFBinary overrides the default binary name.
func WithPDFBinary(binary string) PDFOption {
	return func(p *PDF) {
		if binary != "" {
			p.binary = binary
		}
	}
}

// PDF wraps pdftoppm for rendering the first page of a document as a
// preview image.
type PDF struct {
	unsupported
	binary string
}

// NewPDF constructs the backend using defaults.
func NewPDF(opts ...PDFOption) *PDF {
	p := &PDF{binary: "pdftoppm"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PDF) Kind() Kind { return KindPDF }

func (p *PDF) Capabilities() Capabilities {
	return Capabilities{RenderPDF: true}
}

// RenderPDF rasterizes page one of input into output. pdftoppm appends its
// own extension to the output prefix, so the rendered file is moved onto
// the requested path afterwards.
func (p *PDF) RenderPDF(ctx context.Context, input, output string, params ImageParams) error {
	if input == "" || output == "" {
		return errors.New("input and output paths required")
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	format := "-png"
	if ext == "jpg" || ext == "jpeg" {
		format = "-jpeg"
	}
	prefix := strings.TrimSuffix(output, filepath.Ext(output))
	args := []string{format, "-f", "1", "-l", "1", "-singlefile"}
	if params.MaxWidth > 0 {
		args = append(args, "-scale-to", fmt.Sprint(params.MaxWidth))
	}
	args = append(args, input, prefix)
	cmd := commandContext(ctx, p.binary, args...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", p.binary, err, tail(out))
	}
	rendered := prefix + "." + map[string]string{"-png": "png", "-jpeg": "jpg"}[format]
	if rendered == output {
		return nil
	}
	if err := os.Rename(rendered, output); err != nil {
		return fmt.Errorf("move rendered page: %w", err)
	}
	return nil
}

var _ Backend = (*PDF)(nil)
