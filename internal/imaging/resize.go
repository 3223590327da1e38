package imaging

import (
	"fmt"
	"image"

	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"
	"golang.org/x/image/draw"
)

// Fit scales img down to fit within maxWidth x maxHeight while preserving
// aspect ratio. Images already small enough are returned unchanged; Fit
// never upscales.
func Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return img
	}
	if maxWidth <= 0 {
		maxWidth = width
	}
	if maxHeight <= 0 {
		maxHeight = height
	}
	if width <= maxWidth && height <= maxHeight {
		return img
	}

	ratioW := float64(maxWidth) / float64(width)
	ratioH := float64(maxHeight) / float64(height)
	ratio := ratioW
	if ratioH < ratio {
		ratio = ratioH
	}
	dstW := int(float64(width) * ratio)
	dstH := int(float64(height) * ratio)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	return scale(img, dstW, dstH)
}

// Fill scales and center-crops img to exactly width x height.
func Fill(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 || width <= 0 || height <= 0 {
		return img
	}

	ratioW := float64(width) / float64(srcW)
	ratioH := float64(height) / float64(srcH)
	ratio := ratioW
	if ratioH > ratio {
		ratio = ratioH
	}
	scaledW := int(float64(srcW)*ratio + 0.5)
	scaledH := int(float64(srcH)*ratio + 0.5)
	scaled := scale(img, scaledW, scaledH)

	offsetX := (scaledW - width) / 2
	offsetY := (scaledH - height) / 2
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), scaled, image.Pt(offsetX, offsetY), draw.Src)
	return dst
}

// SmartFill crops img to the most salient width x height region before
// scaling, using smartcrop's content-aware analyzer.
func SmartFill(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("smart crop requires positive dimensions")
	}
	analyzer := smartcrop.NewAnalyzer(nfnt.NewDefaultResizer())
	best, err := analyzer.FindBestCrop(img, width, height)
	if err != nil {
		return nil, fmt.Errorf("find best crop: %w", err)
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	cropped := img
	if si, ok := img.(subImager); ok {
		cropped = si.SubImage(best)
	} else {
		rgba := image.NewRGBA(best)
		draw.Draw(rgba, best, img, best.Min, draw.Src)
		cropped = rgba
	}
	return scale(cropped, width, height), nil
}

func scale(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
