package thumbnails

import (
	"image"

	"mediaforge/internal/config"
	"mediaforge/internal/imaging"
)

// Strategy names for the thumbnail_generation preference.
const (
	StrategyServer = "server"
	StrategyClient = "client"
	StrategySmart  = "smart"
)

// generator renders one thumbnail variant from a decoded image.
type generator interface {
	Generate(img image.Image, size config.ThumbnailSize) (image.Image, error)
}

// clientGenerator is the plain local strategy: center-crop for cropped
// variants, aspect-preserving fit otherwise.
type clientGenerator struct{}

func (clientGenerator) Generate(img image.Image, size config.ThumbnailSize) (image.Image, error) {
	if size.Crop {
		return imaging.Fill(img, size.Width, size.Height), nil
	}
	return imaging.Fit(img, size.Width, size.Height), nil
}

// smartGenerator uses saliency-aware cropping for cropped variants so faces
// and subjects survive square thumbnails.
type smartGenerator struct{}

func (smartGenerator) Generate(img image.Image, size config.ThumbnailSize) (image.Image, error) {
	if size.Crop {
		return imaging.SmartFill(img, size.Width, size.Height)
	}
	return imaging.Fit(img, size.Width, size.Height), nil
}

// generatorFor maps the preference value to a local generator. Server-side
// generation has no local generator; the caller records the sizes the
// server still owes instead.
func generatorFor(strategy string) generator {
	if strategy == StrategySmart {
		return smartGenerator{}
	}
	return clientGenerator{}
}
