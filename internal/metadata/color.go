package metadata

import (
	"fmt"
	"image"
)

// sampleTarget caps how many pixels per axis the histogram visits on large
// images.
const sampleTarget = 64

// DominantColor estimates the most prominent color in img and returns it as
// a #rrggbb hex string. Pixels are bucketed at 4 bits per channel and the
// winning bucket's members are averaged, which smooths sensor noise without
// a full clustering pass.
func DominantColor(img image.Image) string {
	bounds := img.Bounds()
	if bounds.Empty() {
		return ""
	}

	strideX := bounds.Dx() / sampleTarget
	if strideX < 1 {
		strideX = 1
	}
	strideY := bounds.Dy() / sampleTarget
	if strideY < 1 {
		strideY = 1
	}

	type bucket struct {
		count   int
		r, g, b uint64
	}
	buckets := make(map[uint16]*bucket)

	for y := bounds.Min.Y; y < bounds.Max.Y; y += strideY {
		for x := bounds.Min.X; x < bounds.Max.X; x += strideX {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 0x8000 {
				continue
			}
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
			key := uint16(r8>>4)<<8 | uint16(g8>>4)<<4 | uint16(b8>>4)
			entry, ok := buckets[key]
			if !ok {
				entry = &bucket{}
				buckets[key] = entry
			}
			entry.count++
			entry.r += uint64(r8)
			entry.g += uint64(g8)
			entry.b += uint64(b8)
		}
	}
	if len(buckets) == 0 {
		return ""
	}

	var best *bucket
	var bestKey uint16
	for key, entry := range buckets {
		if best == nil || entry.count > best.count || (entry.count == best.count && key < bestKey) {
			best = entry
			bestKey = key
		}
	}
	n := uint64(best.count)
	return fmt.Sprintf("#%02x%02x%02x", uint8(best.r/n), uint8(best.g/n), uint8(best.b/n))
}
