// Package imaging is the pure-Go image toolbox: decoding (including webp,
// bmp, and tiff), encoding with quality control, aspect-preserving resize,
// and both center-weighted and saliency-aware cropping. The codec layer's
// built-in backend and the thumbnail stage are its consumers.
package imaging
