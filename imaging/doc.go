// Package imaging turns uploaded bytes into model input tensors and renders
// saliency maps back into PNG heatmaps.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. The format is
// sniffed from the content; the declared media type is only checked for
// plausibility.
package imaging
