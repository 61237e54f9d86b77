package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// RenderSaliency inverts the map, resizes it to size x size, applies a jet
// colormap and encodes the result as PNG.
func RenderSaliency(m SaliencyMap, size int) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}

	gray := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Values {
		gray.Pix[(i/m.Width)*gray.Stride+i%m.Width] = uint8(math.Round(255 * (1 - v)))
	}

	scaled := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), gray, gray.Bounds(), draw.Src, nil)

	out := image.NewRGBA(scaled.Bounds())
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			out.SetRGBA(x, y, Jet(scaled.GrayAt(x, y).Y))
		}
	}
	return EncodePNG(out)
}

// Jet maps an intensity to the classic blue-cyan-yellow-red colormap.
func Jet(v uint8) color.RGBA {
	f := float64(v) / 255
	channel := func(center float64) uint8 {
		c := 1.5 - math.Abs(4*f-center)
		return uint8(math.Round(255 * math.Max(0, math.Min(1, c))))
	}
	return color.RGBA{R: channel(3), G: channel(2), B: channel(1), A: 255}
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
