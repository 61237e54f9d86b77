package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"mime"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Defaults for Decoder.
const (
	DefaultMinDimension = 32
	DefaultMaxDimension = 8192
	DefaultMaxBytes     = 20 << 20
)

var supportedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// Decoder validates and normalizes uploads into model tensors.
type Decoder struct {
	// Size is the square output edge. Zero means DefaultSize.
	Size int
	// MinDimension and MaxDimension bound the source width and height.
	MinDimension int
	MaxDimension int
	// MaxBytes bounds the encoded size.
	MaxBytes int
}

// NewDecoder returns a decoder with default limits.
func NewDecoder() *Decoder {
	return &Decoder{
		Size:         DefaultSize,
		MinDimension: DefaultMinDimension,
		MaxDimension: DefaultMaxDimension,
		MaxBytes:     DefaultMaxBytes,
	}
}

// Normalize decodes content, checks its dimensions, converts it to RGB,
// resizes it to Size x Size and scales channels to [0,1].
func (d *Decoder) Normalize(ctx context.Context, content []byte, mediaType string) (Tensor, error) {
	if len(content) == 0 {
		return Tensor{}, fmt.Errorf("%w: empty content", ErrUndecodable)
	}
	if d.MaxBytes > 0 && len(content) > d.MaxBytes {
		return Tensor{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrUnsupportedSize, len(content), d.MaxBytes)
	}
	detected := mimetype.Detect(content)
	if err := checkDeclaredType(mediaType, detected); err != nil {
		return Tensor{}, err
	}
	if !mimetype.EqualsAny(detected.String(), supportedTypes...) {
		return Tensor{}, fmt.Errorf("%w: detected %s", ErrUndecodable, detected.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if err := d.checkDimensions(cfg.Width, cfg.Height); err != nil {
		return Tensor{}, err
	}

	if err := ctx.Err(); err != nil {
		return Tensor{}, err
	}

	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	return ToTensor(Resize(src, d.size())), nil
}

func (d *Decoder) size() int {
	if d.Size > 0 {
		return d.Size
	}
	return DefaultSize
}

func (d *Decoder) checkDimensions(w, h int) error {
	if d.MinDimension > 0 && (w < d.MinDimension || h < d.MinDimension) {
		return fmt.Errorf("%w: %dx%d below minimum %d", ErrUnsupportedSize, w, h, d.MinDimension)
	}
	if d.MaxDimension > 0 && (w > d.MaxDimension || h > d.MaxDimension) {
		return fmt.Errorf("%w: %dx%d above maximum %d", ErrUnsupportedSize, w, h, d.MaxDimension)
	}
	return nil
}

// declaredAliases maps nonstandard media types clients send to the type
// mimetype detects.
var declaredAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
	"image/tif":   "image/tiff",
}

// checkDeclaredType accepts an empty type or octet-stream. Any other
// declared type must be an image type that agrees with the sniffed content.
func checkDeclaredType(mediaType string, detected *mimetype.MIME) error {
	if strings.TrimSpace(mediaType) == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return fmt.Errorf("%w: media type %q: %v", ErrUndecodable, mediaType, err)
	}
	if mt == "application/octet-stream" {
		return nil
	}
	if !strings.HasPrefix(mt, "image/") {
		return fmt.Errorf("%w: declared media type %s", ErrUndecodable, mt)
	}
	if canonical, ok := declaredAliases[mt]; ok {
		mt = canonical
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(mt) {
			return nil
		}
	}
	return fmt.Errorf("%w: declared %s but content is %s", ErrUndecodable, mt, detected.String())
}

// Resize scales src to a size x size RGBA image with bilinear filtering.
func Resize(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ToTensor converts an RGBA image into a [0,1] RGB tensor. Alpha is dropped.
func ToTensor(img *image.RGBA) Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]float32, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+3]
			data = append(data, float32(px[0])/255, float32(px[1])/255, float32(px[2])/255)
		}
	}
	return Tensor{Width: w, Height: h, Channels: 3, Data: data}
}
