package imaging

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	ErrUndecodable     = errors.New("imaging: content is not a decodable image")
	ErrUnsupportedSize = errors.New("imaging: image size not supported")
	ErrInvalidTensor   = errors.New("imaging: invalid tensor")
	ErrInvalidSaliency = errors.New("imaging: invalid saliency map")
)

// DefaultSize is the square edge the model expects.
const DefaultSize = 224

// Tensor is a normalized RGB image in height-width-channel order with
// values in [0,1].
type Tensor struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Channels int       `json:"channels"`
	Data     []float32 `json:"data"`
}

// At returns the value at column x, row y, channel c.
func (t Tensor) At(x, y, c int) float32 {
	return t.Data[(y*t.Width+x)*t.Channels+c]
}

// Validate checks shape consistency.
func (t Tensor) Validate() error {
	if t.Width <= 0 || t.Height <= 0 || t.Channels <= 0 {
		return fmt.Errorf("%w: shape %dx%dx%d", ErrInvalidTensor, t.Height, t.Width, t.Channels)
	}
	if len(t.Data) != t.Width*t.Height*t.Channels {
		return fmt.Errorf("%w: %d values for shape %dx%dx%d", ErrInvalidTensor, len(t.Data), t.Height, t.Width, t.Channels)
	}
	return nil
}

// Nested returns the tensor as [rows][cols][channels], the layout used by
// JSON inference APIs.
func (t Tensor) Nested() [][][]float32 {
	rows := make([][][]float32, t.Height)
	for y := range rows {
		cols := make([][]float32, t.Width)
		for x := range cols {
			off := (y*t.Width + x) * t.Channels
			cols[x] = t.Data[off : off+t.Channels : off+t.Channels]
		}
		rows[y] = cols
	}
	return rows
}

// SaliencyMap is a 2-D relevance map, row-major, values in [0,1].
type SaliencyMap struct {
	Width  int
	Height int
	Values []float64
}

// SaliencyFromRows builds a map from a row slice. All rows must have the
// same length.
func SaliencyFromRows(rows [][]float64) (SaliencyMap, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return SaliencyMap{}, fmt.Errorf("%w: empty", ErrInvalidSaliency)
	}
	w := len(rows[0])
	values := make([]float64, 0, w*len(rows))
	for i, row := range rows {
		if len(row) != w {
			return SaliencyMap{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidSaliency, i, len(row), w)
		}
		values = append(values, row...)
	}
	m := SaliencyMap{Width: w, Height: len(rows), Values: values}
	return m, m.Validate()
}

// Validate checks shape and value range.
func (m SaliencyMap) Validate() error {
	if m.Width <= 0 || m.Height <= 0 || len(m.Values) != m.Width*m.Height {
		return fmt.Errorf("%w: %d values for %dx%d", ErrInvalidSaliency, len(m.Values), m.Width, m.Height)
	}
	for i, v := range m.Values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: value %v at %d", ErrInvalidSaliency, v, i)
		}
	}
	return nil
}
