// Package depthmap conditions grayscale depth maps before they are turned
// into geometry. Values are normalized elevations in [0,1], stored
// row-major with row 0 at the top of the source image.
package depthmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// ErrInvalidGrid is returned when a grid's dimensions do not match its values.
var ErrInvalidGrid = errors.New("invalid depth grid")

// Grid is a row-major field of normalized depth values.
type Grid struct {
	Width  int
	Height int
	Values []float32
}

// At returns the value at column x, row y.
func (g Grid) At(x, y int) float32 {
	return g.Values[y*g.Width+x]
}

// Validate checks that the grid is non-empty and its dimensions agree.
func (g Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidGrid, g.Width, g.Height)
	}
	if len(g.Values) != g.Width*g.Height {
		return fmt.Errorf("%w: %d values for %dx%d", ErrInvalidGrid, len(g.Values), g.Width, g.Height)
	}
	return nil
}

// FromRGBA extracts depth from interleaved 8-bit RGBA pixels. The image is
// assumed to be grayscale, so only the red channel is read.
func FromRGBA(pix []byte, width, height int) Grid {
	values := make([]float32, width*height)
	for i := range values {
		values[i] = float32(pix[i*4]) / 255
	}
	return Grid{Width: width, Height: height, Values: values}
}

// FromImage extracts depth from a decoded image. 16-bit grayscale images
// keep their full precision; everything else reads the un-premultiplied
// red channel at 8 bits.
func FromImage(img image.Image) Grid {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	values := make([]float32, w*h)

	switch src := img.(type) {
	case *image.Gray16:
		for y := range h {
			for x := range w {
				values[y*w+x] = float32(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y) / 65535
			}
		}
	case *image.Gray:
		for y := range h {
			for x := range w {
				values[y*w+x] = float32(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255
			}
		}
	default:
		for y := range h {
			for x := range w {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				values[y*w+x] = float32(c.R) / 255
			}
		}
	}

	return Grid{Width: w, Height: h, Values: values}
}

// Clamp01 returns values limited to [0,1]. NaN becomes 0. When every value
// is already in range the input slice itself is returned.
func Clamp01(values []float32) []float32 {
	inRange := true
	for _, v := range values {
		if !(v >= 0 && v <= 1) {
			inRange = false
			break
		}
	}
	if inRange {
		return values
	}

	out := make([]float32, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(float64(v)) || v < 0:
			out[i] = 0
		case v > 1:
			out[i] = 1
		default:
			out[i] = v
		}
	}
	return out
}

// Histogram counts values into bins equal-width buckets over [0,1].
// A value v lands in bucket min(bins-1, floor(v*(bins-1))).
func Histogram(values []float32, bins int) []int {
	hist := make([]int, bins)
	if bins == 0 {
		return hist
	}
	for _, v := range values {
		hist[binIndex(v, bins)]++
	}
	return hist
}

func binIndex(v float32, bins int) int {
	idx := int(math.Floor(float64(v) * float64(bins-1)))
	if idx < 0 {
		return 0
	}
	if idx > bins-1 {
		return bins - 1
	}
	return idx
}

func minMax(values []float32) (lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
