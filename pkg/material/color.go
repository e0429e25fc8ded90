package material

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned for malformed hex colors.
var ErrInvalidColor = errors.New("invalid color")

// Color is an 8-bit sRGB color.
type Color struct {
	R, G, B uint8
}

var (
	White            = Color{0xff, 0xff, 0xff}
	DefaultItemColor = Color{0x80, 0x80, 0x80}
)

// ParseColor parses "#rgb" or "#rrggbb", case-insensitive.
func ParseColor(s string) (Color, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return Color{}, fmt.Errorf("%w: %q has no leading #", ErrInvalidColor, s)
	}

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustParseColor is like ParseColor but panics on error.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// SRGB returns the channels scaled to [0,1] without gamma conversion.
func (c Color) SRGB() [3]float32 {
	return [3]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

// Linear returns the channels converted to linear light, as glTF color
// factors expect.
func (c Color) Linear() [3]float32 {
	s := c.SRGB()
	return [3]float32{toLinear(s[0]), toLinear(s[1]), toLinear(s[2])}
}

func toLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow((float64(v)+0.055)/1.055, 2.4))
}
