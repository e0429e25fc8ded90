package relief

import "fmt"

// Params are the physical dimensions of the relief, in millimeters.
type Params struct {
	MeshWidthMm     float32
	MeshHeightMm    float32
	TargetDepthMm   float32 // height of a full-white pixel above z=0
	BaseThicknessMm float32 // base extends this far below z=0
}

// Validate rejects non-positive dimensions and a negative base.
func (p Params) Validate() error {
	switch {
	case !(p.MeshWidthMm > 0):
		return fmt.Errorf("%w: width %v", ErrInvalidParams, p.MeshWidthMm)
	case !(p.MeshHeightMm > 0):
		return fmt.Errorf("%w: height %v", ErrInvalidParams, p.MeshHeightMm)
	case !(p.TargetDepthMm > 0):
		return fmt.Errorf("%w: depth %v", ErrInvalidParams, p.TargetDepthMm)
	case !(p.BaseThicknessMm >= 0):
		return fmt.Errorf("%w: base thickness %v", ErrInvalidParams, p.BaseThicknessMm)
	}
	return nil
}

// DefaultWidthMm is the physical width used when no target size is given.
const DefaultWidthMm = 100

// Dimensions derives the physical footprint from the image aspect ratio
// (width/height) and optional target sizes. With neither target set the
// relief is DefaultWidthMm wide. With one set, the other follows the
// aspect ratio.
func Dimensions(aspect float32, widthMm, heightMm *float32) (w, h float32) {
	switch {
	case widthMm != nil && heightMm != nil:
		return *widthMm, *heightMm
	case widthMm != nil:
		return *widthMm, *widthMm / aspect
	case heightMm != nil:
		return *heightMm * aspect, *heightMm
	default:
		return DefaultWidthMm, DefaultWidthMm / aspect
	}
}

// TargetResolution scales width and height down so the longer side is at
// most maxRes, rounding down. Images are never upscaled, and maxRes <= 0
// leaves the size unchanged.
func TargetResolution(width, height, maxRes int) (int, int) {
	if maxRes <= 0 || (width <= maxRes && height <= maxRes) {
		return width, height
	}
	if width >= height {
		return maxRes, height * maxRes / width
	}
	return width * maxRes / height, maxRes
}
