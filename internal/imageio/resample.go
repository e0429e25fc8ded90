package imageio

import (
	"image"

	"golang.org/x/image/draw"
)

// Resample scales img to width x height with bilinear filtering. Gray
// sources are scaled into a 16-bit gray image so that interpolation does
// not quantize depth back to 8 bits; other images become NRGBA. An image
// that already has the requested size is returned unchanged.
func Resample(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}

	rect := image.Rect(0, 0, width, height)
	var dst draw.Image
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		dst = image.NewGray16(rect)
	default:
		dst = image.NewNRGBA(rect)
	}
	draw.BiLinear.Scale(dst, rect, img, b, draw.Src, nil)
	return dst
}
