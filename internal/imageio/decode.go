// Package imageio decodes depth and texture images and resamples them to
// the mesh resolution.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned for data no registered decoder recognizes.
var ErrUnsupported = errors.New("unsupported image format")

// Decode reads an image and reports its format name. PNG, JPEG, GIF,
// BMP, TIFF and WebP are recognized by content.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return nil, "", ErrUnsupported
	}
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// DecodeFile opens and decodes path. TGA has no signature and is chosen
// by extension; everything else is detected from content.
func DecodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		img, err := decodeTGA(r)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		return img, "tga", nil
	}

	img, format, err := Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// Is16Bit reports whether img stores more than 8 bits per channel.
func Is16Bit(img image.Image) bool {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}
