package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

const tgaHeaderLen = 18

// TGA image types.
const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaRLETrueColor = 10
	tgaRLEGray      = 11
)

var errTGATruncated = errors.New("tga: pixel data truncated")

// decodeTGA reads uncompressed and RLE true-color (24/32 bit) and
// grayscale (8 bit) TGA images.
func decodeTGA(r io.Reader) (image.Image, error) {
	var hdr [tgaHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("tga: header: %w", err)
	}

	idLength := int(hdr[0])
	colorMapType := hdr[1]
	imageType := hdr[2]
	width := int(hdr[12]) | int(hdr[13])<<8
	height := int(hdr[14]) | int(hdr[15])<<8
	bpp := int(hdr[16])
	topToBottom := hdr[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped tga", ErrUnsupported)
	}
	gray := imageType == tgaGray || imageType == tgaRLEGray
	rle := imageType == tgaRLETrueColor || imageType == tgaRLEGray
	switch {
	case imageType != tgaTrueColor && imageType != tgaRLETrueColor && !gray:
		return nil, fmt.Errorf("%w: tga type %d", ErrUnsupported, imageType)
	case gray && bpp != 8, !gray && bpp != 24 && bpp != 32:
		return nil, fmt.Errorf("%w: tga type %d with %d bpp", ErrUnsupported, imageType, bpp)
	case width == 0 || height == 0:
		return nil, fmt.Errorf("tga: empty image %dx%d", width, height)
	}

	if _, err := io.CopyN(io.Discard, r, int64(idLength)); err != nil {
		return nil, fmt.Errorf("tga: id field: %w", err)
	}

	bytesPerPixel := bpp / 8
	pixels := make([]byte, width*height*bytesPerPixel)
	var err error
	if rle {
		err = readTGARLE(r, pixels, bytesPerPixel)
	} else {
		_, err = io.ReadFull(r, pixels)
	}
	if err != nil {
		return nil, errTGATruncated
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		destY := y
		if !topToBottom {
			destY = height - 1 - y
		}
		for x := range width {
			p := pixels[(y*width+x)*bytesPerPixel:]
			var c color.NRGBA
			if gray {
				c = color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}
			} else {
				// Stored as BGR(A).
				c = color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
				if bytesPerPixel == 4 {
					c.A = p[3]
				}
			}
			img.SetNRGBA(x, destY, c)
		}
	}
	return img, nil
}

// readTGARLE expands run-length packets into dst.
func readTGARLE(r io.Reader, dst []byte, bytesPerPixel int) error {
	var packet [1]byte
	pixel := make([]byte, bytesPerPixel)
	for off := 0; off < len(dst); {
		if _, err := io.ReadFull(r, packet[:]); err != nil {
			return err
		}
		count := int(packet[0]&0x7F) + 1
		n := min(count*bytesPerPixel, len(dst)-off)

		if packet[0]&0x80 != 0 {
			if _, err := io.ReadFull(r, pixel); err != nil {
				return err
			}
			for i := 0; i < n; i += bytesPerPixel {
				copy(dst[off+i:], pixel)
			}
		} else if _, err := io.ReadFull(r, dst[off:off+n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}
