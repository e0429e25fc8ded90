// Package material describes how the two parts of a relief are shaded:
// the top surface (slot 0), which may carry an image, and the base and
// walls (slot 1), which are always a flat color.
package material

import (
	"image"

	"github.com/Faultbox/relief-forge/pkg/relief"
)

// Surface holds the PBR parameters shared by every relief material.
type Surface struct {
	Metalness   float32
	Roughness   float32
	DoubleSided bool
}

// DefaultSurface returns the stock finish.
func DefaultSurface() Surface {
	return Surface{Metalness: 0.3, Roughness: 0.7, DoubleSided: true}
}

// Material is either Textured or Solid.
type Material interface {
	SlotIndex() int
	// BaseColor is the color factor; for textured materials it tints the image.
	BaseColor() Color
	Finish() Surface
	isMaterial()
}

// Textured maps an image over the top surface UVs.
type Textured struct {
	Slot    int
	Image   image.Image
	Tint    Color
	Surface Surface
}

// Solid is a flat color.
type Solid struct {
	Slot    int
	Color   Color
	Surface Surface
}

func (m Textured) SlotIndex() int   { return m.Slot }
func (m Textured) BaseColor() Color { return m.Tint }
func (m Textured) Finish() Surface  { return m.Surface }
func (Textured) isMaterial()        {}

func (m Solid) SlotIndex() int   { return m.Slot }
func (m Solid) BaseColor() Color { return m.Color }
func (m Solid) Finish() Surface  { return m.Surface }
func (Solid) isMaterial()        {}

// Config selects the materials for a relief.
type Config struct {
	ShowTexture bool
	// Texture overrides the depth image as the top surface image.
	Texture    image.Image
	DepthImage image.Image
	ItemColor  Color
}

// Describe returns the materials for slots 0 and 1. The top is textured
// with a white tint when ShowTexture is set and an image is available;
// otherwise both slots are solid ItemColor.
func Describe(cfg Config) [2]Material {
	var top Material = Solid{Slot: relief.SlotTop, Color: cfg.ItemColor, Surface: DefaultSurface()}
	if cfg.ShowTexture {
		src := cfg.Texture
		if src == nil {
			src = cfg.DepthImage
		}
		if src != nil {
			top = Textured{Slot: relief.SlotTop, Image: src, Tint: White, Surface: DefaultSurface()}
		}
	}

	return [2]Material{
		top,
		Solid{Slot: relief.SlotBase, Color: cfg.ItemColor, Surface: DefaultSurface()},
	}
}

// Recolor returns mats with solid colors replaced by c. Texture bindings
// and tints are kept.
func Recolor(mats [2]Material, c Color) [2]Material {
	var out [2]Material
	for i, m := range mats {
		if s, ok := m.(Solid); ok {
			s.Color = c
			out[i] = s
			continue
		}
		out[i] = m
	}
	return out
}

// Texture returns the image bound to m, if any.
func Texture(m Material) (image.Image, bool) {
	t, ok := m.(Textured)
	if !ok || t.Image == nil {
		return nil, false
	}
	return t.Image, true
}
