package relief

import (
	"fmt"

	"github.com/Faultbox/relief-forge/pkg/depthmap"
)

// Build triangulates a depth grid one vertex per pixel.
//
// Vertex layout is W*H top vertices followed by W*H base vertices, both
// row-major. The mesh is centered on the origin in X and Y. Index layout
// is the top surface, then the base, then the walls, and Groups records
// the top run as slot 0 and everything after it as slot 1.
func Build(grid depthmap.Grid, p Params) (*Mesh, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if grid.Width < 2 || grid.Height < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrGridTooSmall, grid.Width, grid.Height)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	w, h := grid.Width, grid.Height
	segX, segY := w-1, h-1
	n := w * h

	positions := make([]float32, 0, n*2*3)
	positions = appendLayer(positions, w, h, p, func(i int) float32 {
		return grid.Values[i] * p.TargetDepthMm
	})
	positions = appendLayer(positions, w, h, p, func(int) float32 {
		return -p.BaseThicknessMm
	})

	quads := segX * segY
	indices := make([]uint32, 0, quads*12+12*(segX+segY))
	indices = appendTop(indices, w, h)
	indices = appendBase(indices, w, h, uint32(n))
	indices = appendWalls(indices, w, h, uint32(n))

	topCount := quads * 6
	m := &Mesh{
		Positions: positions,
		UVs:       buildUVs(w, h),
		Indices:   indices,
		Groups: []Group{
			{Start: 0, Count: topCount, Slot: SlotTop},
			{Start: topCount, Count: len(indices) - topCount, Slot: SlotBase},
		},
		Resolution: Resolution{Width: w, Height: h},
	}
	m.RecomputeNormals()
	return m, nil
}

// IndexCount returns the number of indices Build emits for a w x h grid.
func IndexCount(w, h int) int {
	sx, sy := w-1, h-1
	return 12*sx*sy + 12*(sx+sy)
}

func appendLayer(dst []float32, w, h int, p Params, z func(i int) float32) []float32 {
	for y := range h {
		my := float32(y)/float32(h-1)*p.MeshHeightMm - p.MeshHeightMm/2
		for x := range w {
			mx := float32(x)/float32(w-1)*p.MeshWidthMm - p.MeshWidthMm/2
			dst = append(dst, mx, my, z(y*w+x))
		}
	}
	return dst
}

// appendTop emits two counter-clockwise triangles per cell, facing +Z.
func appendTop(dst []uint32, w, h int) []uint32 {
	for y := range h - 1 {
		for x := range w - 1 {
			v1 := uint32(y*w + x)
			v2 := v1 + 1
			v3 := v1 + uint32(w)
			v4 := v3 + 1
			dst = append(dst, v1, v2, v3, v2, v4, v3)
		}
	}
	return dst
}

// appendBase mirrors the top winding so the base faces -Z.
func appendBase(dst []uint32, w, h int, base uint32) []uint32 {
	for y := range h - 1 {
		for x := range w - 1 {
			v1 := base + uint32(y*w+x)
			v2 := v1 + 1
			v3 := v1 + uint32(w)
			v4 := v3 + 1
			dst = append(dst, v1, v3, v2, v2, v3, v4)
		}
	}
	return dst
}

// appendWalls walks the perimeter once: y=0 left to right, x=w-1 upward,
// y=h-1 right to left, x=0 downward. Each step joins a pair of top edge
// vertices to the base vertices under them with outward-facing quads.
func appendWalls(dst []uint32, w, h int, base uint32) []uint32 {
	quad := func(t1, t2 int) {
		top1, top2 := uint32(t1), uint32(t2)
		bot1, bot2 := base+top1, base+top2
		dst = append(dst, top1, bot1, top2, top2, bot1, bot2)
	}

	for x := 0; x < w-1; x++ {
		quad(x, x+1)
	}
	for y := 0; y < h-1; y++ {
		quad(y*w+w-1, (y+1)*w+w-1)
	}
	last := (h - 1) * w
	for x := w - 1; x > 0; x-- {
		quad(last+x, last+x-1)
	}
	for y := h - 1; y > 0; y-- {
		quad(y*w, (y-1)*w)
	}
	return dst
}

// buildUVs maps the top layer onto the full texture with V pointing up,
// so image row 0 samples v=1. Base vertices get (0,0).
func buildUVs(w, h int) []float32 {
	segX, segY := float32(w-1), float32(h-1)
	uvs := make([]float32, w*h*2*2)
	for y := range h {
		for x := range w {
			i := (y*w + x) * 2
			uvs[i] = float32(x) / segX
			uvs[i+1] = 1 - float32(y)/segY
		}
	}
	return uvs
}
