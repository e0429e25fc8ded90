// Package relief turns a depth grid into a closed, printable relief mesh:
// a displaced top surface, a flat base and perimeter walls joining them.
package relief

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Material slots used by mesh groups.
const (
	SlotTop  = 0 // relief surface, may be textured
	SlotBase = 1 // bottom and walls, solid color only
)

var (
	ErrInvalidParams = errors.New("invalid mesh parameters")
	ErrGridTooSmall  = errors.New("depth grid must be at least 2x2")
	ErrInvalidMesh   = errors.New("invalid mesh")
)

// Group is a contiguous run of indices drawn with one material slot.
// Start and Count are in index units, so Count is a multiple of 3.
type Group struct {
	Start int
	Count int
	Slot  int
}

// Resolution is the pixel size of the grid a mesh was built from.
type Resolution struct {
	Width  int
	Height int
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Size returns the extent along each axis.
func (b Bounds) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Mesh is an indexed triangle mesh in millimeters, Z up.
// A Mesh is not modified after it is built; derived meshes are copies.
type Mesh struct {
	Positions  []float32 // xyz
	Normals    []float32 // xyz, one per vertex
	UVs        []float32 // uv, nil once the mesh has been simplified
	Indices    []uint32
	Groups     []Group
	Resolution Resolution
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Bounds computes the bounding box of all vertices.
func (m *Mesh) Bounds() Bounds {
	if len(m.Positions) < 3 {
		return Bounds{}
	}

	inf := float32(math.Inf(1))
	b := Bounds{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
	for i := 0; i+2 < len(m.Positions); i += 3 {
		for a := range 3 {
			v := m.Positions[i+a]
			b.Min[a] = min(b.Min[a], v)
			b.Max[a] = max(b.Max[a], v)
		}
	}
	return b
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Positions:  slices.Clone(m.Positions),
		Normals:    slices.Clone(m.Normals),
		UVs:        slices.Clone(m.UVs),
		Indices:    slices.Clone(m.Indices),
		Groups:     slices.Clone(m.Groups),
		Resolution: m.Resolution,
	}
}

// RecomputeNormals replaces the normals with area-weighted vertex normals
// derived from the current positions and winding.
func (m *Mesh) RecomputeNormals() {
	m.Normals = ComputeNormals(m.Positions, m.Indices)
}

// Validate checks buffer sizes, index ranges and that groups, when
// present, partition the index buffer in order with no gaps.
func (m *Mesh) Validate() error {
	if len(m.Positions)%3 != 0 {
		return fmt.Errorf("%w: position buffer length %d", ErrInvalidMesh, len(m.Positions))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: index buffer length %d", ErrInvalidMesh, len(m.Indices))
	}
	n := m.VertexCount()
	if m.Normals != nil && len(m.Normals) != n*3 {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidMesh, len(m.Normals)/3, n)
	}
	if m.UVs != nil && len(m.UVs) != n*2 {
		return fmt.Errorf("%w: %d uvs for %d vertices", ErrInvalidMesh, len(m.UVs)/2, n)
	}
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at %d out of range", ErrInvalidMesh, idx, i)
		}
	}

	if len(m.Groups) == 0 {
		return nil
	}
	next := 0
	for i, g := range m.Groups {
		if g.Start != next {
			return fmt.Errorf("%w: group %d starts at %d, want %d", ErrInvalidMesh, i, g.Start, next)
		}
		if g.Count < 0 || g.Count%3 != 0 {
			return fmt.Errorf("%w: group %d count %d", ErrInvalidMesh, i, g.Count)
		}
		next += g.Count
	}
	if next != len(m.Indices) {
		return fmt.Errorf("%w: groups cover %d of %d indices", ErrInvalidMesh, next, len(m.Indices))
	}
	return nil
}
