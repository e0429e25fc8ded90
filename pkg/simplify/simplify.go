// Package simplify reduces relief meshes by iterative edge collapse.
package simplify

import (
	"errors"
	"fmt"
	gomath "math"
	"time"

	"github.com/Faultbox/relief-forge/pkg/relief"
)

const (
	// DefaultMaxVertices is the size above which meshes are left alone.
	DefaultMaxVertices = 100000

	// noopRatio and above keep the mesh as is.
	noopRatio = 0.99
)

var (
	ErrInvalidRatio = errors.New("simplify ratio must be in (0, 1]")
	ErrPanic        = errors.New("simplify panicked")
	ErrCollapsed    = errors.New("simplify left no triangles")
)

type options struct {
	maxVertices int
	observer    Observer
}

// Option configures Simplify.
type Option func(*options)

// WithMaxVertices overrides DefaultMaxVertices.
func WithMaxVertices(n int) Option {
	return func(o *options) { o.maxVertices = n }
}

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Simplify removes floor(n*(1-ratio)) of the n vertices of m, cheapest
// collapses first, and returns the result as a new mesh.
//
// The input is never modified. When the ratio is 0.99 or higher, or the
// mesh exceeds the vertex ceiling, m itself is returned and Result.Skipped
// says why. Simplified meshes lose their UVs and carry a single group on
// slot 0. If decimation fails, m is returned and Result.Err is set.
func Simplify(m *relief.Mesh, ratio float64, opts ...Option) (*relief.Mesh, Result) {
	o := options{maxVertices: DefaultMaxVertices}
	for _, opt := range opts {
		opt(&o)
	}
	notify := func(e Event) {
		if o.observer != nil {
			o.observer(e)
		}
	}

	n := m.VertexCount()
	res := Result{OriginalVertices: n, FinalVertices: n, Triangles: m.TriangleCount()}

	if ratio >= noopRatio {
		res.Skipped = SkipNoop
		return m, res
	}
	if n > o.maxVertices {
		res.Skipped = SkipTooLarge
		notify(EventSkipped{Reason: SkipTooLarge, Vertices: n})
		return m, res
	}

	notify(EventStart{OriginalVertices: n, TargetRatio: ratio})
	start := time.Now()

	out, err := run(m, ratio)
	if err != nil {
		res.Err = err
		notify(EventFailed{Err: err})
		return m, res
	}

	res.FinalVertices = out.VertexCount()
	res.Triangles = out.TriangleCount()
	res.Elapsed = time.Since(start)
	notify(EventComplete{FinalVertices: res.FinalVertices, Triangles: res.Triangles, Elapsed: res.Elapsed})
	return out, res
}

// run converts panics from the collapse code into errors.
func run(m *relief.Mesh, ratio float64) (out *relief.Mesh, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if !(ratio > 0) || gomath.IsNaN(ratio) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRatio, ratio)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	remove := int(gomath.Floor(float64(m.VertexCount()) * (1 - ratio)))
	c := newCollapser(m.Positions, m.Indices)
	c.reduce(remove)

	positions, indices := c.compact()
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: %d of %d vertices removed", ErrCollapsed, remove, m.VertexCount())
	}
	out = &relief.Mesh{
		Positions:  positions,
		Normals:    relief.ComputeNormals(positions, indices),
		Indices:    indices,
		Groups:     []relief.Group{{Start: 0, Count: len(indices), Slot: relief.SlotTop}},
		Resolution: m.Resolution,
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
