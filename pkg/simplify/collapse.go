package simplify

import (
	"container/heap"
	gomath "math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

type face struct {
	v       [3]int
	normal  r3.Vec
	removed bool
}

func (f *face) has(v int) bool {
	return f.v[0] == v || f.v[1] == v || f.v[2] == v
}

func (f *face) replace(from, to int) {
	for i := range f.v {
		if f.v[i] == from {
			f.v[i] = to
		}
	}
}

// collapser holds the mutable working copy of a mesh while vertices are
// folded onto their neighbors. Each vertex tracks its cheapest collapse
// target; costs follow Melax: edge length times a curvature term taken
// from the normals of the faces around the edge.
type collapser struct {
	pos       []r3.Vec
	faces     []face
	vertFaces [][]int
	neighbors []map[int]struct{}
	removed   []bool

	target  []int
	cost    []float64
	version []int
	queue   collapseHeap
}

func newCollapser(positions []float32, indices []uint32) *collapser {
	n := len(positions) / 3
	c := &collapser{
		pos:       make([]r3.Vec, n),
		faces:     make([]face, len(indices)/3),
		vertFaces: make([][]int, n),
		neighbors: make([]map[int]struct{}, n),
		removed:   make([]bool, n),
		target:    make([]int, n),
		cost:      make([]float64, n),
		version:   make([]int, n),
	}

	for i := range n {
		c.pos[i] = r3.Vec{
			X: float64(positions[i*3]),
			Y: float64(positions[i*3+1]),
			Z: float64(positions[i*3+2]),
		}
		c.neighbors[i] = make(map[int]struct{})
	}

	for fi := range c.faces {
		f := &c.faces[fi]
		f.v = [3]int{int(indices[fi*3]), int(indices[fi*3+1]), int(indices[fi*3+2])}
		f.normal = c.faceNormal(f.v)
		for k, v := range f.v {
			c.vertFaces[v] = append(c.vertFaces[v], fi)
			for _, w := range f.v[k+1:] {
				if w != v {
					c.neighbors[v][w] = struct{}{}
					c.neighbors[w][v] = struct{}{}
				}
			}
		}
	}

	heap.Init(&c.queue)
	for v := range n {
		c.update(v)
	}
	return c
}

func (c *collapser) faceNormal(v [3]int) r3.Vec {
	a, b, d := c.pos[v[0]], c.pos[v[1]], c.pos[v[2]]
	n := r3.Cross(r3.Sub(b, a), r3.Sub(d, a))
	if l := r3.Norm(n); l > 0 {
		return r3.Scale(1/l, n)
	}
	return r3.Vec{}
}

// liveFaces returns the faces around v that are still part of the mesh.
func (c *collapser) liveFaces(v int) []int {
	live := c.vertFaces[v][:0]
	for _, fi := range c.vertFaces[v] {
		if !c.faces[fi].removed && c.faces[fi].has(v) {
			live = append(live, fi)
		}
	}
	c.vertFaces[v] = live
	return live
}

// edgeCost is the cost of moving u onto v, or +Inf when the move would
// fold a surviving face over.
func (c *collapser) edgeCost(u, v int) float64 {
	faces := c.liveFaces(u)

	var sides []int
	for _, fi := range faces {
		f := &c.faces[fi]
		if f.has(v) {
			sides = append(sides, fi)
			continue
		}
		moved := f.v
		for i := range moved {
			if moved[i] == u {
				moved[i] = v
			}
		}
		if r3.Dot(c.faceNormal(moved), f.normal) < 0 {
			return gomath.Inf(1)
		}
	}

	curvature := 0.0
	for _, fi := range faces {
		lowest := 1.0
		for _, si := range sides {
			d := r3.Dot(c.faces[fi].normal, c.faces[si].normal)
			lowest = min(lowest, (1-d)/2)
		}
		curvature = max(curvature, lowest)
	}

	return r3.Norm(r3.Sub(c.pos[v], c.pos[u])) * curvature
}

// update recomputes u's cheapest collapse and queues it.
func (c *collapser) update(u int) {
	c.version[u]++
	c.target[u] = -1
	c.cost[u] = gomath.Inf(1)

	// Sorted for a deterministic choice among equal costs.
	nbrs := make([]int, 0, len(c.neighbors[u]))
	for v := range c.neighbors[u] {
		nbrs = append(nbrs, v)
	}
	slices.Sort(nbrs)

	for _, v := range nbrs {
		if cost := c.edgeCost(u, v); cost < c.cost[u] {
			c.cost[u] = cost
			c.target[u] = v
		}
	}
	if c.target[u] >= 0 {
		heap.Push(&c.queue, &candidate{vertex: u, cost: c.cost[u], version: c.version[u]})
	}
}

// reduce collapses up to count vertices.
func (c *collapser) reduce(count int) {
	for done := 0; done < count && c.queue.Len() > 0; {
		cand := heap.Pop(&c.queue).(*candidate)
		u := cand.vertex
		if c.removed[u] || cand.version != c.version[u] || c.target[u] < 0 {
			continue
		}
		c.collapse(u, c.target[u])
		done++
	}
}

func (c *collapser) collapse(u, v int) {
	affected := make([]int, 0, len(c.neighbors[u]))
	for n := range c.neighbors[u] {
		affected = append(affected, n)
	}
	slices.Sort(affected)

	for _, fi := range c.liveFaces(u) {
		f := &c.faces[fi]
		if f.has(v) {
			f.removed = true
			continue
		}
		f.replace(u, v)
		f.normal = c.faceNormal(f.v)
		c.vertFaces[v] = append(c.vertFaces[v], fi)
	}

	for _, n := range affected {
		delete(c.neighbors[n], u)
		if n != v {
			c.neighbors[n][v] = struct{}{}
			c.neighbors[v][n] = struct{}{}
		}
	}
	c.neighbors[u] = nil
	c.vertFaces[u] = nil
	c.removed[u] = true
	c.version[u]++

	for _, n := range affected {
		c.update(n)
	}
}

// compact drops removed vertices and degenerate faces and renumbers the
// survivors in their original order.
func (c *collapser) compact() ([]float32, []uint32) {
	remap := make([]int, len(c.pos))
	var positions []float32
	next := 0
	for i, p := range c.pos {
		if c.removed[i] {
			remap[i] = -1
			continue
		}
		remap[i] = next
		next++
		positions = append(positions, float32(p.X), float32(p.Y), float32(p.Z))
	}

	var indices []uint32
	for fi := range c.faces {
		f := &c.faces[fi]
		if f.removed || f.v[0] == f.v[1] || f.v[1] == f.v[2] || f.v[0] == f.v[2] {
			continue
		}
		indices = append(indices, uint32(remap[f.v[0]]), uint32(remap[f.v[1]]), uint32(remap[f.v[2]]))
	}

	// Unreferenced vertices can remain when a whole fan collapsed away.
	return dropUnused(positions, indices)
}

func dropUnused(positions []float32, indices []uint32) ([]float32, []uint32) {
	used := make([]bool, len(positions)/3)
	for _, i := range indices {
		used[i] = true
	}
	if !slices.Contains(used, false) {
		return positions, indices
	}

	remap := make([]uint32, len(used))
	out := make([]float32, 0, len(positions))
	var next uint32
	for i, u := range used {
		if !u {
			continue
		}
		remap[i] = next
		next++
		out = append(out, positions[i*3], positions[i*3+1], positions[i*3+2])
	}
	for k, i := range indices {
		indices[k] = remap[i]
	}
	return out, indices
}
