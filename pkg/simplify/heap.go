package simplify

// candidate is a queued collapse. Entries go stale when their vertex is
// updated; version tells them apart.
type candidate struct {
	vertex  int
	cost    float64
	version int
}

// collapseHeap is a min-heap of candidates ordered by cost, then vertex.
type collapseHeap []*candidate

func (h collapseHeap) Len() int { return len(h) }
func (h collapseHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].vertex < h[j].vertex
}
func (h collapseHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *collapseHeap) Push(x interface{}) {
	*h = append(*h, x.(*candidate))
}

func (h *collapseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
