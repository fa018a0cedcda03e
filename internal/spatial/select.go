package spatial

import (
	"container/heap"
	"sort"
)

// candidate pairs a row index with its squared planar distance to the query
// point. Squared distance is enough for ranking, so the hot path never takes
// a square root.
type candidate struct {
	row int
	d2  float64
}

// closer orders candidates by ascending distance, breaking ties by original
// row order so results are deterministic across repeated calls.
func closer(a, b candidate) bool {
	if a.d2 != b.d2 {
		return a.d2 < b.d2
	}
	return a.row < b.row
}

// candidateHeap is a max-heap: the worst of the kept candidates sits at the
// root, ready to be evicted.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// selector keeps the k closest candidates seen so far in O(log k) per offer,
// O(n log k) over a full scan.
type selector struct {
	k     int
	cands candidateHeap
}

func newSelector(k int) *selector {
	return &selector{k: k, cands: make(candidateHeap, 0, k)}
}

func (s *selector) offer(row int, d2 float64) {
	c := candidate{row: row, d2: d2}
	if len(s.cands) < s.k {
		heap.Push(&s.cands, c)
		return
	}
	if closer(c, s.cands[0]) {
		s.cands[0] = c
		heap.Fix(&s.cands, 0)
	}
}

// rows returns the selected row indices ordered by ascending distance.
func (s *selector) rows() []int {
	sorted := make([]candidate, len(s.cands))
	copy(sorted, s.cands)
	sort.Slice(sorted, func(i, j int) bool { return closer(sorted[i], sorted[j]) })

	out := make([]int, len(sorted))
	for i, c := range sorted {
		out[i] = c.row
	}
	return out
}
