package integrator

import (
	"container/heap"
	"sort"

	"github.com/radiant-render/radiant/pkg/core"
)

// Photon is one stored light-transport sample: a position, the incident
// direction the energy arrived from, and its throughput
type Photon struct {
	P    core.Vec3
	Wi   core.Vec3
	Beta core.Spectrum
}

// kdNode is one node of the balanced photon k-d tree, stored in a flat array
type kdNode struct {
	photon Photon
	axis   int
	left   int // child indices, -1 for none
	right  int
}

// KdTree is a balanced k-d tree over photons built by recursive median
// partitioning on the axis of maximum extent
type KdTree struct {
	nodes []kdNode
	root  int
}

// NewKdTree builds a balanced tree from the photon set
func NewKdTree(photons []Photon) *KdTree {
	t := &KdTree{nodes: make([]kdNode, 0, len(photons)), root: -1}
	if len(photons) == 0 {
		return t
	}
	work := append([]Photon(nil), photons...)
	t.root = t.build(work)
	return t
}

// build recursively partitions the photon slice at its median
func (t *KdTree) build(photons []Photon) int {
	if len(photons) == 0 {
		return -1
	}

	// Split on the axis of maximum positional extent
	bounds := core.EmptyAABB()
	for _, ph := range photons {
		bounds = bounds.AddPoint(ph.P)
	}
	axis := bounds.LongestAxis()

	mid := len(photons) / 2
	sort.Slice(photons, func(i, j int) bool {
		return photons[i].P.Axis(axis) < photons[j].P.Axis(axis)
	})

	index := len(t.nodes)
	t.nodes = append(t.nodes, kdNode{photon: photons[mid], axis: axis, left: -1, right: -1})
	left := t.build(photons[:mid])
	right := t.build(photons[mid+1:])
	t.nodes[index].left = left
	t.nodes[index].right = right
	return index
}

// Size returns the number of stored photons
func (t *KdTree) Size() int {
	return len(t.nodes)
}

// foundPhoton pairs a photon with its squared distance for the result heap
type foundPhoton struct {
	photon Photon
	dist2  float64
}

// photonHeap is a bounded max-heap keyed on squared distance
type photonHeap []foundPhoton

func (h photonHeap) Len() int            { return len(h) }
func (h photonHeap) Less(i, j int) bool  { return h[i].dist2 > h[j].dist2 }
func (h photonHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *photonHeap) Push(x interface{}) { *h = append(*h, x.(foundPhoton)) }
func (h *photonHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// KNearest returns up to k photons nearest to p within maxDist, along with
// the squared radius actually covered
func (t *KdTree) KNearest(p core.Vec3, k int, maxDist float64) ([]Photon, float64) {
	if t.root < 0 || k == 0 {
		return nil, 0
	}

	h := make(photonHeap, 0, k+1)
	maxDist2 := maxDist * maxDist

	var stack [64]int
	top := 0
	stack[top] = t.root
	top++

	for top > 0 {
		top--
		index := stack[top]
		if index < 0 {
			continue
		}
		node := &t.nodes[index]

		dist2 := node.photon.P.Subtract(p).LengthSquared()
		if dist2 < maxDist2 {
			heap.Push(&h, foundPhoton{photon: node.photon, dist2: dist2})
			if h.Len() > k {
				heap.Pop(&h)
				maxDist2 = h[0].dist2
			}
		}

		delta := p.Axis(node.axis) - node.photon.P.Axis(node.axis)
		if delta < 0 {
			if delta*delta < maxDist2 && top < len(stack) {
				stack[top] = node.right
				top++
			}
			if top < len(stack) {
				stack[top] = node.left
				top++
			}
		} else {
			if delta*delta < maxDist2 && top < len(stack) {
				stack[top] = node.left
				top++
			}
			if top < len(stack) {
				stack[top] = node.right
				top++
			}
		}
	}

	radius2 := 0.0
	photons := make([]Photon, h.Len())
	for i, f := range h {
		photons[i] = f.photon
		if f.dist2 > radius2 {
			radius2 = f.dist2
		}
	}
	return photons, radius2
}

// InRadius returns all photons within dist of p
func (t *KdTree) InRadius(p core.Vec3, dist float64) []Photon {
	if t.root < 0 {
		return nil
	}
	dist2 := dist * dist

	var result []Photon
	var stack [64]int
	top := 0
	stack[top] = t.root
	top++

	for top > 0 {
		top--
		index := stack[top]
		if index < 0 {
			continue
		}
		node := &t.nodes[index]

		if node.photon.P.Subtract(p).LengthSquared() < dist2 {
			result = append(result, node.photon)
		}

		delta := p.Axis(node.axis) - node.photon.P.Axis(node.axis)
		if delta < 0 {
			if delta*delta < dist2 && top < len(stack) {
				stack[top] = node.right
				top++
			}
			if top < len(stack) {
				stack[top] = node.left
				top++
			}
		} else {
			if delta*delta < dist2 && top < len(stack) {
				stack[top] = node.left
				top++
			}
			if top < len(stack) {
				stack[top] = node.right
				top++
			}
		}
	}
	return result
}
