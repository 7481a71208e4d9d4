// Package accel provides ray-intersection acceleration structures over
// primitives: a binary BVH built with the surface area heuristic and a naive
// linear aggregate used for validation and tiny scenes.
package accel

import (
	"sort"

	"github.com/radiant-render/radiant/pkg/core"
)

const (
	numBuckets        = 12  // SAH binning resolution
	maxPrimsInLeaf    = 4   // ranges at or below this size split at the median
	traversalCost     = 0.125
	intersectionCost  = 1.0
)

// BVH is a binary bounding volume hierarchy flattened into a depth-first
// node array for cache-friendly traversal
type BVH struct {
	primitives []core.Primitive // reordered so leaves reference contiguous runs
	nodes      []linearNode
}

// linearNode is one flattened BVH node. Interior nodes store the offset of
// their second child (the first child is the next array entry); leaves store
// the offset and count of their primitive run.
type linearNode struct {
	bounds      core.AABB
	offset      int // primitive offset (leaf) or second-child offset (interior)
	numPrims    int // 0 for interior nodes
	axis        int // split axis for interior nodes
}

// buildNode is the temporary pointer-based tree produced by recursion
type buildNode struct {
	bounds      core.AABB
	left, right *buildNode
	splitAxis   int
	firstPrim   int
	numPrims    int
}

// primInfo caches per-primitive build data
type primInfo struct {
	index    int
	bounds   core.AABB
	centroid core.Vec3
}

// NewBVH builds a BVH over the given primitives using SAH binning
func NewBVH(primitives []core.Primitive) *BVH {
	bvh := &BVH{}
	if len(primitives) == 0 {
		return bvh
	}

	info := make([]primInfo, len(primitives))
	for i, prim := range primitives {
		b := prim.WorldBound()
		info[i] = primInfo{index: i, bounds: b, centroid: b.Center()}
	}

	ordered := make([]core.Primitive, 0, len(primitives))
	totalNodes := 0
	root := bvh.build(primitives, info, 0, len(info), &ordered, &totalNodes)
	bvh.primitives = ordered

	bvh.nodes = make([]linearNode, totalNodes)
	offset := 0
	bvh.flatten(root, &offset)
	return bvh
}

// build recursively partitions the primitive range [start, end)
func (bvh *BVH) build(primitives []core.Primitive, info []primInfo, start, end int, ordered *[]core.Primitive, totalNodes *int) *buildNode {
	*totalNodes++
	bounds := core.EmptyAABB()
	for i := start; i < end; i++ {
		bounds = bounds.Union(info[i].bounds)
	}
	n := end - start

	makeLeaf := func() *buildNode {
		firstPrim := len(*ordered)
		for i := start; i < end; i++ {
			*ordered = append(*ordered, primitives[info[i].index])
		}
		return &buildNode{bounds: bounds, firstPrim: firstPrim, numPrims: n}
	}

	if n == 1 {
		return makeLeaf()
	}

	// Split along the axis of maximum centroid extent
	centroidBounds := core.EmptyAABB()
	for i := start; i < end; i++ {
		centroidBounds = centroidBounds.AddPoint(info[i].centroid)
	}
	axis := centroidBounds.LongestAxis()
	if centroidBounds.Max.Axis(axis) == centroidBounds.Min.Axis(axis) {
		// Degenerate: all centroids coincide
		return makeLeaf()
	}

	var mid int
	if n <= maxPrimsInLeaf {
		// Small ranges: sort by centroid and split at the middle
		sort.Slice(info[start:end], func(i, j int) bool {
			return info[start+i].centroid.Axis(axis) < info[start+j].centroid.Axis(axis)
		})
		mid = start + n/2
	} else {
		// Bin centroids and pick the split minimizing the SAH cost
		type bucket struct {
			count  int
			bounds core.AABB
		}
		buckets := make([]bucket, numBuckets)
		for i := range buckets {
			buckets[i].bounds = core.EmptyAABB()
		}
		bucketOf := func(c core.Vec3) int {
			b := int(float64(numBuckets) * centroidBounds.Offset(c).Axis(axis))
			if b >= numBuckets {
				b = numBuckets - 1
			}
			return b
		}
		for i := start; i < end; i++ {
			b := bucketOf(info[i].centroid)
			buckets[b].count++
			buckets[b].bounds = buckets[b].bounds.Union(info[i].bounds)
		}

		// Cost of splitting after bucket i, for each i
		bestCost := float64(0)
		bestSplit := -1
		parentArea := bounds.SurfaceArea()
		for i := 0; i < numBuckets-1; i++ {
			leftBounds, rightBounds := core.EmptyAABB(), core.EmptyAABB()
			leftCount, rightCount := 0, 0
			for j := 0; j <= i; j++ {
				if buckets[j].count > 0 {
					leftBounds = leftBounds.Union(buckets[j].bounds)
					leftCount += buckets[j].count
				}
			}
			for j := i + 1; j < numBuckets; j++ {
				if buckets[j].count > 0 {
					rightBounds = rightBounds.Union(buckets[j].bounds)
					rightCount += buckets[j].count
				}
			}
			if leftCount == 0 || rightCount == 0 {
				continue
			}
			cost := traversalCost + intersectionCost*
				(float64(leftCount)*leftBounds.SurfaceArea()+float64(rightCount)*rightBounds.SurfaceArea())/parentArea
			if bestSplit < 0 || cost < bestCost {
				bestCost = cost
				bestSplit = i
			}
		}

		leafCost := intersectionCost * float64(n)
		if bestSplit < 0 || bestCost >= leafCost {
			return makeLeaf()
		}

		// Partition the range in place around the chosen bucket split
		mid = start
		for i := start; i < end; i++ {
			if bucketOf(info[i].centroid) <= bestSplit {
				info[i], info[mid] = info[mid], info[i]
				mid++
			}
		}
		if mid == start || mid == end {
			mid = start + n/2
		}
	}

	left := bvh.build(primitives, info, start, mid, ordered, totalNodes)
	right := bvh.build(primitives, info, mid, end, ordered, totalNodes)
	return &buildNode{
		bounds:    left.bounds.Union(right.bounds),
		left:      left,
		right:     right,
		splitAxis: axis,
	}
}

// flatten lays the tree out in depth-first order
func (bvh *BVH) flatten(node *buildNode, offset *int) int {
	myOffset := *offset
	*offset++
	linear := &bvh.nodes[myOffset]
	linear.bounds = node.bounds

	if node.left == nil {
		linear.offset = node.firstPrim
		linear.numPrims = node.numPrims
	} else {
		linear.axis = node.splitAxis
		bvh.flatten(node.left, offset)
		linear.offset = bvh.flatten(node.right, offset)
	}
	return myOffset
}

// WorldBound returns the bounds of the whole hierarchy
func (bvh *BVH) WorldBound() core.AABB {
	if len(bvh.nodes) == 0 {
		return core.AABB{}
	}
	return bvh.nodes[0].bounds
}

// PrimitiveCount returns the number of stored primitives
func (bvh *BVH) PrimitiveCount() int {
	return len(bvh.primitives)
}

// Intersect finds the nearest intersection along the ray. The traversal
// visits the near child first by pushing the far child when the ray
// direction is positive along the node's split axis.
func (bvh *BVH) Intersect(ray *core.Ray) (*core.SurfaceInteraction, bool) {
	if len(bvh.nodes) == 0 {
		return nil, false
	}

	var closest *core.SurfaceInteraction
	dirIsNeg := [3]bool{ray.InvDir.X < 0, ray.InvDir.Y < 0, ray.InvDir.Z < 0}

	var stack [64]int
	stackTop := 0
	nodeIndex := 0

	for {
		node := &bvh.nodes[nodeIndex]
		if _, _, hit := node.bounds.Hit(*ray); hit {
			if node.numPrims > 0 {
				// Leaf: test every primitive, shrinking ray.TMax on hits
				for i := 0; i < node.numPrims; i++ {
					if si, ok := bvh.primitives[node.offset+i].Intersect(ray); ok {
						closest = si
					}
				}
				if stackTop == 0 {
					break
				}
				stackTop--
				nodeIndex = stack[stackTop]
			} else {
				// Interior: visit the near child first
				if dirIsNeg[node.axis] {
					stack[stackTop] = nodeIndex + 1
					stackTop++
					nodeIndex = node.offset
				} else {
					stack[stackTop] = node.offset
					stackTop++
					nodeIndex = nodeIndex + 1
				}
			}
		} else {
			if stackTop == 0 {
				break
			}
			stackTop--
			nodeIndex = stack[stackTop]
		}
	}

	return closest, closest != nil
}

// IntersectP tests whether anything intersects the ray before ray.TMax,
// terminating on the first hit
func (bvh *BVH) IntersectP(ray core.Ray) bool {
	if len(bvh.nodes) == 0 {
		return false
	}

	dirIsNeg := [3]bool{ray.InvDir.X < 0, ray.InvDir.Y < 0, ray.InvDir.Z < 0}

	var stack [64]int
	stackTop := 0
	nodeIndex := 0

	for {
		node := &bvh.nodes[nodeIndex]
		if _, _, hit := node.bounds.Hit(ray); hit {
			if node.numPrims > 0 {
				for i := 0; i < node.numPrims; i++ {
					if bvh.primitives[node.offset+i].IntersectP(ray) {
						return true
					}
				}
				if stackTop == 0 {
					break
				}
				stackTop--
				nodeIndex = stack[stackTop]
			} else {
				if dirIsNeg[node.axis] {
					stack[stackTop] = nodeIndex + 1
					stackTop++
					nodeIndex = node.offset
				} else {
					stack[stackTop] = node.offset
					stackTop++
					nodeIndex = nodeIndex + 1
				}
			}
		} else {
			if stackTop == 0 {
				break
			}
			stackTop--
			nodeIndex = stack[stackTop]
		}
	}

	return false
}
