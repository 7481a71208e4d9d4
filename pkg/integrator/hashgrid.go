package integrator

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// HashGrid buckets items by position into a uniform grid addressed through a
// hash, so only occupied cells cost memory. Items are inserted with a
// bounding box and found by point lookup.
type HashGrid struct {
	hashSize  int
	hashScale float64 // inverse cell size
	bounds    core.AABB
	cells     [][]int
}

// NewHashGrid creates a grid over the given bounds with the given cell size
func NewHashGrid(bounds core.AABB, cellSize float64, hashSize int) *HashGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &HashGrid{
		hashSize:  hashSize,
		hashScale: 1 / cellSize,
		bounds:    bounds,
		cells:     make([][]int, hashSize),
	}
}

// hash mixes integer cell coordinates with large primes
func (g *HashGrid) hash(ix, iy, iz int) int {
	h := (ix * 73856093) ^ (iy * 19349663) ^ (iz * 83492791)
	h %= g.hashSize
	if h < 0 {
		h += g.hashSize
	}
	return h
}

// cellOf returns the integer cell coordinates of a point
func (g *HashGrid) cellOf(p core.Vec3) (int, int, int) {
	rel := p.Subtract(g.bounds.Min).Multiply(g.hashScale)
	return int(math.Floor(rel.X)), int(math.Floor(rel.Y)), int(math.Floor(rel.Z))
}

// Add inserts an item id into every cell its bounding box overlaps
func (g *HashGrid) Add(id int, boxMin, boxMax core.Vec3) {
	minX, minY, minZ := g.cellOf(boxMin)
	maxX, maxY, maxZ := g.cellOf(boxMax)
	for iz := minZ; iz <= maxZ; iz++ {
		for iy := minY; iy <= maxY; iy++ {
			for ix := minX; ix <= maxX; ix++ {
				h := g.hash(ix, iy, iz)
				g.cells[h] = append(g.cells[h], id)
			}
		}
	}
}

// Lookup returns the item ids stored in the cell containing p
func (g *HashGrid) Lookup(p core.Vec3) []int {
	ix, iy, iz := g.cellOf(p)
	return g.cells[g.hash(ix, iy, iz)]
}
