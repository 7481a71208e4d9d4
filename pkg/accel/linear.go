package accel

import "github.com/radiant-render/radiant/pkg/core"

// Linear is the O(n) reference aggregate. It exists to validate the BVH and
// to serve scenes too small to amortize a build.
type Linear struct {
	primitives []core.Primitive
}

// NewLinear creates a linear aggregate over the primitives
func NewLinear(primitives []core.Primitive) *Linear {
	return &Linear{primitives: primitives}
}

// WorldBound returns the union of all primitive bounds
func (l *Linear) WorldBound() core.AABB {
	bounds := core.EmptyAABB()
	for _, prim := range l.primitives {
		bounds = bounds.Union(prim.WorldBound())
	}
	return bounds
}

// Intersect tests every primitive and returns the nearest hit
func (l *Linear) Intersect(ray *core.Ray) (*core.SurfaceInteraction, bool) {
	var closest *core.SurfaceInteraction
	for _, prim := range l.primitives {
		if si, ok := prim.Intersect(ray); ok {
			closest = si
		}
	}
	return closest, closest != nil
}

// IntersectP tests every primitive until any hit is found
func (l *Linear) IntersectP(ray core.Ray) bool {
	for _, prim := range l.primitives {
		if prim.IntersectP(ray) {
			return true
		}
	}
	return false
}
