// Package scene assembles primitives, lights, and media into the renderable
// aggregate and provides the built-in test scenes.
package scene

import (
	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
)

// GeometricPrimitive binds a shape to its material, optional area light, and
// optional medium interface. Intersection delegates to the shape and then
// attaches the bindings to the interaction.
type GeometricPrimitive struct {
	Shape           geometry.Shape
	Material        core.Material
	Light           core.Emitter
	MediumInterface *core.MediumInterface
}

// NewGeometricPrimitive creates a primitive from a shape and material
func NewGeometricPrimitive(shape geometry.Shape, material core.Material) *GeometricPrimitive {
	return &GeometricPrimitive{Shape: shape, Material: material}
}

// Intersect intersects the shape, attaches the primitive's bindings, and
// shrinks the ray's search interval to the hit
func (p *GeometricPrimitive) Intersect(ray *core.Ray) (*core.SurfaceInteraction, bool) {
	si, ok := p.Shape.Intersect(*ray)
	if !ok {
		return nil, false
	}
	ray.TMax = si.T
	si.Primitive = p
	si.Material = p.Material
	si.Light = p.Light
	if p.MediumInterface.IsTransition() {
		si.MediumInterface = p.MediumInterface
	} else if ray.Medium != nil {
		// The ray's enclosing medium continues on both sides
		si.MediumInterface = &core.MediumInterface{Inside: ray.Medium, Outside: ray.Medium}
	}
	return si, true
}

// IntersectP tests the shape for any hit
func (p *GeometricPrimitive) IntersectP(ray core.Ray) bool {
	return p.Shape.IntersectP(ray)
}

// WorldBound returns the shape's world bounds
func (p *GeometricPrimitive) WorldBound() core.AABB {
	return p.Shape.WorldBound()
}

var _ core.Primitive = (*GeometricPrimitive)(nil)
