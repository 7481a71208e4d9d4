package scene

import (
	"github.com/radiant-render/radiant/pkg/accel"
	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/lights"
)

// Aggregate is the top-level intersection structure interface
type Aggregate interface {
	Intersect(ray *core.Ray) (*core.SurfaceInteraction, bool)
	IntersectP(ray core.Ray) bool
	WorldBound() core.AABB
}

// Scene is the renderable world: the primitive aggregate, the light list,
// and the power-weighted light selection distribution. The scene is
// immutable during rendering and shared across workers by reference.
type Scene struct {
	Aggregate      Aggregate
	Primitives     []core.Primitive
	Lights         []lights.Light
	InfiniteLights []lights.EnvironmentLight
	LightDistrib   *lights.Distribution

	worldCenter core.Vec3
	worldRadius float64
}

// Scenes with at most this many primitives skip the BVH build
const bvhThreshold = 4

// New assembles a scene, builds the acceleration structure, and preprocesses
// lights with the world bounds
func New(primitives []core.Primitive, lightList []lights.Light) *Scene {
	s := &Scene{Primitives: primitives, Lights: lightList}

	if len(primitives) > bvhThreshold {
		s.Aggregate = accel.NewBVH(primitives)
	} else {
		s.Aggregate = accel.NewLinear(primitives)
	}

	if bounds := s.Aggregate.WorldBound(); bounds.IsValid() {
		s.worldCenter, s.worldRadius = bounds.BoundingSphere()
	} else {
		// No finite geometry (pure environment scenes)
		s.worldCenter, s.worldRadius = core.Vec3{}, 1
	}
	for _, l := range lightList {
		if pre, ok := l.(lights.Preprocessor); ok {
			pre.Preprocess(s.worldCenter, s.worldRadius)
		}
		if env, ok := l.(lights.EnvironmentLight); ok {
			s.InfiniteLights = append(s.InfiniteLights, env)
		}
	}

	s.LightDistrib = lights.NewDistribution(lightList)
	return s
}

// WorldBound returns the aggregate's bounds
func (s *Scene) WorldBound() core.AABB {
	return s.Aggregate.WorldBound()
}

// WorldRadius returns the radius of the scene's bounding sphere
func (s *Scene) WorldRadius() float64 {
	return s.worldRadius
}

// WorldCenter returns the center of the scene's bounding sphere
func (s *Scene) WorldCenter() core.Vec3 {
	return s.worldCenter
}

// Intersect finds the nearest surface hit along the ray
func (s *Scene) Intersect(ray *core.Ray) (*core.SurfaceInteraction, bool) {
	return s.Aggregate.Intersect(ray)
}

// IntersectP tests for any hit along the ray (shadow fast path)
func (s *Scene) IntersectP(ray core.Ray) bool {
	return s.Aggregate.IntersectP(ray)
}

// EscapedRadiance sums environment radiance for a ray that left the scene
func (s *Scene) EscapedRadiance(ray core.Ray) core.Spectrum {
	l := core.Black
	for _, env := range s.InfiniteLights {
		l = l.Add(env.Le(ray))
	}
	return l
}

// Unoccluded reports whether the segment from p toward target is free of
// geometry. The ray must already be offset from its originating surface.
func (s *Scene) Unoccluded(shadowRay core.Ray) bool {
	return !s.IntersectP(shadowRay)
}

// Transmittance returns the beam transmittance along a shadow ray, walking
// through medium-boundary primitives (nil material) and accumulating each
// segment's medium attenuation. Hitting real geometry blocks the path.
func (s *Scene) Transmittance(shadowRay core.Ray, sampler core.Sampler) core.Spectrum {
	tr := core.White
	ray := shadowRay

	for {
		hitRay := ray
		si, ok := s.Intersect(&hitRay)

		if ray.Medium != nil {
			segment := ray
			if ok {
				segment.TMax = si.T
			}
			tr = tr.Multiply(ray.Medium.Tr(segment, sampler))
		}

		if !ok {
			return tr
		}
		if si.Material != nil {
			return core.Black
		}

		// Pure medium boundary: continue through it
		remaining := ray.TMax - si.T
		next := si.SpawnRay(ray.Direction)
		next.TMax = remaining
		ray = next
	}
}
