package integrator

import (
	"math"

	"github.com/radiant-render/radiant/pkg/bssrdf"
	"github.com/radiant-render/radiant/pkg/bxdf"
	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/material"
	"github.com/radiant-render/radiant/pkg/scene"
)

// irradiancePoint is one surface sample with its estimated irradiance
type irradiancePoint struct {
	p    core.Vec3
	n    core.Vec3
	area float64
	e    core.Spectrum
}

// octreeNode aggregates its subtree's samples by area-weighted averaging so
// distant queries collapse to a single dipole evaluation
type octreeNode struct {
	bounds   core.AABB
	children [8]*octreeNode
	points   []irradiancePoint // leaf payload
	isLeaf   bool

	// Aggregates over the subtree
	pBar core.Vec3
	area float64
	eBar core.Spectrum
}

const octreeLeafSize = 8

// buildOctree recursively partitions the irradiance samples
func buildOctree(points []irradiancePoint, bounds core.AABB, depth int) *octreeNode {
	node := &octreeNode{bounds: bounds}

	if len(points) <= octreeLeafSize || depth > 16 {
		node.isLeaf = true
		node.points = points
		node.aggregate(points)
		return node
	}

	center := bounds.Center()
	var buckets [8][]irradiancePoint
	for _, pt := range points {
		idx := 0
		if pt.p.X > center.X {
			idx |= 1
		}
		if pt.p.Y > center.Y {
			idx |= 2
		}
		if pt.p.Z > center.Z {
			idx |= 4
		}
		buckets[idx] = append(buckets[idx], pt)
	}

	for i := 0; i < 8; i++ {
		if len(buckets[i]) == 0 {
			continue
		}
		childBounds := octant(bounds, center, i)
		node.children[i] = buildOctree(buckets[i], childBounds, depth+1)
	}
	node.aggregate(points)
	return node
}

// octant returns the bounds of child i
func octant(bounds core.AABB, center core.Vec3, i int) core.AABB {
	min := bounds.Min
	max := bounds.Max
	if i&1 != 0 {
		min.X = center.X
	} else {
		max.X = center.X
	}
	if i&2 != 0 {
		min.Y = center.Y
	} else {
		max.Y = center.Y
	}
	if i&4 != 0 {
		min.Z = center.Z
	} else {
		max.Z = center.Z
	}
	return core.NewAABB(min, max)
}

// aggregate computes the node's area-weighted summary
func (n *octreeNode) aggregate(points []irradiancePoint) {
	if len(points) == 0 {
		return
	}
	weightedP := core.Vec3{}
	weightedE := core.Black
	totalArea := 0.0
	for _, pt := range points {
		weightedP = weightedP.Add(pt.p.Multiply(pt.area))
		weightedE = weightedE.Add(pt.e.Scale(pt.area))
		totalArea += pt.area
	}
	n.area = totalArea
	if totalArea > 0 {
		n.pBar = weightedP.Multiply(1 / totalArea)
		n.eBar = weightedE.Scale(1 / totalArea)
	}
}

// mo evaluates the aggregated diffusion integral sum Rd(|po-p|) E A over the
// octree, collapsing nodes whose extent is small as seen from po
func (n *octreeNode) mo(po core.Vec3, rd *bssrdf.Dipole, solidAngleK float64) core.Spectrum {
	if n == nil || n.area == 0 {
		return core.Black
	}

	extent := n.bounds.Size().Length()
	dist := po.Subtract(n.pBar).Length()
	if !n.isLeaf && dist > solidAngleK*extent {
		// Far enough: one dipole evaluation for the whole subtree
		return rd.Rd(dist).Multiply(n.eBar).Scale(n.area)
	}

	if n.isLeaf {
		sum := core.Black
		for _, pt := range n.points {
			sum = sum.Add(rd.Rd(po.Subtract(pt.p).Length()).Multiply(pt.e).Scale(pt.area))
		}
		return sum
	}

	sum := core.Black
	for _, child := range n.children {
		if child != nil {
			sum = sum.Add(child.mo(po, rd, solidAngleK))
		}
	}
	return sum
}

// Hierarchical renders subsurface materials with an octree irradiance cache:
// Poisson-disk surface samples receive photon-map irradiance estimates, the
// octree aggregates them, and each shading query couples the diffusion
// integral with the Fresnel transmittance at the exit point.
type Hierarchical struct {
	NumPhotons   int
	SampleRadius float64 // Poisson-disk spacing of irradiance samples
	GatherCount  int
	GatherDist   float64
	MaxDepth     int
	SolidAngleK  float64 // octree collapse threshold

	tree   *KdTree
	octree *octreeNode
}

// NewHierarchical creates the subsurface irradiance-caching integrator
func NewHierarchical(numPhotons int, sampleRadius float64, maxDepth int) *Hierarchical {
	return &Hierarchical{
		NumPhotons:   numPhotons,
		SampleRadius: sampleRadius,
		GatherCount:  64,
		GatherDist:   math.Max(0.5, sampleRadius*8),
		MaxDepth:     maxDepth,
		SolidAngleK:  4,
	}
}

// Preprocess traces photons, distributes irradiance samples over subsurface
// geometry, estimates their irradiance, and builds the octree
func (h *Hierarchical) Preprocess(sc *scene.Scene, sampler core.Sampler, logger core.Logger) error {
	h.tree = NewKdTree(TracePhotons(sc, sampler, h.NumPhotons, h.MaxDepth))
	logger.Printf("hierarchical: photon map holds %d photons", h.tree.Size())

	points := h.samplePoints(sc, sampler)
	if len(points) == 0 {
		logger.Printf("hierarchical: scene has no subsurface geometry")
		return nil
	}

	// Estimate irradiance at every sample from the photon map
	for i := range points {
		points[i].e = h.estimateIrradiance(points[i].p, points[i].n)
	}

	bounds := core.EmptyAABB()
	for _, pt := range points {
		bounds = bounds.AddPoint(pt.p)
	}
	h.octree = buildOctree(points, bounds.Expand(1e-4), 0)
	logger.Printf("hierarchical: %d irradiance samples cached", len(points))
	return nil
}

// samplePoints dart-throws uniform shape samples, keeping those at least
// SampleRadius from every accepted sample (a Poisson-disk distribution)
func (h *Hierarchical) samplePoints(sc *scene.Scene, sampler core.Sampler) []irradiancePoint {
	var points []irradiancePoint
	minDist2 := h.SampleRadius * h.SampleRadius

	for _, prim := range sc.Primitives {
		gp, ok := prim.(*scene.GeometricPrimitive)
		if !ok {
			continue
		}
		if _, isSSS := gp.Material.(*material.Subsurface); !isSSS {
			continue
		}

		area := gp.Shape.Area()
		target := int(math.Ceil(area / (math.Pi * minDist2)))
		attempts := target * 8

		var accepted []irradiancePoint
		for i := 0; i < attempts && len(accepted) < target; i++ {
			s := gp.Shape.Sample(sampler.Get2D())
			tooClose := false
			for _, a := range accepted {
				if a.p.Subtract(s.P).LengthSquared() < minDist2 {
					tooClose = true
					break
				}
			}
			if tooClose {
				continue
			}
			accepted = append(accepted, irradiancePoint{p: s.P, n: s.N})
		}

		// Every accepted sample represents an equal share of the area
		if len(accepted) > 0 {
			dA := area / float64(len(accepted))
			for i := range accepted {
				accepted[i].area = dA
			}
			points = append(points, accepted...)
		}
	}
	return points
}

// estimateIrradiance sums photon throughputs arriving at the front side
func (h *Hierarchical) estimateIrradiance(p, n core.Vec3) core.Spectrum {
	photons, radius2 := h.tree.KNearest(p, h.GatherCount, h.GatherDist)
	if len(photons) == 0 || radius2 == 0 {
		return core.Black
	}
	sum := core.Black
	for _, ph := range photons {
		if ph.Wi.Dot(n) > 0 {
			sum = sum.Add(ph.Beta)
		}
	}
	return sum.Scale(1 / (math.Pi * radius2))
}

// Li path-traces, replacing the diffusion component at subsurface hits with
// the cached irradiance integral
func (h *Hierarchical) Li(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Spectrum {
	l := core.Black
	beta := core.White

	for depth := 0; depth < h.MaxDepth; depth++ {
		hitRay := ray
		si, ok := sc.Intersect(&hitRay)
		if !ok {
			l = l.Add(beta.Multiply(sc.EscapedRadiance(ray)))
			break
		}

		l = l.Add(beta.Multiply(si.Le(si.Wo)))

		if si.Material == nil {
			ray = si.SpawnRay(ray.Direction)
			continue
		}
		si.Material.ComputeScattering(si, core.TransportRadiance)

		if dipole, isDipole := si.BSSRDF.(*bssrdf.Dipole); isDipole && h.octree != nil {
			// Diffusion exit: couple the cached integral with the Fresnel
			// transmittance at the exit direction
			mo := h.octree.mo(si.P, dipole, h.SolidAngleK)
			cosExit := si.Shading.Normal.Dot(si.Wo)
			ft := 1 - bxdf.FresnelDielectric(cosExit, 1, dipole.Eta)
			l = l.Add(beta.Multiply(mo).Scale(ft / math.Pi))
		}

		if si.BSDF == nil {
			break
		}

		// Continue along the surface BSDF (specular boundary reflection)
		wi, f, pdf, sampledType := si.BSDF.SampleF(si.Wo, sampler.Get2D(), core.BSDFAll)
		if pdf == 0 || f.IsBlack() {
			break
		}
		// Refracted rays would re-enter the diffusion interior the cache
		// already accounts for
		if si.BSSRDF != nil && sampledType&core.BSDFTransmission != 0 {
			break
		}
		beta = beta.Multiply(f.Scale(wi.AbsDot(si.Shading.Normal) / pdf))
		ray = si.SpawnRay(wi)
	}

	return l
}
