package core

import "math"

// PowerHeuristic implements the power heuristic for multiple importance sampling.
// This balances between two sampling strategies (typically light sampling vs BSDF sampling).
func PowerHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	if fPdf == 0 {
		return 0
	}

	f := float64(nf) * fPdf
	g := float64(ng) * gPdf

	// Power heuristic with beta = 2 (squared)
	return (f * f) / (f*f + g*g)
}

// BalanceHeuristic implements the balance heuristic for multiple importance sampling
func BalanceHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	if fPdf == 0 {
		return 0
	}

	f := float64(nf) * fPdf
	g := float64(ng) * gPdf

	return f / (f + g)
}

// SampleUniformSphere maps a 2D sample to a uniform direction on the sphere
func SampleUniformSphere(u Vec2) Vec3 {
	z := 1 - 2*u.X
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * u.Y
	return Vec3{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
}

// UniformSpherePDF returns the solid-angle PDF of uniform sphere sampling
func UniformSpherePDF() float64 {
	return 1 / (4 * math.Pi)
}

// SampleUniformHemisphere maps a 2D sample to a uniform direction on the
// local +Z hemisphere
func SampleUniformHemisphere(u Vec2) Vec3 {
	z := u.X
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * u.Y
	return Vec3{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
}

// UniformHemispherePDF returns the solid-angle PDF of uniform hemisphere sampling
func UniformHemispherePDF() float64 {
	return 1 / (2 * math.Pi)
}

// SampleConcentricDisk maps a 2D sample to the unit disk with low distortion
func SampleConcentricDisk(u Vec2) Vec2 {
	// Map [0,1)^2 to [-1,1]^2
	ox := 2*u.X - 1
	oy := 2*u.Y - 1
	if ox == 0 && oy == 0 {
		return Vec2{}
	}

	var r, theta float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = math.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math.Pi/2 - math.Pi/4*(ox/oy)
	}
	return Vec2{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
}

// SampleCosineHemisphere maps a 2D sample to a cosine-weighted direction on
// the local +Z hemisphere by projecting a disk sample
func SampleCosineHemisphere(u Vec2) Vec3 {
	d := SampleConcentricDisk(u)
	z := math.Sqrt(math.Max(0, 1-d.X*d.X-d.Y*d.Y))
	return Vec3{X: d.X, Y: d.Y, Z: z}
}

// CosineHemispherePDF returns the solid-angle PDF of cosine-weighted sampling
func CosineHemispherePDF(cosTheta float64) float64 {
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / math.Pi
}

// SampleUniformCone maps a 2D sample to a direction inside a cone around the
// local +Z axis with the given maximum cone angle cosine
func SampleUniformCone(u Vec2, cosThetaMax float64) Vec3 {
	cosTheta := (1 - u.X) + u.X*cosThetaMax
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * u.Y
	return Vec3{X: sinTheta * math.Cos(phi), Y: sinTheta * math.Sin(phi), Z: cosTheta}
}

// UniformConePDF returns the solid-angle PDF of uniform cone sampling
func UniformConePDF(cosThetaMax float64) float64 {
	return 1 / (2 * math.Pi * (1 - cosThetaMax))
}

// SampleUniformTriangle maps a 2D sample to barycentric coordinates (b0, b1)
// uniformly distributed over a triangle
func SampleUniformTriangle(u Vec2) Vec2 {
	su0 := math.Sqrt(u.X)
	return Vec2{X: 1 - su0, Y: u.Y * su0}
}

// Distribution1D represents a piecewise-constant 1D distribution for discrete
// and continuous importance sampling
type Distribution1D struct {
	Values   []float64 // unnormalized function values
	CDF      []float64 // cumulative distribution, len(Values)+1 entries
	Integral float64   // average function value
}

// NewDistribution1D builds a distribution from unnormalized function values
func NewDistribution1D(values []float64) *Distribution1D {
	n := len(values)
	d := &Distribution1D{
		Values: append([]float64(nil), values...),
		CDF:    make([]float64, n+1),
	}

	for i := 1; i <= n; i++ {
		d.CDF[i] = d.CDF[i-1] + d.Values[i-1]/float64(n)
	}

	d.Integral = d.CDF[n]
	if d.Integral == 0 {
		// Degenerate function: fall back to uniform
		for i := 1; i <= n; i++ {
			d.CDF[i] = float64(i) / float64(n)
		}
	} else {
		for i := 1; i <= n; i++ {
			d.CDF[i] /= d.Integral
		}
	}
	return d
}

// Count returns the number of piecewise-constant segments
func (d *Distribution1D) Count() int {
	return len(d.Values)
}

// findInterval locates the CDF segment containing u by binary search
func (d *Distribution1D) findInterval(u float64) int {
	lo, hi := 0, len(d.CDF)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if d.CDF[mid] <= u {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// SampleContinuous samples a continuous value in [0,1) proportional to the
// function, returning the value, its PDF, and the segment index
func (d *Distribution1D) SampleContinuous(u float64) (float64, float64, int) {
	offset := d.findInterval(u)

	du := u - d.CDF[offset]
	if delta := d.CDF[offset+1] - d.CDF[offset]; delta > 0 {
		du /= delta
	}

	pdf := 0.0
	if d.Integral > 0 {
		pdf = d.Values[offset] / d.Integral
	}
	return (float64(offset) + du) / float64(d.Count()), pdf, offset
}

// SampleDiscrete samples a segment index proportional to the function,
// returning the index and its discrete probability
func (d *Distribution1D) SampleDiscrete(u float64) (int, float64) {
	offset := d.findInterval(u)
	return offset, d.DiscretePDF(offset)
}

// DiscretePDF returns the probability of sampling segment i
func (d *Distribution1D) DiscretePDF(i int) float64 {
	if d.Integral == 0 {
		return 1 / float64(d.Count())
	}
	return d.Values[i] / (d.Integral * float64(d.Count()))
}

// Distribution2D represents a piecewise-constant 2D distribution built from
// a grid of function values, sampled as marginal rows then conditional columns
type Distribution2D struct {
	conditional []*Distribution1D // per-row conditional p(u|v)
	marginal    *Distribution1D   // marginal p(v)
}

// NewDistribution2D builds a 2D distribution from a row-major grid of values
func NewDistribution2D(values []float64, nu, nv int) *Distribution2D {
	d := &Distribution2D{
		conditional: make([]*Distribution1D, nv),
	}
	marginalValues := make([]float64, nv)
	for v := 0; v < nv; v++ {
		d.conditional[v] = NewDistribution1D(values[v*nu : (v+1)*nu])
		marginalValues[v] = d.conditional[v].Integral
	}
	d.marginal = NewDistribution1D(marginalValues)
	return d
}

// SampleContinuous samples (u, v) in [0,1)^2 proportional to the function,
// returning the point and its PDF
func (d *Distribution2D) SampleContinuous(u Vec2) (Vec2, float64) {
	v, pdfV, vi := d.marginal.SampleContinuous(u.Y)
	uu, pdfU, _ := d.conditional[vi].SampleContinuous(u.X)
	return Vec2{X: uu, Y: v}, pdfU * pdfV
}

// PDF returns the value of the distribution's density at (u, v)
func (d *Distribution2D) PDF(p Vec2) float64 {
	nu := d.conditional[0].Count()
	nv := len(d.conditional)
	iu := min(nu-1, max(0, int(p.X*float64(nu))))
	iv := min(nv-1, max(0, int(p.Y*float64(nv))))
	if d.marginal.Integral == 0 {
		return 0
	}
	return d.conditional[iv].Values[iu] / d.marginal.Integral
}
