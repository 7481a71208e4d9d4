package lights

import "github.com/radiant-render/radiant/pkg/core"

// Distribution selects lights with probability proportional to their power
type Distribution struct {
	Lights []Light
	dist   *core.Distribution1D
}

// NewDistribution builds a power-weighted light selection distribution
func NewDistribution(lightList []Light) *Distribution {
	values := make([]float64, len(lightList))
	for i, l := range lightList {
		values[i] = l.Power().Luminance()
	}
	return &Distribution{
		Lights: lightList,
		dist:   core.NewDistribution1D(values),
	}
}

// Sample picks a light, returning it with its selection probability
func (d *Distribution) Sample(u float64) (Light, float64, int) {
	if len(d.Lights) == 0 {
		return nil, 0, -1
	}
	index, pmf := d.dist.SampleDiscrete(u)
	return d.Lights[index], pmf, index
}

// PMF returns the selection probability of the light at index i
func (d *Distribution) PMF(i int) float64 {
	if i < 0 || i >= len(d.Lights) {
		return 0
	}
	return d.dist.DiscretePDF(i)
}

// IndexOf returns the index of a light in the distribution, or -1
func (d *Distribution) IndexOf(light Light) int {
	for i, l := range d.Lights {
		if l == light {
			return i
		}
	}
	return -1
}
