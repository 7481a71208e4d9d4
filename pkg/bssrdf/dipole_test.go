package bssrdf

import (
	"math"
	"testing"

	"github.com/radiant-render/radiant/pkg/core"
)

func marbleDipole() *Dipole {
	// Marble-like parameters: low absorption, strong scattering
	return NewDipole(
		core.NewSpectrum(0.0021, 0.0041, 0.0071),
		core.NewSpectrum(2.19, 2.62, 3.00),
		1.5,
	)
}

func TestDipoleRdDecays(t *testing.T) {
	d := marbleDipole()
	prev := math.Inf(1)
	for _, r := range []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5} {
		rd := d.Rd(r).Luminance()
		if rd < 0 {
			t.Fatalf("negative diffusion kernel at r=%v", r)
		}
		if rd >= prev {
			t.Fatalf("Rd must decay monotonically: Rd(%v)=%v >= %v", r, rd, prev)
		}
		prev = rd
	}
}

func TestDipoleSpIsSymmetricInDistance(t *testing.T) {
	d := marbleDipole()
	a := core.NewVec3(1, 0, 0)
	b := core.NewVec3(0, 1, 0)
	if d.Sp(a, b) != d.Sp(b, a) {
		t.Error("spatial term must depend only on distance")
	}
}

func TestDipoleSwNonNegative(t *testing.T) {
	d := marbleDipole()
	for cos := 0.01; cos <= 1; cos += 0.05 {
		w := core.NewVec3(math.Sqrt(1-cos*cos), 0, cos)
		sw := d.Sw(w)
		if sw.R < 0 {
			t.Fatalf("negative directional term at cos=%v", cos)
		}
	}
}

func TestDipoleZeroScattering(t *testing.T) {
	// A purely absorbing medium diffuses nothing
	d := NewDipole(core.NewSpectrumUniform(1), core.Black, 1.3)
	if rd := d.Rd(0.1); !rd.IsBlack() {
		t.Errorf("absorbing-only dipole Rd = %v, want black", rd)
	}
}

func TestDipoleMeanFreePath(t *testing.T) {
	d := marbleDipole()
	if mfp := d.MeanFreePath(); mfp <= 0 || math.IsInf(mfp, 0) {
		t.Errorf("mean free path = %v", mfp)
	}
}
