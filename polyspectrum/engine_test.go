package polyspectrum

import (
	"math"
	"testing"

	"github.com/phil-mansfield/polyspectra/binning"
	"github.com/phil-mansfield/polyspectra/comm"
	"github.com/phil-mansfield/polyspectra/fft"
	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/internal/fixtures"
	"github.com/phil-mansfield/polyspectra/kernel"
	"github.com/phil-mansfield/polyspectra/particle"
)

// TestComputeZeroFieldIsZero is P7: a zero field produces a
// polyspectrum of all zeros, with every admissible tuple's
// denominator (mode count) still strictly positive.
func TestComputeZeroFieldIsZero(t *testing.T) {
	dim, n := 3, 8
	g, err := grid.New(dim, n, 0, 0, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.FillReal(0); err != nil {
		t.Fatal(err)
	}
	d := fft.NewDriver(comm.Local())
	if err := d.Forward(g); err != nil {
		t.Fatal(err)
	}

	eng, err := NewEngine(g, comm.Local(), 3, 3, 0, float64(n), binning.Linear)
	if err != nil {
		t.Fatal(err)
	}
	poly, err := eng.Compute()
	if err != nil {
		t.Fatal(err)
	}

	sawComputed := false
	for flat := 0; flat < len(poly.P123); flat++ {
		if !poly.IsComputed(flat) {
			continue
		}
		sawComputed = true
		if poly.P123[flat] != 0 {
			t.Fatalf("flat %d: P=%v, want 0 for a zero field", flat, poly.P123[flat])
		}
		if poly.N123[flat] <= 0 {
			t.Fatalf("flat %d: N=%v, want > 0 (admissible tuples should have nonzero mode counts)", flat, poly.N123[flat])
		}
	}
	if !sawComputed {
		t.Fatal("expected at least one admissible tuple to be computed")
	}
}

// TestComputeSymmetryFill is P6: every permutation of a computed
// canonical tuple carries the same P/N values and is itself marked
// computed.
func TestComputeSymmetryFill(t *testing.T) {
	dim, n := 3, 8
	s := fixtures.RandomParticles(5, dim, 300)
	g, err := scatterAndTransform(dim, n, s, kernel.CIC)
	if err != nil {
		t.Fatal(err)
	}

	eng, err := NewEngine(g, comm.Local(), 3, 3, 0, float64(n), binning.Linear)
	if err != nil {
		t.Fatal(err)
	}
	poly, err := eng.Compute()
	if err != nil {
		t.Fatal(err)
	}

	nb := poly.NumBins()
	checked := false
	for i := 0; i < nb; i++ {
		for j := i; j < nb; j++ {
			for k := j; k < nb; k++ {
				canon := poly.Index([]int{i, j, k})
				if !poly.IsComputed(canon) {
					continue
				}
				perm := poly.Index([]int{k, j, i})
				if !poly.IsComputed(perm) {
					t.Fatalf("permutation (%d,%d,%d) of computed canonical (%d,%d,%d) not marked computed", k, j, i, i, j, k)
				}
				if poly.P123[perm] != poly.P123[canon] || poly.N123[perm] != poly.N123[canon] {
					t.Fatalf("permutation (%d,%d,%d) disagrees with canonical (%d,%d,%d): P=%v/%v N=%v/%v",
						k, j, i, i, j, k, poly.P123[perm], poly.P123[canon], poly.N123[perm], poly.N123[canon])
				}
				checked = true
			}
		}
	}
	if !checked {
		t.Fatal("no computed canonical tuple found to check symmetry against")
	}
}

// TestScenario5BispectrumOfGaussianFieldNearZero: the reduced
// bispectrum of a Gaussian random field (no three-point structure by
// construction) should be small compared to 1, the scale a nonzero
// triangle configuration would produce, within the sampling noise a
// small grid's triangle counts carry.
func TestScenario5BispectrumOfGaussianFieldNearZero(t *testing.T) {
	dim, n := 3, 16
	g, err := grid.New(dim, n, 0, 0, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := fixtures.GaussianField(17, g, 1.0); err != nil {
		t.Fatal(err)
	}
	d := fft.NewDriver(comm.Local())
	if err := d.Forward(g); err != nil {
		t.Fatal(err)
	}

	bis, err := ComputeBispectrum(g, comm.Local(), 3, 1, float64(n)/2, binning.Linear)
	if err != nil {
		t.Fatal(err)
	}

	for flat, v := range bis.Reduced {
		if !bis.IsComputed(flat) {
			continue
		}
		if bis.N123[flat] < 4 {
			// too few triangles in this shell combination for the
			// sampling-noise bound below to be meaningful.
			continue
		}
		tol := 5 / math.Sqrt(bis.N123[flat])
		if math.Abs(v) > tol {
			t.Fatalf("flat %d: reduced bispectrum %v exceeds sampling-noise tolerance %v for a Gaussian field", flat, v, tol)
		}
	}
}

// scatterAndTransform builds a deposited, deconvolved, forward
// transformed field from a particle stream, the common setup every
// non-trivial engine test needs.
func scatterAndTransform(dim, n int, s *particle.Stream, k kernel.Kind) (*grid.SlabGrid, error) {
	gw := k.GhostWidth()
	g, err := grid.New(dim, n, gw, gw, 0, 1)
	if err != nil {
		return nil, err
	}
	if err := g.FillReal(0); err != nil {
		return nil, err
	}
	if err := kernel.Scatter(g, s, k); err != nil {
		return nil, err
	}
	comm.FoldGhost(comm.Local(), g)
	d := fft.NewDriver(comm.Local())
	if err := d.Forward(g); err != nil {
		return nil, err
	}
	if err := kernel.Deconvolve(g, k); err != nil {
		return nil, err
	}
	return g, nil
}
