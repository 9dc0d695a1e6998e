package kernel

import (
	"math"
	"testing"

	"github.com/phil-mansfield/polyspectra/comm"
	"github.com/phil-mansfield/polyspectra/fft"
	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/particle"
)

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("BOGUS"); err == nil {
		t.Fatal("want error for unknown kernel name")
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, name := range []string{"NGP", "CIC", "TSC", "PCS"} {
		if _, err := Parse(name); err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
	}
}

// TestScatterConservesMass checks that CIC scatter of a single
// particle deposits total weight 1/NTotal across the grid, i.e. mass
// is conserved regardless of where inside a cell the particle sits.
func TestScatterConservesMass(t *testing.T) {
	n := 8
	g, err := gridFor(n, CIC)
	if err != nil {
		t.Fatal(err)
	}
	s := particle.New(2, 1)
	if err := s.Add([]float64{0.37, 0.81}, []float64{0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := Scatter(g, s, CIC); err != nil {
		t.Fatal(err)
	}
	sum := 0.0
	g.ForEachOwnedReal(func(coord []int, idx int) {
		v, _ := g.GetReal(coord)
		sum += v
	})
	if math.Abs(sum-1.0) > 1e-12 {
		t.Fatalf("total deposited mass = %v, want 1", sum)
	}
}

// TestScatterNGPSingleCell checks NGP deposits entirely into the
// single nearest cell.
func TestScatterNGPSingleCell(t *testing.T) {
	n := 8
	g, err := gridFor(n, NGP)
	if err != nil {
		t.Fatal(err)
	}
	s := particle.New(2, 1)
	if err := s.Add([]float64{0.12, 0.12}, []float64{0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := Scatter(g, s, NGP); err != nil {
		t.Fatal(err)
	}
	nonzero := 0
	g.ForEachOwnedReal(func(coord []int, idx int) {
		v, _ := g.GetReal(coord)
		if v != 0 {
			nonzero++
			if math.Abs(v-1.0) > 1e-12 {
				t.Fatalf("NGP cell value = %v, want 1", v)
			}
		}
	})
	if nonzero != 1 {
		t.Fatalf("NGP deposited into %d cells, want 1", nonzero)
	}
}

// TestDeconvolveZeroFieldStaysZero forward transforms an all-zero
// field, deconvolves it with PCS, and checks that the DC amplitude is
// still exactly zero.
func TestDeconvolveZeroFieldStaysZero(t *testing.T) {
	n := 4
	g, err := grid.New(2, n, 2, 2, 0, 1)
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
	if err := Deconvolve(g, PCS); err != nil {
		t.Fatal(err)
	}
	v, err := g.GetFourier(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("deconvolving an all-zero field should stay zero, got %v", v)
	}
}

// TestScatterOnNonZeroRankUsesLocalCoordinates checks that a particle
// scattered onto a rank>0 slab lands in the same cells, with the same
// weights, as scattering the identical particle onto an equivalent
// single-rank grid and reading back the corresponding global cells.
// Before g.XStart() was subtracted out of the axis-0 coordinate, this
// particle's affected global cells (9 and 10) fell outside rank 1's
// local+ghost range [-1, 9) and Scatter returned ErrBadBinning.
func TestScatterOnNonZeroRankUsesLocalCoordinates(t *testing.T) {
	n := 16
	s := particle.New(2, 1)
	if err := s.Add([]float64{0.6, 0.3}, []float64{0, 0}); err != nil {
		t.Fatal(err)
	}

	ref, err := grid.New(2, n, 1, 1, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := Scatter(ref, s, CIC); err != nil {
		t.Fatal(err)
	}

	rank1, err := grid.New(2, n, 1, 1, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := Scatter(rank1, s, CIC); err != nil {
		t.Fatal(err)
	}

	for _, x := range []int{9, 10} {
		for _, y := range []int{4, 5} {
			want, err := ref.GetReal([]int{x, y})
			if err != nil {
				t.Fatal(err)
			}
			got, err := rank1.GetReal([]int{x - rank1.XStart(), y})
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-want) > 1e-12 {
				t.Fatalf("cell (%d,%d): rank1 local deposit = %v, want %v (matching single-rank reference)", x, y, got, want)
			}
		}
	}
}

// TestScatterSkipsCellsOwnedByAnotherRank checks that a particle whose
// support lies entirely outside a rank's local+ghost window deposits
// no mass on that rank's grid, rather than erroring or landing at the
// wrong cell.
func TestScatterSkipsCellsOwnedByAnotherRank(t *testing.T) {
	n := 16
	s := particle.New(2, 1)
	if err := s.Add([]float64{0.15, 0.3}, []float64{0, 0}); err != nil {
		t.Fatal(err)
	}

	rank1, err := grid.New(2, n, 1, 1, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := Scatter(rank1, s, CIC); err != nil {
		t.Fatal(err)
	}

	sum := 0.0
	rank1.ForEachOwnedReal(func(coord []int, idx int) {
		v, _ := rank1.GetReal(coord)
		sum += v
	})
	if sum != 0 {
		t.Fatalf("deposited mass on rank 1 for a particle owned by rank 0 = %v, want 0", sum)
	}
}

// TestScatterParallelMergeConservesMass checks that splitting a large
// particle stream across internal/parallel ranges and merging the
// partial grids still deposits a total mass of 1.
func TestScatterParallelMergeConservesMass(t *testing.T) {
	n := 16
	numParticles := 20000 // enough for several internal/parallel minChunk-sized ranges
	s := particle.New(2, numParticles)
	rng := newLCG(12345)
	for i := 0; i < numParticles; i++ {
		pos := []float64{rng.next(), rng.next()}
		if err := s.Add(pos, []float64{0, 0}); err != nil {
			t.Fatal(err)
		}
	}

	g, err := gridFor(n, CIC)
	if err != nil {
		t.Fatal(err)
	}
	if err := Scatter(g, s, CIC); err != nil {
		t.Fatal(err)
	}

	sum := 0.0
	g.ForEachOwnedReal(func(coord []int, idx int) {
		v, _ := g.GetReal(coord)
		sum += v
	})
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("total deposited mass across a parallel-merged scatter = %v, want 1", sum)
	}
}

// lcg is a tiny deterministic generator, used only so this test's
// particle positions don't depend on an external RNG package.
type lcg struct{ state uint64 }

func newLCG(seed uint64) *lcg { return &lcg{state: seed} }

func (g *lcg) next() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / float64(1<<53)
}

func gridFor(n int, k Kind) (*grid.SlabGrid, error) {
	gw := k.GhostWidth()
	return grid.New(2, n, gw, gw, 0, 1)
}
