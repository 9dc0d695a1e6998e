package smoothing

import (
	"errors"
	"math"
	"testing"

	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/internal/werr"
)

func TestApplyRequiresFourierStatus(t *testing.T) {
	g, err := grid.New(3, 8, 0, 0, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(g, "gaussian", 1.0); !errors.Is(err, werr.ErrStateMismatch) {
		t.Fatalf("Apply on a Real grid: err=%v, want ErrStateMismatch", err)
	}
}

func TestApplyUnknownFilter(t *testing.T) {
	g, err := fourierGrid(3, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(g, "bogus", 1.0); !errors.Is(err, werr.ErrUnknownKernel) {
		t.Fatalf("Apply(bogus): err=%v, want ErrUnknownKernel", err)
	}
}

func TestApplyTopHatRejectsUnsupportedDim(t *testing.T) {
	g, err := fourierGrid(4, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(g, "tophat", 1.0); !errors.Is(err, werr.ErrUnsupportedDim) {
		t.Fatalf("Apply(tophat) at dim=4: err=%v, want ErrUnsupportedDim", err)
	}
}

// TestScenario3TopHat3DMatchesAnalyticFormula: applying the 3D
// top-hat filter scales every amplitude by the literal formula
// evaluated at each mode's own |k|, for a deterministic input field.
func TestScenario3TopHat3DMatchesAnalyticFormula(t *testing.T) {
	n := 8
	r := 2.0 / float64(n)
	g, err := fourierGrid(3, n)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.FillFourier(complex(1, 0)); err != nil {
		t.Fatal(err)
	}

	want := make([]float64, len(g.FourierRaw()))
	g.ForEachFourier(func(idx int) {
		_, kmag := g.GetFourierWavevectorAndNorm(idx)
		kR := kmag * r
		if kR < thresholdKR {
			want[idx] = 1.0
		} else {
			want[idx] = 3.0 * (math.Sin(kR) - kR*math.Cos(kR)) / (kR * kR * kR)
		}
	})

	if err := Apply(g, "tophat", r); err != nil {
		t.Fatal(err)
	}
	for idx, v := range g.FourierRaw() {
		if math.Abs(real(v)-want[idx]) > 1e-9 || imag(v) != 0 {
			t.Fatalf("idx %d: got %v, want %v+0i", idx, v, want[idx])
		}
	}
}

func TestSharpKCutsAtUnitKR(t *testing.T) {
	if filterSharpK(0.99) != 1.0 {
		t.Fatal("sharp-k should pass kR < 1")
	}
	if filterSharpK(1.0) != 0.0 {
		t.Fatal("sharp-k should reject kR >= 1")
	}
}

func TestGaussianAtZeroIsOne(t *testing.T) {
	if v := filterGaussian(0); v != 1.0 {
		t.Fatalf("gaussian(0) = %v, want 1", v)
	}
}

func TestTopHatsAreOneAtSmallKR(t *testing.T) {
	if filterTopHat2D(0) != 1.0 {
		t.Fatal("tophat-2D(0) should be 1")
	}
	if filterTopHat3D(0) != 1.0 {
		t.Fatal("tophat-3D(0) should be 1")
	}
}

func fourierGrid(dim, n int) (*grid.SlabGrid, error) {
	g, err := grid.New(dim, n, 0, 0, 0, 1)
	if err != nil {
		return nil, err
	}
	g.SetStatus(grid.Fourier)
	return g, nil
}
