// Package smoothing implements C8: the Fourier-space low-pass filters
// applied in place to a SlabGrid. Grounded literally on
// original_source/Smoothing/SmoothingFourier.h's
// smoothing_filter_fourier_space, which selects one of the same four
// filter functions by string and multiplies every Fourier amplitude
// by filter(kmag) over fourier_grid.get_fourier_range().
package smoothing

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/internal/werr"
)

const thresholdKR = 1e-5

// Apply multiplies every owned Fourier amplitude of g by filter(|k|*R)
// in place, where filter is selected by name from
// {"sharpk", "gaussian", "tophat"}. g must be in status Fourier.
// "tophat" is only defined for g.Dim() in {2,3}.
func Apply(g *grid.SlabGrid, name string, r float64) error {
	if g.Status() != grid.Fourier {
		return fmt.Errorf("smoothing.Apply: %w", werr.ErrStateMismatch)
	}
	filter, err := selectFilter(name, g.Dim())
	if err != nil {
		return err
	}

	var outerErr error
	g.ForEachFourier(func(idx int) {
		if outerErr != nil {
			return
		}
		_, kmag := g.GetFourierWavevectorAndNorm(idx)
		v, err := g.GetFourier(idx)
		if err != nil {
			outerErr = err
			return
		}
		if err := g.SetFourier(idx, v*complex(filter(kmag*r), 0)); err != nil {
			outerErr = err
		}
	})
	return outerErr
}

func selectFilter(name string, dim int) (func(kR float64) float64, error) {
	switch name {
	case "sharpk":
		return filterSharpK, nil
	case "gaussian":
		return filterGaussian, nil
	case "tophat":
		switch dim {
		case 2:
			return filterTopHat2D, nil
		case 3:
			return filterTopHat3D, nil
		default:
			return nil, fmt.Errorf("smoothing.Apply: tophat filter not defined at dimension %d: %w", dim, werr.ErrUnsupportedDim)
		}
	default:
		return nil, fmt.Errorf("smoothing.Apply: unrecognized filter %q: %w", name, werr.ErrUnknownKernel)
	}
}

func filterSharpK(kR float64) float64 {
	if kR < 1.0 {
		return 1.0
	}
	return 0.0
}

func filterGaussian(kR float64) float64 {
	return math.Exp(-0.5 * kR * kR)
}

func filterTopHat2D(kR float64) float64 {
	if kR < thresholdKR {
		return 1.0
	}
	return 2.0 / (kR * kR) * (1.0 - math.Cos(kR))
}

func filterTopHat3D(kR float64) float64 {
	if kR < thresholdKR {
		return 1.0
	}
	return 3.0 * (math.Sin(kR) - kR*math.Cos(kR)) / (kR * kR * kR)
}
