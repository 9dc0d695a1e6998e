// Package binning implements C5: the power-spectrum and n-point
// polyspectrum accumulators that the spectrum and polyspectrum
// packages fill and normalize. Bin location and bin-midpoint
// arithmetic are shared between binning.Power and binning.Poly, so
// they live in this one file rather than being duplicated.
package binning

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/polyspectra/internal/werr"
)

// Scale selects how a wavenumber maps onto a bin index.
type Scale int

const (
	Linear Scale = iota
	Log
)

func (s Scale) String() string {
	if s == Log {
		return "log"
	}
	return "linear"
}

// axis bundles the (nb, kmin, kmax, scale) shape shared by Power and
// each axis of Poly's n-dimensional tensor.
type axis struct {
	nb         int
	kmin, kmax float64
	scale      Scale
}

func newAxis(nb int, kmin, kmax float64, scale Scale) (axis, error) {
	if nb < 1 {
		return axis{}, fmt.Errorf("binning: number of bins %d must be >= 1: %w", nb, werr.ErrBadBinning)
	}
	if kmin < 0 || kmin >= kmax {
		return axis{}, fmt.Errorf("binning: require 0 <= kmin < kmax, got [%v, %v): %w", kmin, kmax, werr.ErrBadBinning)
	}
	if scale == Log && kmin <= 0 {
		return axis{}, fmt.Errorf("binning: log scale requires kmin > 0, got %v: %w", kmin, werr.ErrBadBinning)
	}
	return axis{nb: nb, kmin: kmin, kmax: kmax, scale: scale}, nil
}

// locate returns the bin index containing k, or ok=false if k is
// outside [kmin, kmax).
func (a axis) locate(k float64) (bin int, ok bool) {
	if k < a.kmin || k >= a.kmax {
		return 0, false
	}
	switch a.scale {
	case Log:
		lo, hi := math.Log(a.kmin), math.Log(a.kmax)
		frac := (math.Log(k) - lo) / (hi - lo)
		bin = int(frac * float64(a.nb))
	default:
		frac := (k - a.kmin) / (a.kmax - a.kmin)
		bin = int(frac * float64(a.nb))
	}
	if bin < 0 {
		bin = 0
	}
	if bin >= a.nb {
		bin = a.nb - 1
	}
	return bin, true
}

// midpoint returns the center wavenumber of bin i, used when a bin
// received no weight and its kbin would otherwise be undefined.
func (a axis) midpoint(i int) float64 {
	switch a.scale {
	case Log:
		lo, hi := math.Log(a.kmin), math.Log(a.kmax)
		return math.Exp(lo + (float64(i)+0.5)*(hi-lo)/float64(a.nb))
	default:
		return a.kmin + (float64(i)+0.5)*(a.kmax-a.kmin)/float64(a.nb)
	}
}

// binEdges returns the [lo, hi) wavenumber range of bin i, used by
// the polyspectrum engine's closable-polygon admissibility check.
func (a axis) binEdges(i int) (lo, hi float64) {
	switch a.scale {
	case Log:
		l, h := math.Log(a.kmin), math.Log(a.kmax)
		lo = math.Exp(l + float64(i)*(h-l)/float64(a.nb))
		hi = math.Exp(l + float64(i+1)*(h-l)/float64(a.nb))
	default:
		lo = a.kmin + float64(i)*(a.kmax-a.kmin)/float64(a.nb)
		hi = a.kmin + float64(i+1)*(a.kmax-a.kmin)/float64(a.nb)
	}
	return lo, hi
}
