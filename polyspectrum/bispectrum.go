package polyspectrum

import (
	"github.com/phil-mansfield/polyspectra/binning"
	"github.com/phil-mansfield/polyspectra/comm"
	"github.com/phil-mansfield/polyspectra/grid"
)

// Bispectrum is the n=3 reduced form (SPEC_FULL.md section 4.7, step
// 3): the general engine's order-3 output divided by the sum of
// cross products of the three shells' linear power, mirroring how
// compute_bispectrum in the original source layers on top of the
// generic compute_polyspectrum rather than re-deriving anything.
type Bispectrum struct {
	*binning.Poly
	Reduced []float64
}

// ComputeBispectrum runs the order-3 engine over g and attaches the
// reduced bispectrum Q_123 = B_123 / (P(k1)P(k2) + P(k2)P(k3) +
// P(k3)P(k1)) for every tuple the engine marked computed; entries
// with a zero denominator stay 0.
func ComputeBispectrum(g *grid.SlabGrid, c comm.Comm, nb int, kmin, kmax float64, scale binning.Scale) (*Bispectrum, error) {
	eng, err := NewEngine(g, c, 3, nb, kmin, kmax, scale)
	if err != nil {
		return nil, err
	}
	poly, err := eng.Compute()
	if err != nil {
		return nil, err
	}

	reduced := make([]float64, len(poly.P123))
	for flat := range reduced {
		if !poly.IsComputed(flat) {
			continue
		}
		ik := poly.Decode(flat)
		p1, p2, p3 := eng.PowerAt(ik[0]), eng.PowerAt(ik[1]), eng.PowerAt(ik[2])
		denom := p1*p2 + p2*p3 + p3*p1
		if denom != 0 {
			reduced[flat] = poly.P123[flat] / denom
		}
	}
	return &Bispectrum{Poly: poly, Reduced: reduced}, nil
}
