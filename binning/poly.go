package binning

import (
	"fmt"

	"github.com/phil-mansfield/polyspectra/internal/werr"
)

// Poly is the n-point generalization of Power: an order-n tensor of
// shell tuples, each entry a ratio of an all-reduced numerator and
// denominator sum, plus a computed bitmap (SPEC_FULL.md section 4.7,
// Open Question 2's REDESIGN) recording which entries have been
// filled, either directly or by symmetry fill, so a later lookup can
// tell "not yet computed" apart from "computed and genuinely zero".
type Poly struct {
	axis axis
	n    int

	P123     []float64
	N123     []float64
	computed []bool
}

// NewPoly builds an order-n polyspectrum binning with nb shells
// covering [kmin, kmax) under scale, shared identically across every
// one of the n tuple axes.
func NewPoly(n, nb int, kmin, kmax float64, scale Scale) (*Poly, error) {
	if n < 2 {
		return nil, fmt.Errorf("binning.NewPoly: order %d must be >= 2: %w", n, werr.ErrBadBinning)
	}
	a, err := newAxis(nb, kmin, kmax, scale)
	if err != nil {
		return nil, err
	}
	size := pow(nb, n)
	return &Poly{
		axis:     a,
		n:        n,
		P123:     make([]float64, size),
		N123:     make([]float64, size),
		computed: make([]bool, size),
	}, nil
}

// NewBispectrum is a constructor alias for the n=3 case, matching
// SPEC_FULL.md section 4.7's "not a distinct type" note.
func NewBispectrum(nb int, kmin, kmax float64, scale Scale) (*Poly, error) {
	return NewPoly(3, nb, kmin, kmax, scale)
}

func pow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

// Order returns n, the tuple arity.
func (p *Poly) Order() int { return p.n }

// NumBins returns the per-axis shell count.
func (p *Poly) NumBins() int { return p.axis.nb }

// Locate finds the shell index containing |k|, shared with Power's
// bin-location logic so a polyspectrum engine's shells line up
// exactly with a Power binning built with the same (nb, kmin, kmax,
// scale).
func (p *Poly) Locate(k float64) (bin int, ok bool) { return p.axis.locate(k) }

// Index computes the flat mixed-radix index of tuple ik (length n,
// each component in [0, NumBins())).
func (p *Poly) Index(ik []int) int {
	flat := 0
	for _, v := range ik {
		flat = flat*p.axis.nb + v
	}
	return flat
}

// Decode is Index's inverse.
func (p *Poly) Decode(flat int) []int {
	ik := make([]int, p.n)
	for i := p.n - 1; i >= 0; i-- {
		ik[i] = flat % p.axis.nb
		flat /= p.axis.nb
	}
	return ik
}

// Midpoint returns the center wavenumber of shell i, used for the
// degenerate-shell (no modes fell inside it) convention.
func (p *Poly) Midpoint(i int) float64 { return p.axis.midpoint(i) }

// BinEdges returns the [lo, hi) wavenumber range of shell i.
func (p *Poly) BinEdges(i int) (lo, hi float64) { return p.axis.binEdges(i) }

// IsComputed reports whether the entry at flat index has been filled
// (directly or by symmetry fill).
func (p *Poly) IsComputed(flat int) bool { return p.computed[flat] }

// SetEntry records the polyspectrum ratio and denominator for flat
// index and marks it computed.
func (p *Poly) SetEntry(flat int, pValue, nValue float64) {
	p.P123[flat] = pValue
	p.N123[flat] = nValue
	p.computed[flat] = true
}
