package binning

import (
	"github.com/phil-mansfield/polyspectra/comm"
)

// Power is a 1-D |k|-binned accumulator: the per-worker target of
// spectrum.BinUp and every other power-spectrum-shaped estimator.
type Power struct {
	axis axis

	// Raw weighted sums, per-worker until Normalize.
	pofkSum  []float64
	kSum     []float64
	weightSum []float64

	// Pofk/Kbin hold the normalized result after Normalize.
	Pofk []float64
	Kbin []float64
}

// NewPower builds an empty Power binning with nb bins covering
// [kmin, kmax) under scale.
func NewPower(nb int, kmin, kmax float64, scale Scale) (*Power, error) {
	a, err := newAxis(nb, kmin, kmax, scale)
	if err != nil {
		return nil, err
	}
	p := &Power{axis: a}
	p.Reset()
	return p, nil
}

// NumBins reports the bin count.
func (p *Power) NumBins() int { return p.axis.nb }

// Reset zeros every accumulator, keeping the binning's shape.
func (p *Power) Reset() {
	nb := p.axis.nb
	p.pofkSum = make([]float64, nb)
	p.kSum = make([]float64, nb)
	p.weightSum = make([]float64, nb)
	p.Pofk = make([]float64, nb)
	p.Kbin = make([]float64, nb)
}

// Add locates the bin containing k and, if in range, accumulates
// weight*value, weight*k, and weight. Values for k outside
// [kmin, kmax) are silently dropped.
func (p *Power) Add(k, value, weight float64) {
	bin, ok := p.axis.locate(k)
	if !ok {
		return
	}
	p.pofkSum[bin] += weight * value
	p.kSum[bin] += weight * k
	p.weightSum[bin] += weight
}

// NewLike returns an empty Power sharing p's bin axis, for a
// goroutine-local partial accumulator that a parallel Add loop fills
// before handing it back to MergeFrom.
func (p *Power) NewLike() *Power {
	out := &Power{axis: p.axis}
	out.Reset()
	return out
}

// MergeFrom adds another Power's raw weighted sums into p. other
// must have been built by p.NewLike, or otherwise share p's axis.
func (p *Power) MergeFrom(other *Power) {
	for i := 0; i < p.axis.nb; i++ {
		p.pofkSum[i] += other.pofkSum[i]
		p.kSum[i] += other.kSum[i]
		p.weightSum[i] += other.weightSum[i]
	}
}

// Normalize all-reduce sums the raw accumulators across every worker
// in c, then divides Pofk/Kbin by the summed weight where it is
// positive; bins that received no weight anywhere get Kbin set to
// the bin midpoint and Pofk left at 0.
func (p *Power) Normalize(c comm.Comm) {
	c.AllreduceSumFloat64(p.pofkSum)
	c.AllreduceSumFloat64(p.kSum)
	c.AllreduceSumFloat64(p.weightSum)

	for i := 0; i < p.axis.nb; i++ {
		if p.weightSum[i] > 0 {
			p.Pofk[i] = p.pofkSum[i] / p.weightSum[i]
			p.Kbin[i] = p.kSum[i] / p.weightSum[i]
		} else {
			p.Pofk[i] = 0
			p.Kbin[i] = p.axis.midpoint(i)
		}
	}
}
