// Package fft implements C2: the forward/inverse real-to-complex
// transform over a SlabGrid. Its 1-D primitives are
// github.com/cwbudde/algo-fft's FastPlan/FastPlanReal64; since that
// library only transforms a single rank's contiguous local array and
// slab decomposition distributes just the first axis, the driver
// gathers the full N^d grid once per direction (an Allgatherv
// collective), runs an identical local multi-axis transform on every
// rank, and each rank keeps only the local_nx planes it owns. See
// SPEC_FULL.md section 4.2 for why this "gather, transform locally,
// slice back" strategy was chosen over a true pencil/slab global
// transpose.
package fft

import (
	"fmt"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/phil-mansfield/polyspectra/comm"
	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/internal/werr"
)

// Driver executes forward/inverse transforms over grids decomposed
// on a particular Comm.
type Driver struct {
	c comm.Comm
}

// NewDriver builds a Driver bound to c. Every SlabGrid passed to its
// Forward/Inverse methods must be decomposed over the same
// rank/size c reports.
func NewDriver(c comm.Comm) *Driver { return &Driver{c: c} }

// Forward requires status Real; transforms grid in place into
// status Fourier, normalized so that the DC amplitude equals
// sum(real)/N^d (SPEC_FULL.md invariant I3).
func (d *Driver) Forward(g *grid.SlabGrid) error {
	if g.Status() != grid.Real {
		return fmt.Errorf("fft.Forward: %w", werr.ErrStateMismatch)
	}
	n, dim := g.N(), g.Dim()
	rest := g.RestSize()
	owned := g.RealRaw()[g.NLeft()*rest : (g.NLeft()+g.LocalNx())*rest]

	full := d.c.AllgathervFloat64(owned)
	fourierFull, err := realForwardND(full, n, dim)
	if err != nil {
		return err
	}

	fourierRest := pow(n, dim-2) * (n/2 + 1)
	local := fourierFull[g.XStart()*fourierRest : (g.XStart()+g.LocalNx())*fourierRest]
	copy(g.FourierRaw(), local)
	g.SetStatus(grid.Fourier)
	return nil
}

// Inverse requires status Fourier; transforms grid in place into
// status Real with the conjugate normalization, so Forward and
// Inverse round-trip to the identity (P1).
func (d *Driver) Inverse(g *grid.SlabGrid) error {
	if g.Status() != grid.Fourier {
		return fmt.Errorf("fft.Inverse: %w", werr.ErrStateMismatch)
	}
	n, dim := g.N(), g.Dim()

	full := d.c.AllgathervComplex128(g.FourierRaw())
	realFull, err := realInverseND(full, n, dim)
	if err != nil {
		return err
	}

	rest := g.RestSize()
	local := realFull[g.XStart()*rest : (g.XStart()+g.LocalNx())*rest]
	copy(g.RealRaw()[g.NLeft()*rest:(g.NLeft()+g.LocalNx())*rest], local)
	g.SetStatus(grid.Real)
	return nil
}

func pow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

// realForwardND runs a row-column real-to-complex FFT of a fully
// local N^dim cube: a real FFT along the last axis, a complex FFT
// along every other axis, then a single division by n^dim so the
// whole transform matches the grid package's forward normalization.
func realForwardND(real []float64, n, dim int) ([]complex128, error) {
	half := n/2 + 1
	numLines := len(real) / n

	cplan, err := algofft.NewFastPlanReal64(n)
	if err != nil {
		return nil, fmt.Errorf("fft: building real plan of size %d: %w", n, err)
	}

	out := make([]complex128, numLines*half)
	for li := 0; li < numLines; li++ {
		cplan.Forward(out[li*half:(li+1)*half], real[li*n:(li+1)*n])
	}

	dims := make([]int, dim)
	for i := 0; i < dim-1; i++ {
		dims[i] = n
	}
	dims[dim-1] = half

	plan, err := algofft.NewFastPlan[complex128](n)
	if err != nil {
		return nil, fmt.Errorf("fft: building complex plan of size %d: %w", n, err)
	}
	for axis := 0; axis < dim-1; axis++ {
		forEachLine(dims, axis, out, plan.ForwardInPlace)
	}

	scale := 1.0 / float64(pow(n, dim))
	for i := range out {
		out[i] *= complex(scale, 0)
	}
	return out, nil
}

// realInverseND is realForwardND's inverse: complex inverse FFT
// along every non-last axis, then a real inverse FFT along the last
// axis. No normalization division — the forward pass already applied
// the full 1/n^dim scale, and algo-fft's Forward/Inverse pair is
// itself unnormalized (Inverse(Forward(x)) = n*x per axis), so
// composing an unnormalized inverse with an already-scaled forward
// input round-trips to the identity.
func realInverseND(four []complex128, n, dim int) ([]float64, error) {
	half := n/2 + 1
	dims := make([]int, dim)
	for i := 0; i < dim-1; i++ {
		dims[i] = n
	}
	dims[dim-1] = half

	plan, err := algofft.NewFastPlan[complex128](n)
	if err != nil {
		return nil, fmt.Errorf("fft: building complex plan of size %d: %w", n, err)
	}
	work := make([]complex128, len(four))
	copy(work, four)
	for axis := 0; axis < dim-1; axis++ {
		forEachLine(dims, axis, work, plan.InverseInPlace)
	}

	cplan, err := algofft.NewFastPlanReal64(n)
	if err != nil {
		return nil, fmt.Errorf("fft: building real plan of size %d: %w", n, err)
	}
	numLines := len(work) / half
	out := make([]float64, numLines*n)
	for li := 0; li < numLines; li++ {
		cplan.Inverse(out[li*n:(li+1)*n], work[li*half:(li+1)*half])
	}
	return out, nil
}

// forEachLine calls transform once per 1-D line of buf running along
// axis, in place. dims is buf's row-major shape (last axis fastest).
func forEachLine(dims []int, axis int, buf []complex128, transform func([]complex128)) {
	strides := make([]int, len(dims))
	strides[len(dims)-1] = 1
	for i := len(dims) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * dims[i+1]
	}
	stride := strides[axis]
	n := dims[axis]

	line := make([]complex128, n)
	idx := make([]int, len(dims))

	var walk func(a int)
	walk = func(a int) {
		if a == len(dims) {
			base := 0
			for i, s := range strides {
				if i != axis {
					base += idx[i] * s
				}
			}
			for k := 0; k < n; k++ {
				line[k] = buf[base+k*stride]
			}
			transform(line)
			for k := 0; k < n; k++ {
				buf[base+k*stride] = line[k]
			}
			return
		}
		if a == axis {
			idx[a] = 0
			walk(a + 1)
			return
		}
		for i := 0; i < dims[a]; i++ {
			idx[a] = i
			walk(a + 1)
		}
	}
	walk(0)
}
