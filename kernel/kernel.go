// Package kernel implements C4: the NGP/CIC/TSC/PCS density
// assignment kernels, their scatter onto a SlabGrid, and the Fourier
// deconvolution of the resulting window. The real-space weight
// shapes are the standard cosmology assignment kernels; the
// periodic-wrap style used while walking a particle's support window
// is grounded on other_examples/phil-mansfield-gotetra__box.go's
// bound() helper (reused here as style only — gotetra itself is not
// a dependency of this module, see DESIGN.md).
package kernel

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/internal/parallel"
	"github.com/phil-mansfield/polyspectra/internal/werr"
	"github.com/phil-mansfield/polyspectra/particle"
)

// Kind identifies an assignment kernel.
type Kind int

const (
	NGP Kind = iota
	CIC
	TSC
	PCS
)

// Parse maps an external selector string to a Kind.
func Parse(name string) (Kind, error) {
	switch name {
	case "NGP":
		return NGP, nil
	case "CIC":
		return CIC, nil
	case "TSC":
		return TSC, nil
	case "PCS":
		return PCS, nil
	default:
		return 0, fmt.Errorf("kernel.Parse: %q is not one of NGP/CIC/TSC/PCS: %w", name, werr.ErrUnknownKernel)
	}
}

// Support returns the kernel's support radius s, in cell units, as
// used by the Fourier window exponent s+1.
func (k Kind) Support() float64 {
	switch k {
	case NGP:
		return 0
	case CIC:
		return 1
	case TSC:
		return 1.5
	case PCS:
		return 2
	}
	return 0
}

// GhostWidth returns the number of ghost planes this kernel requires
// on each side for Scatter's support window to stay in bounds,
// regardless of where inside a cell a particle near the slab edge
// falls: NGP/CIC can reach one plane beyond the owned range, TSC/PCS
// up to two.
func (k Kind) GhostWidth() int {
	switch k {
	case NGP, CIC:
		return 1
	case TSC, PCS:
		return 2
	}
	return 0
}

// weight1D is the real-space piecewise-polynomial kernel of order
// matching k, evaluated at a signed distance dx (in cell units) from
// a particle to a candidate cell center.
func (k Kind) weight1D(dx float64) float64 {
	a := math.Abs(dx)
	switch k {
	case NGP:
		if a < 0.5 {
			return 1
		}
		return 0
	case CIC:
		if a < 1 {
			return 1 - a
		}
		return 0
	case TSC:
		switch {
		case a < 0.5:
			return 0.75 - a*a
		case a < 1.5:
			return 0.5 * (1.5 - a) * (1.5 - a)
		default:
			return 0
		}
	case PCS:
		switch {
		case a < 1:
			return (4 - 6*a*a + 3*a*a*a) / 6
		case a < 2:
			d := 2 - a
			return d * d * d / 6
		default:
			return 0
		}
	}
	return 0
}

// cellOffsets returns the integer offsets, relative to floor(xN),
// whose weight1D can be nonzero for some fractional part in [0,1) —
// a superset filtered per-particle by the weight1D evaluation itself,
// in the order scatter should visit them.
func (k Kind) cellOffsets() []int {
	switch k {
	case NGP:
		return []int{0, 1}
	case CIC:
		return []int{0, 1}
	case TSC:
		return []int{-1, 0, 1, 2}
	case PCS:
		return []int{-1, 0, 1, 2}
	}
	return nil
}

// Scatter deposits every particle in s onto g (which must be in
// status Real) using kernel k, each with weight 1/s.NTotal. g must
// have at least GhostWidth() ghost planes on each side. The particle
// range is split into parallel.Ranges, each scattered by its own
// goroutine into a private zero-filled grid of g's shape; the
// partials are summed into g's real view, in range order, once every
// goroutine has returned.
func Scatter(g *grid.SlabGrid, s *particle.Stream, k Kind) error {
	if g.Status() != grid.Real {
		return fmt.Errorf("kernel.Scatter: %w", werr.ErrStateMismatch)
	}
	if s.NTotal <= 0 {
		return fmt.Errorf("kernel.Scatter: NTotal must be positive: %w", werr.ErrPrecondition)
	}

	ranges := parallel.Ranges(s.Len())
	if len(ranges) == 1 {
		return scatterRange(g, s, k, ranges[0][0], ranges[0][1])
	}

	partials := make([]*grid.SlabGrid, len(ranges))
	var eg errgroup.Group
	for i, r := range ranges {
		i, r := i, r
		local, err := grid.New(g.Dim(), g.N(), g.NLeft(), g.NRight(), g.Rank(), g.NRanks())
		if err != nil {
			return err
		}
		partials[i] = local
		eg.Go(func() error {
			return scatterRange(local, s, k, r[0], r[1])
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	dst := g.RealRaw()
	for _, local := range partials {
		src := local.RealRaw()
		for i := range dst {
			dst[i] += src[i]
		}
	}
	return nil
}

// scatterRange runs Scatter's per-particle deposit for particles
// [start, end) of s onto g.
func scatterRange(g *grid.SlabGrid, s *particle.Stream, k Kind, start, end int) error {
	n := g.N()
	dim := g.Dim()
	w := 1.0 / float64(s.NTotal)
	offsets := k.cellOffsets()

	coord := make([]int, dim)
	cellPos := make([]float64, dim)
	idxBase := make([]int, dim)

	for p := start; p < end; p++ {
		pos := s.Pos[p]
		for a := 0; a < dim; a++ {
			cellPos[a] = pos[a] * float64(n)
			idxBase[a] = int(math.Floor(cellPos[a]))
		}
		if err := scatterAxis(g, coord, idxBase, cellPos, offsets, k, w, 0, 1.0, n); err != nil {
			return err
		}
	}
	return nil
}

func scatterAxis(
	g *grid.SlabGrid, coord, idxBase []int, cellPos []float64, offsets []int,
	k Kind, w float64, axis int, weightSoFar float64, n int,
) error {
	if axis == len(coord) {
		return g.AddReal(coord, w*weightSoFar)
	}
	for _, off := range offsets {
		c := idxBase[axis] + off
		dx := cellPos[axis] - float64(c)
		wt := k.weight1D(dx)
		if wt == 0 {
			continue
		}
		ci := wrapInt(c, n)
		if axis == 0 {
			var ok bool
			ci, ok = localXCoord(g, ci, n)
			if !ok {
				// This global cell belongs to neither this rank's
				// owned range nor its ghost planes; some other rank
				// owns the contribution.
				continue
			}
		}
		coord[axis] = ci
		if err := scatterAxis(g, coord, idxBase, cellPos, offsets, k, w, axis+1, weightSoFar*wt, n); err != nil {
			return err
		}
	}
	return nil
}

// localXCoord converts a global, already-wrapped axis-0 cell index
// into the local coordinate grid.SlabGrid.AddReal expects (owned
// range [0, LocalNx), ghost range [-NLeft, 0) and [LocalNx,
// LocalNx+NRight)), periodically wrapping around the grid seam if
// that brings the index closer to this rank's slab. Returns ok=false
// if the cell is owned by neither this rank's slab nor its ghosts.
func localXCoord(g *grid.SlabGrid, globalX, n int) (int, bool) {
	lo, hi := -g.NLeft(), g.LocalNx()+g.NRight()
	base := globalX - g.XStart()
	for _, local := range [3]int{base, base - n, base + n} {
		if local >= lo && local < hi {
			return local, true
		}
	}
	return 0, false
}

func wrapInt(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

// deconvolveEps is the Fourier window magnitude below which
// Deconvolve leaves an amplitude unchanged rather than dividing by a
// near-zero denominator.
const deconvolveEps = 1e-12

// WindowFourier evaluates the assignment kernel's Fourier-space
// window Ŵ(k) = prod_j sinc(k_j/(2N))^(s+1), where k_j = 2*pi*j' for
// the mode index j' decoded by grid.FourierModeIndices, and
// sinc(x) = sin(x)/x (unnormalized).
func WindowFourier(k Kind, n int, modeIndices []int) float64 {
	s := k.Support()
	exp := s + 1
	w := 1.0
	for _, j := range modeIndices {
		kj := 2 * math.Pi * float64(j)
		w *= math.Pow(sinc(kj/(2*float64(n))), exp)
	}
	return w
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

// Deconvolve divides every owned Fourier amplitude of g by the
// kernel's window Ŵ(k), correcting for the assignment smoothing.
// Modes where |Ŵ(k)| < deconvolveEps are left unchanged.
func Deconvolve(g *grid.SlabGrid, k Kind) error {
	if g.Status() != grid.Fourier {
		return fmt.Errorf("kernel.Deconvolve: %w", werr.ErrStateMismatch)
	}
	n := g.N()
	var outerErr error
	g.ForEachFourier(func(idx int) {
		if outerErr != nil {
			return
		}
		modes := g.FourierModeIndices(idx)
		w := WindowFourier(k, n, modes)
		if math.Abs(w) < deconvolveEps {
			return
		}
		v, err := g.GetFourier(idx)
		if err != nil {
			outerErr = err
			return
		}
		outerErr = g.SetFourier(idx, v/complex(w, 0))
	})
	return outerErr
}
