// Package grid implements the slab-decomposed periodic scalar field
// (SlabGrid<d> in SPEC_FULL.md's component table): a real/Fourier
// dual-view array partitioned across workers along its first axis,
// with ghost slabs for assignment-kernel support. Nothing in this
// package talks to a transport: rank and world size are passed in as
// plain ints at construction, exactly the "capture once, thread
// explicitly" design note in SPEC_FULL.md section 9 — it is the comm
// package that wraps a SlabGrid with real collectives, not the other
// way around.
package grid

import (
	"fmt"

	"github.com/phil-mansfield/polyspectra/internal/werr"
)

// Status is the grid's Real/Fourier state.
type Status int

const (
	Real Status = iota
	Fourier
)

func (s Status) String() string {
	if s == Real {
		return "REAL"
	}
	return "FOURIER"
}

// SlabGrid is a periodic d-dimensional scalar field decomposed across
// workers along axis 0.
type SlabGrid struct {
	dim    int
	n      int
	nLeft  int
	nRight int

	rank    int
	nRanks  int
	localNx int
	xStart  int

	status Status

	restSize    int // N^(dim-1): elements per real-view plane
	fourierRest int // N^(dim-2)*(N/2+1): elements per Fourier-view plane

	real   []float64
	four   []complex128
}

// New builds a SlabGrid<dim> of side length n, with nLeft/nRight
// ghost planes, decomposed as rank `rank` of `nRanks` total workers.
// n must be a power of two (the FFT backend in the fft package
// requires it); this is reported as ErrBadBinning since grid sizing
// and binning sizing share the same "malformed numeric parameter"
// error kind.
func New(dim, n, nLeft, nRight, rank, nRanks int) (*SlabGrid, error) {
	if dim < 2 {
		return nil, fmt.Errorf("grid.New: dimension %d must be >= 2: %w", dim, werr.ErrUnsupportedDim)
	}
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("grid.New: grid size %d must be a power of two: %w", n, werr.ErrBadBinning)
	}
	if nLeft < 0 || nRight < 0 {
		return nil, fmt.Errorf("grid.New: ghost widths must be non-negative: %w", werr.ErrBadBinning)
	}
	if rank < 0 || nRanks < 1 || rank >= nRanks {
		return nil, fmt.Errorf("grid.New: rank %d of %d workers is invalid: %w", rank, nRanks, werr.ErrBadBinning)
	}

	base := n / nRanks
	rem := n % nRanks
	localNx := base
	xStart := rank * base
	if rank < rem {
		localNx++
		xStart += rank
	} else {
		xStart += rem
	}
	if localNx < nLeft || localNx < nRight {
		return nil, fmt.Errorf(
			"grid.New: local slab of %d planes on rank %d is narrower than its own ghost width (%d, %d): %w",
			localNx, rank, nLeft, nRight, werr.ErrBadBinning,
		)
	}

	restSize := pow(n, dim-1)
	fourierRest := pow(n, dim-2) * (n/2 + 1)

	g := &SlabGrid{
		dim: dim, n: n, nLeft: nLeft, nRight: nRight,
		rank: rank, nRanks: nRanks, localNx: localNx, xStart: xStart,
		status:      Real,
		restSize:    restSize,
		fourierRest: fourierRest,
		real:        make([]float64, (localNx+nLeft+nRight)*restSize),
		four:        make([]complex128, localNx*fourierRest),
	}
	return g, nil
}

func pow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

func (g *SlabGrid) Dim() int      { return g.dim }
func (g *SlabGrid) N() int        { return g.n }
func (g *SlabGrid) NLeft() int    { return g.nLeft }
func (g *SlabGrid) NRight() int   { return g.nRight }
func (g *SlabGrid) LocalNx() int  { return g.localNx }
func (g *SlabGrid) XStart() int   { return g.xStart }
func (g *SlabGrid) Rank() int     { return g.rank }
func (g *SlabGrid) NRanks() int   { return g.nRanks }
func (g *SlabGrid) Status() Status { return g.status }
func (g *SlabGrid) RestSize() int { return g.restSize }

// RealRaw exposes the underlying real-view storage, ghost planes
// included, for use by the comm package's halo exchange and the fft
// package's gather/scatter. It is valid regardless of Status (the
// FFT driver and halo exchange are the only callers outside this
// package and both know which view they need).
func (g *SlabGrid) RealRaw() []float64 { return g.real }

// FourierRaw exposes the underlying Fourier-view storage, owned
// planes only (no ghosts exist in Fourier space).
func (g *SlabGrid) FourierRaw() []complex128 { return g.four }

// SetStatus is used only by the fft package immediately after it
// finishes a transform; no other caller should need it.
func (g *SlabGrid) SetStatus(s Status) { g.status = s }

// localXIndex validates and converts a caller-supplied x coordinate
// (owned or ghost range) into an index into the real-view's first
// axis.
func (g *SlabGrid) localXIndex(x int) (int, error) {
	if x < -g.nLeft || x >= g.localNx+g.nRight {
		return 0, fmt.Errorf("grid: x coordinate %d outside ghost range [-%d, %d): %w",
			x, g.nLeft, g.localNx+g.nRight, werr.ErrBadBinning)
	}
	return x + g.nLeft, nil
}

func wrap(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

// realFlatIndex computes the flat index into RealRaw() for a
// dim-length coordinate whose first component may be in the ghost
// range and whose remaining components are taken modulo n.
func (g *SlabGrid) realFlatIndex(coord []int) (int, error) {
	if len(coord) != g.dim {
		return 0, fmt.Errorf("grid: coordinate has %d components, want %d: %w",
			len(coord), g.dim, werr.ErrBadBinning)
	}
	lx, err := g.localXIndex(coord[0])
	if err != nil {
		return 0, err
	}
	idx := lx
	for i := 1; i < g.dim; i++ {
		idx = idx*g.n + wrap(coord[i], g.n)
	}
	return idx, nil
}

// GetReal returns the real-view value at coord. coord[0] may be a
// ghost index.
func (g *SlabGrid) GetReal(coord []int) (float64, error) {
	if g.status != Real {
		return 0, fmt.Errorf("grid.GetReal: %w", werr.ErrStateMismatch)
	}
	idx, err := g.realFlatIndex(coord)
	if err != nil {
		return 0, err
	}
	return g.real[idx], nil
}

// SetReal sets the real-view value at coord.
func (g *SlabGrid) SetReal(coord []int, v float64) error {
	if g.status != Real {
		return fmt.Errorf("grid.SetReal: %w", werr.ErrStateMismatch)
	}
	idx, err := g.realFlatIndex(coord)
	if err != nil {
		return err
	}
	g.real[idx] = v
	return nil
}

// AddReal adds v to the real-view value at coord; it is the
// accumulating (not atomic) primitive the assignment kernels scatter
// with (see kernel.Scatter, which gives each goroutine its own private
// grid), since a single particle's support window may revisit the same
// owned cell only once but many particles routed to the same goroutine
// partition accumulate into overlapping cells.
func (g *SlabGrid) AddReal(coord []int, v float64) error {
	if g.status != Real {
		return fmt.Errorf("grid.AddReal: %w", werr.ErrStateMismatch)
	}
	idx, err := g.realFlatIndex(coord)
	if err != nil {
		return err
	}
	g.real[idx] += v
	return nil
}

// GetFourier returns the Fourier-view amplitude at flat index idx.
func (g *SlabGrid) GetFourier(idx int) (complex128, error) {
	if g.status != Fourier {
		return 0, fmt.Errorf("grid.GetFourier: %w", werr.ErrStateMismatch)
	}
	if idx < 0 || idx >= len(g.four) {
		return 0, fmt.Errorf("grid.GetFourier: index %d out of range [0,%d): %w",
			idx, len(g.four), werr.ErrBadBinning)
	}
	return g.four[idx], nil
}

// SetFourier sets the Fourier-view amplitude at flat index idx.
func (g *SlabGrid) SetFourier(idx int, v complex128) error {
	if g.status != Fourier {
		return fmt.Errorf("grid.SetFourier: %w", werr.ErrStateMismatch)
	}
	if idx < 0 || idx >= len(g.four) {
		return fmt.Errorf("grid.SetFourier: index %d out of range [0,%d): %w",
			idx, len(g.four), werr.ErrBadBinning)
	}
	g.four[idx] = v
	return nil
}

// FillReal bulk-sets every real-view cell, owned and ghost alike.
func (g *SlabGrid) FillReal(v float64) error {
	if g.status != Real {
		return fmt.Errorf("grid.FillReal: %w", werr.ErrStateMismatch)
	}
	for i := range g.real {
		g.real[i] = v
	}
	return nil
}

// FillFourier bulk-sets every owned Fourier-view cell.
func (g *SlabGrid) FillFourier(v complex128) error {
	if g.status != Fourier {
		return fmt.Errorf("grid.FillFourier: %w", werr.ErrStateMismatch)
	}
	for i := range g.four {
		g.four[i] = v
	}
	return nil
}

// ForEachOwnedReal calls fn once per owned (non-ghost) real cell,
// passing its dim-length coordinate (coord[0] in [0,localNx)) and
// its flat index into RealRaw().
func (g *SlabGrid) ForEachOwnedReal(fn func(coord []int, idx int)) {
	coord := make([]int, g.dim)
	g.walkReal(coord, 0, fn)
}

func (g *SlabGrid) walkReal(coord []int, axis int, fn func([]int, int)) {
	if axis == g.dim {
		idx, _ := g.realFlatIndex(coord)
		fn(coord, idx)
		return
	}
	limit := g.n
	if axis == 0 {
		limit = g.localNx
	}
	for i := 0; i < limit; i++ {
		coord[axis] = i
		g.walkReal(coord, axis+1, fn)
	}
}

// ForEachFourier calls fn once per owned Fourier cell with its flat
// index into FourierRaw().
func (g *SlabGrid) ForEachFourier(fn func(idx int)) {
	for i := range g.four {
		fn(i)
	}
}

// Clone deep-copies the grid, including whichever view (real or
// Fourier, ghosts included where applicable) is currently valid.
func (g *SlabGrid) Clone() *SlabGrid {
	out := &SlabGrid{
		dim: g.dim, n: g.n, nLeft: g.nLeft, nRight: g.nRight,
		rank: g.rank, nRanks: g.nRanks, localNx: g.localNx, xStart: g.xStart,
		status: g.status, restSize: g.restSize, fourierRest: g.fourierRest,
	}
	out.real = make([]float64, len(g.real))
	copy(out.real, g.real)
	out.four = make([]complex128, len(g.four))
	copy(out.four, g.four)
	return out
}
