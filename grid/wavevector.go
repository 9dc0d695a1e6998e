package grid

import "math"

// FourierModeIndices decodes the flat Fourier index idx into its
// dim-length integer mode number j', one per axis: for axis 0 and
// every axis except the last, j' = j if j <= N/2 else j - N (the
// wrapped convention); for the last (real-packed) axis, j' = j
// directly, j in [0, N/2]. This is the shared decode that
// GetFourierWavevectorAndNorm, the kernel package's window function,
// and the smoothing filters all build on, so the wrap convention
// lives in exactly one place.
func (g *SlabGrid) FourierModeIndices(idx int) []int {
	half := g.n/2 + 1
	rem := idx
	coord := make([]int, g.dim)

	coord[g.dim-1] = rem % half
	rem /= half
	for i := g.dim - 2; i >= 1; i-- {
		coord[i] = rem % g.n
		rem /= g.n
	}
	coord[0] = rem // local x index, owned range [0, localNx)

	jp := make([]int, g.dim)
	globalX := g.xStart + coord[0]
	jp[0] = wrapMode(globalX, g.n)
	for i := 1; i < g.dim-1; i++ {
		jp[i] = wrapMode(coord[i], g.n)
	}
	jp[g.dim-1] = coord[g.dim-1] // last axis: direct, no wrap

	return jp
}

func wrapMode(j, n int) int {
	if j <= n/2 {
		return j
	}
	return j - n
}

// GetFourierWavevectorAndNorm returns the wavevector k_j = 2*pi*j'
// per axis (see SPEC_FULL.md section 3) and its Euclidean norm, for
// the Fourier cell at flat index idx.
func (g *SlabGrid) GetFourierWavevectorAndNorm(idx int) (kvec []float64, kmag float64) {
	jp := g.FourierModeIndices(idx)
	kvec = make([]float64, g.dim)
	sumSq := 0.0
	for i, j := range jp {
		kvec[i] = 2 * math.Pi * float64(j)
		sumSq += kvec[i] * kvec[i]
	}
	return kvec, math.Sqrt(sumSq)
}

// LastAxisCoord returns the packed (real-Hermitian) axis coordinate
// of Fourier index idx, i.e. idx % (N/2+1). BinUp and the multipole
// accumulator use it directly to decide the Hermitian-pair weight
// (1 for DC/Nyquist, 2 otherwise) without re-deriving the full
// coordinate decomposition.
func (g *SlabGrid) LastAxisCoord(idx int) int {
	return idx % (g.n/2 + 1)
}
